// Package review drafts rejection and acceptance letters and grades CVs
// against a position description using a text-generation provider.
package review

import (
	"fmt"
	"strings"
)

// Language holds the per-language templates used in prompts and subjects.
type Language struct {
	Code              string
	Name              string // natural language the model writes in
	RejectionSubject  string // %s is the position
	AcceptanceSubject string // %s is the position
	Salutation        string // %s is the candidate name
	GradeIntro        string
}

const DefaultLanguage = "en"

var languages = map[string]Language{
	"en": {
		Code:              "en",
		Name:              "English",
		RejectionSubject:  "Application Update - %s",
		AcceptanceSubject: "Job Offer - %s Position",
		Salutation:        "Dear %s,",
		GradeIntro:        "Professional CV Analysis",
	},
	"pl": {
		Code:              "pl",
		Name:              "Polish",
		RejectionSubject:  "Aktualizacja aplikacji - %s",
		AcceptanceSubject: "Oferta pracy - stanowisko %s",
		Salutation:        "Szanowny/a %s,",
		GradeIntro:        "Profesjonalna Analiza CV",
	},
	"es": {
		Code:              "es",
		Name:              "Spanish",
		RejectionSubject:  "Actualización de solicitud - %s",
		AcceptanceSubject: "Oferta de trabajo - Posición %s",
		Salutation:        "Estimado/a %s,",
		GradeIntro:        "Análisis Profesional de CV",
	},
	"fr": {
		Code:              "fr",
		Name:              "French",
		RejectionSubject:  "Mise à jour de candidature - %s",
		AcceptanceSubject: "Offre d'emploi - Poste %s",
		Salutation:        "Cher/Chère %s,",
		GradeIntro:        "Analyse Professionnelle de CV",
	},
	"de": {
		Code:              "de",
		Name:              "German",
		RejectionSubject:  "Bewerbungsupdate - %s",
		AcceptanceSubject: "Stellenangebot - Position %s",
		Salutation:        "Liebe/r %s,",
		GradeIntro:        "Professionelle CV-Analyse",
	},
}

// LookupLanguage returns the templates for code, falling back to English.
func LookupLanguage(code string) Language {
	if l, ok := languages[strings.ToLower(strings.TrimSpace(code))]; ok {
		return l
	}
	return languages[DefaultLanguage]
}

func (l Language) rejectionSubject(position string) string {
	return fmt.Sprintf(l.RejectionSubject, position)
}

func (l Language) acceptanceSubject(position string) string {
	return fmt.Sprintf(l.AcceptanceSubject, position)
}

func (l Language) salutation(candidate string) string {
	return fmt.Sprintf(l.Salutation, candidate)
}

var nameReplacer = []struct{ old, new string }{
	{".pdf", ""},
	{"_CV", ""},
	{"_Resume", ""},
	{"_", " "},
	{"-", " "},
}

// CandidateName derives a display name from a CV filename, e.g.
// "Jane_Doe_CV.pdf" becomes "Jane Doe".
func CandidateName(documentName string) string {
	name := documentName
	for _, r := range nameReplacer {
		name = strings.ReplaceAll(name, r.old, r.new)
	}
	return strings.TrimSpace(name)
}
