package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
	"github.com/Gaius-Lex/CV-voting/internal/llm"
	"github.com/Gaius-Lex/CV-voting/internal/markdown"
	"github.com/Gaius-Lex/CV-voting/internal/pdftext"
)

const (
	defaultCompany            = "Our Company"
	defaultRejectionPosition  = "the position"
	defaultAcceptancePosition = "this position"
)

// LetterRequest is the body of both letter endpoints.
type LetterRequest struct {
	DocumentName  string   `json:"document_name"`
	CandidateName string   `json:"candidate_name,omitempty"`
	Language      string   `json:"language"`
	Comments      []string `json:"comments"`
	AverageRating *float64 `json:"average_rating,omitempty"`
	CompanyName   string   `json:"company_name"`
	Position      string   `json:"position"`
}

type LetterResponse struct {
	Letter     string `json:"letter"`
	Language   string `json:"language"`
	Subject    string `json:"subject"`
	LetterHTML string `json:"letter_html,omitempty"`
}

type GradingRequest struct {
	DocumentID          string `json:"document_id"`
	DocumentName        string `json:"document_name"`
	PositionDescription string `json:"position_description"`
	Language            string `json:"language"`
}

type GradingResponse struct {
	Comment  string `json:"comment"`
	Rating   int    `json:"rating"`
	Language string `json:"language"`
}

// Service drafts letters and grades CVs. A nil generator means no provider
// key is configured; every operation then fails with llm.ErrNotConfigured.
type Service struct {
	gen      llm.Generator
	renderer *markdown.Renderer
	logger   zerolog.Logger
}

func NewService(gen llm.Generator, renderer *markdown.Renderer, logger zerolog.Logger) *Service {
	if renderer == nil {
		renderer = markdown.NewRenderer()
	}
	return &Service{gen: gen, renderer: renderer, logger: logger}
}

// Ready reports whether a text-generation provider is configured.
func (s *Service) Ready() bool {
	return s.gen != nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func (r LetterRequest) context(defaultPosition string) letterContext {
	candidate := strings.TrimSpace(r.CandidateName)
	if candidate == "" {
		candidate = CandidateName(r.DocumentName)
	}
	return letterContext{
		lang:      LookupLanguage(r.Language),
		candidate: candidate,
		company:   orDefault(r.CompanyName, defaultCompany),
		position:  orDefault(r.Position, defaultPosition),
		comments:  r.Comments,
		average:   r.AverageRating,
	}
}

// GenerateRejection drafts a rejection letter.
func (s *Service) GenerateRejection(ctx context.Context, req LetterRequest) (*LetterResponse, error) {
	c := req.context(defaultRejectionPosition)
	return s.letter(ctx, req, llm.Request{
		System:      rejectionSystem,
		Prompt:      rejectionPrompt(c),
		Temperature: letterTemperature,
		MaxTokens:   letterMaxTokens,
	}, c.lang.rejectionSubject(c.position))
}

// GenerateAcceptance drafts a job offer letter.
func (s *Service) GenerateAcceptance(ctx context.Context, req LetterRequest) (*LetterResponse, error) {
	c := req.context(defaultAcceptancePosition)
	return s.letter(ctx, req, llm.Request{
		System:      acceptanceSystem,
		Prompt:      acceptancePrompt(c),
		Temperature: letterTemperature,
		MaxTokens:   letterMaxTokens,
	}, c.lang.acceptanceSubject(c.position))
}

func (s *Service) letter(ctx context.Context, req LetterRequest, prompt llm.Request, subject string) (*LetterResponse, error) {
	if !s.Ready() {
		return nil, llm.ErrNotConfigured
	}

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)

	resp := &LetterResponse{
		Letter:   text,
		Language: orDefault(req.Language, DefaultLanguage),
		Subject:  subject,
	}
	if html, err := s.renderer.RenderString(text); err != nil {
		s.logger.Warn().Err(err).Msg("failed to render letter HTML")
	} else {
		resp.LetterHTML = html
	}
	return resp, nil
}

// Grade downloads the CV from drive, extracts its text and asks the model for
// a rating and comment. Unreadable PDFs are graded on a placeholder text.
func (s *Service) Grade(ctx context.Context, storage adapter.StorageAdapter, req GradingRequest) (*GradingResponse, error) {
	if !s.Ready() {
		return nil, llm.ErrNotConfigured
	}

	f, err := storage.GetFile(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to download CV: %w", err)
	}

	cvText, err := pdftext.ExtractOrPlaceholder(f.Content)
	if err != nil {
		s.logger.Warn().Err(err).Str("document_id", req.DocumentID).Msg("failed to extract text from PDF")
	}

	lang := LookupLanguage(req.Language)
	docName := req.DocumentName
	if docName == "" {
		docName = f.Name
	}

	reply, err := s.gen.Generate(ctx, llm.Request{
		System:      fmt.Sprintf(gradingSystem, lang.Name),
		Prompt:      gradingPrompt(lang, CandidateName(docName), req.PositionDescription, pdftext.Truncate(cvText, MaxCVTextLength)),
		Temperature: gradeTemperature,
		MaxTokens:   gradeMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	g := ParseGrade(reply)
	return &GradingResponse{
		Comment:  g.Comment,
		Rating:   g.Rating,
		Language: orDefault(req.Language, DefaultLanguage),
	}, nil
}
