package review

import (
	"fmt"
	"strings"
)

const (
	rejectionSystem  = "You are a professional HR expert who writes empathetic and constructive rejection letters."
	acceptanceSystem = "You are a professional HR expert who writes welcoming and enthusiastic job offer letters."
	gradingSystem    = "You are a professional HR expert and CV evaluator. Provide thorough, objective assessments in %s."

	letterTemperature = 0.7
	letterMaxTokens   = 800
	gradeTemperature  = 0.3
	gradeMaxTokens    = 1000

	// MaxCVTextLength bounds the CV text embedded in a grading prompt.
	MaxCVTextLength = 4000
)

func commentLines(comments []string) string {
	var lines []string
	for _, c := range comments {
		if strings.TrimSpace(c) == "" {
			continue
		}
		lines = append(lines, "- "+c)
	}
	return strings.Join(lines, "\n")
}

func ratingLine(avg *float64) string {
	if avg == nil {
		return ""
	}
	return fmt.Sprintf("Average rating: %.1f/5.0", *avg)
}

type letterContext struct {
	lang      Language
	candidate string
	company   string
	position  string
	comments  []string
	average   *float64
}

func (c letterContext) header() string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	fmt.Fprintf(&sb, "- Candidate: %s\n", c.candidate)
	fmt.Fprintf(&sb, "- Company: %s\n", c.company)
	fmt.Fprintf(&sb, "- Position: %s\n", c.position)
	if line := ratingLine(c.average); line != "" {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func rejectionPrompt(c letterContext) string {
	feedback := commentLines(c.comments)
	if feedback == "" {
		feedback = "No specific feedback provided"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a professional, respectful job application rejection letter in %s.\n\n", c.lang.Name)
	sb.WriteString(c.header())
	sb.WriteString("\nFeedback from reviewers:\n")
	sb.WriteString(feedback)
	sb.WriteString("\n\nRequirements:\n")
	sb.WriteString("1. Be professional and respectful\n")
	sb.WriteString("2. Thank the candidate for their interest\n")
	sb.WriteString("3. If there are specific comments, incorporate constructive feedback tactfully\n")
	sb.WriteString("4. Encourage future applications if appropriate\n")
	sb.WriteString("5. Keep it concise but warm\n")
	sb.WriteString("6. Use proper business letter format\n")
	fmt.Fprintf(&sb, "7. Write in %s language\n\n", c.lang.Name)
	fmt.Fprintf(&sb, "Do not include company letterhead, addresses, or dates - just the letter content starting with the salutation %q.", c.lang.salutation(c.candidate))
	return sb.String()
}

func acceptancePrompt(c letterContext) string {
	feedback := commentLines(c.comments)
	if feedback == "" {
		feedback = "Strong positive impression from the review team"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a professional, welcoming job offer acceptance letter in %s.\n\n", c.lang.Name)
	sb.WriteString(c.header())
	sb.WriteString("\nPositive feedback from reviewers:\n")
	sb.WriteString(feedback)
	sb.WriteString("\n\nRequirements:\n")
	sb.WriteString("1. Be professional and enthusiastic\n")
	sb.WriteString("2. Congratulate the candidate on being selected\n")
	sb.WriteString("3. If there are specific positive comments, incorporate them to highlight strengths\n")
	sb.WriteString("4. Express excitement about having them join the team\n")
	sb.WriteString("5. Mention next steps (HR will contact them soon)\n")
	sb.WriteString("6. Keep it warm and welcoming but professional\n")
	sb.WriteString("7. Use proper business letter format\n")
	fmt.Fprintf(&sb, "8. Write in %s language\n\n", c.lang.Name)
	fmt.Fprintf(&sb, "Do not include company letterhead, addresses, or dates - just the letter content starting with the salutation %q.", c.lang.salutation(c.candidate))
	return sb.String()
}

func gradingPrompt(lang Language, candidate, positionDescription, cvText string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", lang.GradeIntro)
	fmt.Fprintf(&sb, "Analyze this CV against the given position requirements and provide a comprehensive evaluation in %s.\n\n", lang.Name)
	fmt.Fprintf(&sb, "Position Description:\n%s\n\n", positionDescription)
	fmt.Fprintf(&sb, "CV Content:\n%s\n\n", cvText)
	fmt.Fprintf(&sb, "Candidate: %s\n\n", candidate)
	sb.WriteString(`Please provide:
1. A detailed evaluation comment (2-3 paragraphs) covering:
   - How well the candidate matches the position requirements
   - Key strengths and relevant experience
   - Areas where the candidate may need development
   - Overall assessment of fit for the role

2. A numerical rating from 1-5 where:
   - 1 = Poor fit, major gaps in requirements
   - 2 = Below average fit, several important gaps
   - 3 = Average fit, meets basic requirements
   - 4 = Good fit, meets most requirements well
   - 5 = Excellent fit, exceeds requirements

Requirements:
- Be objective and professional
- Focus on job-relevant skills and experience
- Provide constructive feedback
`)
	fmt.Fprintf(&sb, "- Write in %s language\n", lang.Name)
	sb.WriteString(`- Be specific about strengths and weaknesses
- Consider both technical and soft skills

Format your response as:
RATING: [1-5]
COMMENT: [Your detailed evaluation]`)
	return sb.String()
}
