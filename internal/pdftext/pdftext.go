// Package pdftext pulls plain text out of CV PDFs for grading.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Placeholder stands in for the CV text when nothing can be extracted.
const Placeholder = "[Could not extract text from PDF - file may be image-based or corrupted]"

var ErrNoText = errors.New("no text in PDF")

// Extract returns the plain text of every page. The parser panics on some
// malformed files; that is reported as an error.
func Extract(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	text = strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// ExtractOrPlaceholder always yields usable text: unreadable documents give
// Placeholder. The extraction error is returned for logging only.
func ExtractOrPlaceholder(data []byte) (string, error) {
	text, err := Extract(data)
	if err != nil {
		return Placeholder, err
	}
	return text, nil
}

// Truncate keeps at most n runes of text.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
