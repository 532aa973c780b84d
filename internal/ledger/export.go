package ledger

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/xuri/excelize/v2"
)

const (
	scoresSheet  = "Scores"
	summarySheet = "Summary"
)

// Summary aggregates one document's votes. Average ignores 0 ratings, which
// stand for comment-only rows.
type Summary struct {
	DocumentID string
	Name       string
	Votes      int
	Average    float64
}

// Summarize builds per-document summaries in document id order. names maps
// document ids to display names; unknown ids fall back to the id.
func Summarize(v View, names map[string]string) []Summary {
	byDoc := map[string]*Summary{}
	var order []string
	var totals = map[string]int{}

	for _, r := range v.Rows() {
		s, ok := byDoc[r.DocumentID]
		if !ok {
			name := names[r.DocumentID]
			if name == "" {
				name = r.DocumentID
			}
			s = &Summary{DocumentID: r.DocumentID, Name: name}
			byDoc[r.DocumentID] = s
			order = append(order, r.DocumentID)
		}
		if r.Rating > 0 {
			s.Votes++
			totals[r.DocumentID] += r.Rating
		}
	}

	out := make([]Summary, 0, len(order))
	for _, id := range order {
		s := byDoc[id]
		if s.Votes > 0 {
			s.Average = float64(totals[id]) / float64(s.Votes)
		}
		out = append(out, *s)
	}
	slices.SortStableFunc(out, func(a, b Summary) int {
		switch {
		case a.Average > b.Average:
			return -1
		case a.Average < b.Average:
			return 1
		}
		return 0
	})
	return out
}

// Export renders the ledger as an .xlsx workbook with a row-per-vote sheet
// and a per-document summary ranked by average rating.
func Export(v View, names map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", scoresSheet)
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	if err := writeScores(f, v, names, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to write scores sheet: %w", err)
	}
	if err := writeSummary(f, Summarize(v, names), headerStyle); err != nil {
		return nil, fmt.Errorf("failed to write summary sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
	return nil
}

func writeScores(f *excelize.File, v View, names map[string]string, style int) error {
	f.SetColWidth(scoresSheet, "A", "C", 28)
	f.SetColWidth(scoresSheet, "E", "E", 60)
	if err := writeHeader(f, scoresSheet, []string{"Document ID", "Document", "Voter", "Rating", "Comment"}, style); err != nil {
		return err
	}

	for i, r := range v.Rows() {
		row := i + 2
		name := names[r.DocumentID]
		if name == "" {
			name = r.DocumentID
		}
		f.SetCellValue(scoresSheet, fmt.Sprintf("A%d", row), r.DocumentID)
		f.SetCellValue(scoresSheet, fmt.Sprintf("B%d", row), name)
		f.SetCellValue(scoresSheet, fmt.Sprintf("C%d", row), r.VoterName)
		f.SetCellValue(scoresSheet, fmt.Sprintf("D%d", row), r.Rating)
		f.SetCellValue(scoresSheet, fmt.Sprintf("E%d", row), r.Comment)
	}
	return nil
}

func writeSummary(f *excelize.File, summaries []Summary, style int) error {
	f.SetColWidth(summarySheet, "A", "B", 30)
	if err := writeHeader(f, summarySheet, []string{"Document ID", "Document", "Votes", "Average Rating"}, style); err != nil {
		return err
	}

	for i, s := range summaries {
		row := i + 2
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), s.DocumentID)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), s.Name)
		f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), s.Votes)
		f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), fmt.Sprintf("%.2f", s.Average))
	}
	return nil
}
