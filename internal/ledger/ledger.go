// Package ledger reads and writes the per-folder votes and comments table
// kept as scores.csv next to the CVs.
package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"slices"
	"strconv"
	"strings"
)

const (
	// FileName is the reserved ledger file in every review folder.
	FileName = "scores.csv"
	// MimeType is used when the ledger is uploaded.
	MimeType = "text/csv"
)

var header = []string{"document_id", "voter_name", "rating", "comment"}

// View is the ledger as exchanged with clients: document id -> voter -> value.
type View struct {
	Votes    map[string]map[string]int    `json:"votes"`
	Comments map[string]map[string]string `json:"comments"`
}

// NewView returns an empty view with both tables allocated.
func NewView() View {
	return View{
		Votes:    map[string]map[string]int{},
		Comments: map[string]map[string]string{},
	}
}

// Row is one (document, voter) line of the ledger.
type Row struct {
	DocumentID string
	VoterName  string
	Rating     int
	Comment    string
}

// Rows expands the view into one row per voter per document. Document ids and
// voters are the union of both tables; a missing rating is 0 and a missing
// comment is empty. Rows are sorted by document id, then voter.
func (v View) Rows() []Row {
	docs := map[string]struct{}{}
	for id := range v.Votes {
		docs[id] = struct{}{}
	}
	for id := range v.Comments {
		docs[id] = struct{}{}
	}

	var rows []Row
	for _, docID := range sortedKeys(docs) {
		voters := map[string]struct{}{}
		for voter := range v.Votes[docID] {
			voters[voter] = struct{}{}
		}
		for voter := range v.Comments[docID] {
			voters[voter] = struct{}{}
		}
		for _, voter := range sortedKeys(voters) {
			rows = append(rows, Row{
				DocumentID: docID,
				VoterName:  voter,
				Rating:     v.Votes[docID][voter],
				Comment:    v.Comments[docID][voter],
			})
		}
	}
	return rows
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Encode serializes the view as CSV with the fixed header row.
func Encode(v View) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range v.Rows() {
		if err := w.Write([]string{r.DocumentID, r.VoterName, strconv.Itoa(r.Rating), r.Comment}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses ledger CSV. Rows that are short, carry a non-numeric rating or
// cannot be parsed are skipped; for duplicate (document, voter) pairs the last
// row wins.
func Decode(data []byte) View {
	v := NewView()

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			break
		}
		if first {
			first = false
			if len(rec) > 0 && strings.TrimPrefix(rec[0], "\ufeff") == header[0] {
				continue
			}
		}
		if len(rec) < 3 {
			continue
		}
		rating, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			continue
		}

		docID, voter := rec[0], rec[1]
		if v.Votes[docID] == nil {
			v.Votes[docID] = map[string]int{}
		}
		if v.Comments[docID] == nil {
			v.Comments[docID] = map[string]string{}
		}
		v.Votes[docID][voter] = rating

		comment := ""
		if len(rec) > 3 {
			comment = rec[3]
		}
		if comment != "" {
			v.Comments[docID][voter] = comment
		} else {
			delete(v.Comments[docID], voter)
		}
	}
	return v
}
