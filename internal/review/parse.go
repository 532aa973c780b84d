package review

import (
	"strconv"
	"strings"
)

const (
	DefaultRating = 3
	ratingMarker  = "RATING:"
	commentMarker = "COMMENT:"
)

// Grade is the parsed model reply for a CV evaluation.
type Grade struct {
	Rating  int
	Comment string
}

// ParseGrade extracts the rating and comment from a free-form reply.
// RATING is clamped to 1..5 and defaults to 3. COMMENT runs to the end of the
// reply. Without a COMMENT marker the whole reply is the comment. Stray
// RATING lines never end up in the comment.
func ParseGrade(reply string) Grade {
	reply = strings.TrimSpace(reply)
	g := Grade{Rating: DefaultRating, Comment: reply}

	lines := strings.Split(reply, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, ratingMarker):
			if n, ok := parseRating(strings.TrimPrefix(trimmed, ratingMarker)); ok {
				g.Rating = n
			}
		case strings.HasPrefix(trimmed, commentMarker):
			rest := append([]string{strings.TrimSpace(strings.TrimPrefix(trimmed, commentMarker))}, lines[i+1:]...)
			g.Comment = strings.Join(rest, "\n")
			g.Comment = stripRatingLines(g.Comment)
			return g
		}
	}

	g.Comment = stripRatingLines(g.Comment)
	return g
}

func parseRating(s string) (int, bool) {
	fields := strings.Fields(strings.Trim(strings.TrimSpace(s), "[]*"))
	if len(fields) == 0 {
		return 0, false
	}
	raw := strings.SplitN(fields[0], "/", 2)[0]
	n, err := strconv.Atoi(strings.Trim(raw, "[]*.,"))
	if err != nil {
		return 0, false
	}
	return min(max(n, 1), 5), true
}

func stripRatingLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), ratingMarker) {
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
