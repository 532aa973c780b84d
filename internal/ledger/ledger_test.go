package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_UnionOfVotesAndComments(t *testing.T) {
	v := View{
		Votes:    map[string]map[string]int{"docA": {"alice": 5}},
		Comments: map[string]map[string]string{"docA": {"bob": "great"}},
	}

	data, err := Encode(v)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "document_id,voter_name,rating,comment", lines[0])
	assert.ElementsMatch(t, []string{"docA,alice,5,", "docA,bob,0,great"}, lines[1:])
}

func TestRows_DocumentOnlyInComments(t *testing.T) {
	v := View{
		Votes:    map[string]map[string]int{},
		Comments: map[string]map[string]string{"docB": {"carol": "maybe"}},
	}
	rows := v.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, Row{DocumentID: "docB", VoterName: "carol", Rating: 0, Comment: "maybe"}, rows[0])
}

func TestDecode_SkipsMalformedRows(t *testing.T) {
	data := "document_id,voter_name,rating,comment\n" +
		"docA,alice,5,solid\n" +
		"docA,bob,five,oops\n" +
		"docB,carol\n" +
		"docB,dave,2,\n"

	v := Decode([]byte(data))

	assert.Equal(t, map[string]int{"alice": 5}, v.Votes["docA"])
	assert.Equal(t, map[string]string{"alice": "solid"}, v.Comments["docA"])
	assert.Equal(t, map[string]int{"dave": 2}, v.Votes["docB"])
	assert.Empty(t, v.Comments["docB"])
}

func TestDecode_LastDuplicateWins(t *testing.T) {
	data := "document_id,voter_name,rating,comment\n" +
		"docA,alice,2,first\n" +
		"docA,alice,4,second\n"

	v := Decode([]byte(data))
	assert.Equal(t, 4, v.Votes["docA"]["alice"])
	assert.Equal(t, "second", v.Comments["docA"]["alice"])
}

func TestDecode_QuotedComment(t *testing.T) {
	data := "document_id,voter_name,rating,comment\n" +
		"docA,alice,3,\"good, but \"\"junior\"\"\nsecond line\"\n"

	v := Decode([]byte(data))
	assert.Equal(t, "good, but \"junior\"\nsecond line", v.Comments["docA"]["alice"])
}

func TestDecode_Empty(t *testing.T) {
	v := Decode(nil)
	assert.NotNil(t, v.Votes)
	assert.NotNil(t, v.Comments)
	assert.Empty(t, v.Votes)
}

func TestRoundTrip_IdempotentOnSecondApplication(t *testing.T) {
	v := View{
		Votes: map[string]map[string]int{
			"docA": {"alice": 5, "bob": 3},
			"docC": {"erin": 1},
		},
		Comments: map[string]map[string]string{
			"docA": {"bob": "ok", "frank": "needs more experience"},
			"docB": {"gina": "great, really"},
		},
	}

	first, err := Encode(v)
	require.NoError(t, err)
	loaded := Decode(first)

	second, err := Encode(loaded)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	assert.Equal(t, 0, loaded.Votes["docA"]["frank"])
	assert.Equal(t, "", loaded.Comments["docA"]["alice"])
	assert.Equal(t, v.Rows(), loaded.Rows())
}
