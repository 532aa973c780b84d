package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Gaius-Lex/CV-voting/internal/model"
)

// Vote validates a single vote and echoes it back. Votes are persisted by the
// client through SaveScores.
func Vote(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var vote model.Vote
	if err := decodeBody(req, &vote); err != nil {
		return errorResponse(http.StatusBadRequest, detailInvalidBody), nil
	}
	if strings.TrimSpace(vote.DocumentID) == "" || strings.TrimSpace(vote.VoterName) == "" {
		return errorResponse(http.StatusBadRequest, "document_id and voter_name are required"), nil
	}
	if vote.Rating < 1 || vote.Rating > 5 {
		return errorResponse(http.StatusBadRequest, "Rating must be between 1 and 5"), nil
	}

	return jsonResponse(http.StatusOK, map[string]any{
		"message": "Vote received",
		"vote":    vote,
	}), nil
}
