package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/Gaius-Lex/CV-voting/internal/auth"
	"github.com/Gaius-Lex/CV-voting/internal/llm"
	"github.com/Gaius-Lex/CV-voting/internal/review"
)

// ReviewHandler serves the letter and grading endpoints.
type ReviewHandler struct {
	service *review.Service
	drive   *DriveAccess
	logger  zerolog.Logger
}

func NewReviewHandler(service *review.Service, drive *DriveAccess, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{service: service, drive: drive, logger: logger}
}

type letterFunc func(context.Context, review.LetterRequest) (*review.LetterResponse, error)

func (h *ReviewHandler) letter(ctx context.Context, req events.APIGatewayProxyRequest, generate letterFunc, what string) events.APIGatewayProxyResponse {
	if !h.service.Ready() {
		return failure(llm.ErrNotConfigured, "")
	}

	var body review.LetterRequest
	if err := decodeBody(req, &body); err != nil {
		return errorResponse(http.StatusBadRequest, detailInvalidBody)
	}
	if strings.TrimSpace(body.DocumentName) == "" && strings.TrimSpace(body.CandidateName) == "" {
		return errorResponse(http.StatusBadRequest, "document_name is required")
	}

	resp, err := generate(ctx, body)
	if err != nil {
		h.logger.Error().Err(err).Str("document_name", body.DocumentName).Msg("failed to generate " + what)
		return failure(err, "Failed to generate "+what)
	}
	return jsonResponse(http.StatusOK, resp)
}

// GenerateRejection drafts a rejection letter.
func (h *ReviewHandler) GenerateRejection(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.letter(ctx, req, h.service.GenerateRejection, "rejection letter"), nil
}

// GenerateAcceptance drafts a job offer letter.
func (h *ReviewHandler) GenerateAcceptance(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.letter(ctx, req, h.service.GenerateAcceptance, "acceptance letter"), nil
}

// GradeCV grades a CV from the user's drive against a position description.
// A missing provider key is reported before the drive is touched.
func (h *ReviewHandler) GradeCV(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if !h.service.Ready() {
		return failure(llm.ErrNotConfigured, ""), nil
	}

	var body review.GradingRequest
	if err := decodeBody(req, &body); err != nil {
		return errorResponse(http.StatusBadRequest, detailInvalidBody), nil
	}
	if strings.TrimSpace(body.DocumentID) == "" {
		return errorResponse(http.StatusBadRequest, "document_id is required"), nil
	}

	storage, err := h.drive.Storage(ctx, req)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			h.logger.Error().Err(err).Str("user_id", UserID(req)).Msg("failed to open drive")
		}
		return failure(err, "Failed to grade CV"), nil
	}

	resp, err := h.service.Grade(ctx, storage, body)
	if err != nil {
		h.logger.Error().Err(err).Str("document_id", body.DocumentID).Msg("failed to grade CV")
		return failure(err, "Failed to grade CV"), nil
	}
	return jsonResponse(http.StatusOK, resp), nil
}
