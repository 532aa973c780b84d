package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
	"github.com/Gaius-Lex/CV-voting/internal/auth"
	"github.com/Gaius-Lex/CV-voting/internal/ledger"
	"github.com/Gaius-Lex/CV-voting/internal/queue"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FolderHandler serves the documents, scores and queue of a review folder.
// The folder id is taken from PathParameters["folderId"].
type FolderHandler struct {
	drive  *DriveAccess
	ledger *ledger.Codec
	queue  *queue.Codec
	logger zerolog.Logger
}

func NewFolderHandler(drive *DriveAccess, logger zerolog.Logger) *FolderHandler {
	return &FolderHandler{
		drive:  drive,
		ledger: ledger.NewCodec(logger),
		queue:  queue.NewCodec(logger),
		logger: logger,
	}
}

func folderID(req events.APIGatewayProxyRequest) string {
	return req.PathParameters["folderId"]
}

var errMissingFolder = errors.New("missing folder id")

// storage opens the caller's drive for a folder request.
func (h *FolderHandler) storage(ctx context.Context, req events.APIGatewayProxyRequest) (adapter.StorageAdapter, error) {
	if folderID(req) == "" {
		return nil, errMissingFolder
	}
	return h.drive.Storage(ctx, req)
}

func (h *FolderHandler) storageFailure(req events.APIGatewayProxyRequest, err error, fallback string) events.APIGatewayProxyResponse {
	if errors.Is(err, errMissingFolder) {
		return errorResponse(http.StatusBadRequest, "Missing folder ID")
	}
	if !errors.Is(err, auth.ErrUnauthenticated) {
		h.logger.Error().Err(err).Str("user_id", UserID(req)).Str("folder_id", folderID(req)).Msg(fallback)
	}
	return failure(err, fallback)
}

// degraded logs a read that falls back to an empty document.
func (h *FolderHandler) degraded(req events.APIGatewayProxyRequest, err error, msg string) {
	ev := h.logger.Warn()
	if errors.Is(err, auth.ErrUnauthenticated) {
		ev = h.logger.Info()
	}
	ev.Err(err).Str("user_id", UserID(req)).Str("folder_id", folderID(req)).Msg(msg)
}

// ListDocuments lists the CVs in the folder.
func (h *FolderHandler) ListDocuments(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.storage(ctx, req)
	if err != nil {
		return h.storageFailure(req, err, "Failed to list documents"), nil
	}

	docs, err := adapter.ListDocuments(ctx, storage, folderID(req), ledger.FileName, queue.FileName)
	if err != nil {
		return h.storageFailure(req, err, "Failed to list documents"), nil
	}
	return jsonResponse(http.StatusOK, docs), nil
}

type scoresResponse struct {
	ledger.View
	Version string `json:"version"`
}

// GetScores returns the folder ledger. A missing session or an unreachable
// drive degrades to empty tables; only a missing folder id is an error.
func (h *FolderHandler) GetScores(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.storage(ctx, req)
	if err != nil {
		if errors.Is(err, errMissingFolder) {
			return h.storageFailure(req, err, "Failed to load scores"), nil
		}
		h.degraded(req, err, "returning empty scores")
		return jsonResponse(http.StatusOK, scoresResponse{View: ledger.NewView()}), nil
	}

	view, version := h.ledger.Load(ctx, storage, folderID(req))
	return jsonResponse(http.StatusOK, scoresResponse{View: view, Version: version}), nil
}

// SaveScores replaces the folder ledger with the posted tables. An If-Match
// header makes the save conditional on the version returned by GetScores.
func (h *FolderHandler) SaveScores(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var view ledger.View
	if err := decodeBody(req, &view); err != nil {
		return errorResponse(http.StatusBadRequest, detailInvalidBody), nil
	}

	storage, err := h.storage(ctx, req)
	if err != nil {
		return h.storageFailure(req, err, "Failed to save scores"), nil
	}

	if err := h.ledger.Save(ctx, storage, folderID(req), view, GetHeader(req, "If-Match")); err != nil {
		return h.storageFailure(req, err, "Failed to save scores"), nil
	}
	return messageResponse("Scores saved successfully"), nil
}

// ExportScores returns the ledger as an .xlsx workbook.
func (h *FolderHandler) ExportScores(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.storage(ctx, req)
	if err != nil {
		return h.storageFailure(req, err, "Failed to export scores"), nil
	}

	folder := folderID(req)
	view, _ := h.ledger.Load(ctx, storage, folder)

	names := map[string]string{}
	docs, err := adapter.ListDocuments(ctx, storage, folder, ledger.FileName, queue.FileName)
	if err != nil {
		h.logger.Warn().Err(err).Str("folder_id", folder).Msg("document names unavailable for export")
	}
	for _, d := range docs {
		names[d.ID] = d.Name
	}

	data, err := ledger.Export(view, names)
	if err != nil {
		h.logger.Error().Err(err).Str("folder_id", folder).Msg("failed to build workbook")
		return errorResponse(http.StatusInternalServerError, "Failed to export scores"), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode:      http.StatusOK,
		Body:            base64.StdEncoding.EncodeToString(data),
		IsBase64Encoded: true,
		Headers: map[string]string{
			"Content-Type":        xlsxContentType,
			"Content-Disposition": fmt.Sprintf("attachment; filename=\"scores-%s.xlsx\"", folder),
		},
	}, nil
}

type queueBody struct {
	Queue   []json.RawMessage `json:"queue"`
	Version string            `json:"version,omitempty"`
}

// GetQueue returns the folder's review order, empty without a session or on
// any drive failure.
func (h *FolderHandler) GetQueue(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	storage, err := h.storage(ctx, req)
	if err != nil {
		if errors.Is(err, errMissingFolder) {
			return h.storageFailure(req, err, "Failed to load queue"), nil
		}
		h.degraded(req, err, "returning empty queue")
		return jsonResponse(http.StatusOK, queueBody{Queue: []json.RawMessage{}}), nil
	}

	items, version := h.queue.Load(ctx, storage, folderID(req))
	return jsonResponse(http.StatusOK, queueBody{Queue: items, Version: version}), nil
}

// SaveQueue replaces the folder's review order.
func (h *FolderHandler) SaveQueue(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body queueBody
	if err := decodeBody(req, &body); err != nil {
		return errorResponse(http.StatusBadRequest, detailInvalidBody), nil
	}

	storage, err := h.storage(ctx, req)
	if err != nil {
		return h.storageFailure(req, err, "Failed to save queue"), nil
	}

	if err := h.queue.Save(ctx, storage, folderID(req), body.Queue, GetHeader(req, "If-Match")); err != nil {
		return h.storageFailure(req, err, "Failed to save queue"), nil
	}
	return messageResponse("Queue saved successfully"), nil
}
