// Package queue persists a folder's review order as queue.txt.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
)

const (
	FileName = "queue.txt"
	MimeType = "text/plain"
)

// Encode writes the queue as a pretty-printed JSON array.
func Encode(items []json.RawMessage) ([]byte, error) {
	if items == nil {
		items = []json.RawMessage{}
	}
	return json.MarshalIndent(items, "", "  ")
}

// Decode parses queue content. Blank, invalid or non-array content yields an
// empty queue.
func Decode(data []byte) []json.RawMessage {
	items := []json.RawMessage{}
	if len(bytes.TrimSpace(data)) == 0 {
		return items
	}
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		return []json.RawMessage{}
	}
	return items
}

// Codec loads and saves the queue of a folder through a StorageAdapter.
type Codec struct {
	logger zerolog.Logger
}

func NewCodec(logger zerolog.Logger) *Codec {
	return &Codec{logger: logger}
}

// Load returns the queue and its version; failures degrade to an empty queue.
func (c *Codec) Load(ctx context.Context, s adapter.StorageAdapter, folderID string) ([]json.RawMessage, string) {
	meta, err := s.FindFile(ctx, folderID, FileName)
	if err != nil {
		if !errors.Is(err, adapter.ErrNotFound) {
			c.logger.Warn().Err(err).Str("folder_id", folderID).Msg("queue lookup failed, returning empty queue")
		}
		return []json.RawMessage{}, ""
	}

	f, err := s.GetFile(ctx, meta.ID)
	if err != nil {
		c.logger.Warn().Err(err).Str("folder_id", folderID).Msg("queue download failed, returning empty queue")
		return []json.RawMessage{}, ""
	}
	return Decode(f.Content), f.ETag
}

// Save replaces the folder's queue. See ledger.Codec.Save for expectedVersion.
func (c *Codec) Save(ctx context.Context, s adapter.StorageAdapter, folderID string, items []json.RawMessage, expectedVersion string) error {
	data, err := Encode(items)
	if err != nil {
		return fmt.Errorf("failed to encode queue: %w", err)
	}
	if _, err := adapter.UploadOrReplace(ctx, s, folderID, FileName, data, MimeType, expectedVersion); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	return nil
}
