package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
)

// Codec loads and saves the ledger of a folder through a StorageAdapter.
type Codec struct {
	logger zerolog.Logger
}

func NewCodec(logger zerolog.Logger) *Codec {
	return &Codec{logger: logger}
}

// Load reads the folder's ledger and its current version. An absent ledger,
// or any drive failure, yields an empty view; reads never fail.
func (c *Codec) Load(ctx context.Context, s adapter.StorageAdapter, folderID string) (View, string) {
	meta, err := s.FindFile(ctx, folderID, FileName)
	if err != nil {
		if !errors.Is(err, adapter.ErrNotFound) {
			c.logger.Warn().Err(err).Str("folder_id", folderID).Msg("ledger lookup failed, returning empty scores")
		}
		return NewView(), ""
	}

	f, err := s.GetFile(ctx, meta.ID)
	if err != nil {
		c.logger.Warn().Err(err).Str("folder_id", folderID).Msg("ledger download failed, returning empty scores")
		return NewView(), ""
	}
	return Decode(f.Content), f.ETag
}

// Save replaces the folder's ledger with v. A non-empty expectedVersion makes
// the write conditional on the ledger not having changed since it was read.
func (c *Codec) Save(ctx context.Context, s adapter.StorageAdapter, folderID string, v View, expectedVersion string) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if _, err := adapter.UploadOrReplace(ctx, s, folderID, FileName, data, MimeType, expectedVersion); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}
