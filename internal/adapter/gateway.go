package adapter

import (
	"context"
	"errors"
	"slices"

	"github.com/Gaius-Lex/CV-voting/internal/model"
)

// PDFMimeType is the only document type listed for review.
const PDFMimeType = "application/pdf"

// ListDocuments lists the PDF documents of a review folder, leaving out the
// reserved bookkeeping files named in exclude.
func ListDocuments(ctx context.Context, s StorageAdapter, folderID string, exclude ...string) ([]model.Document, error) {
	files, err := s.ListFiles(ctx, folderID, PDFMimeType)
	if err != nil {
		return nil, err
	}

	docs := make([]model.Document, 0, len(files))
	for _, f := range files {
		if slices.Contains(exclude, f.Name) {
			continue
		}
		docs = append(docs, model.Document{
			ID:             f.ID,
			Name:           f.Name,
			MIMEType:       f.MIMEType,
			WebViewLink:    f.WebViewLink,
			WebContentLink: f.WebContentLink,
		})
	}
	return docs, nil
}

// CheckConflict compares the version a client last saw with the current one.
// Returns true if they are different (conflict exists).
func CheckConflict(expected, current string) bool {
	return expected != current
}

// UploadOrReplace overwrites the file called name in folderID, or creates it.
// The provider swaps whole content in one revision, so readers see either the
// old or the new bytes.
//
// expectedETag is optional. When set, the write is refused with
// ErrPreconditionFailed unless the current file still has that version;
// when empty, the last writer wins.
func UploadOrReplace(ctx context.Context, s StorageAdapter, folderID, name string, content []byte, mimeType, expectedETag string) (*FileMetadata, error) {
	existing, err := s.FindFile(ctx, folderID, name)
	if errors.Is(err, ErrNotFound) {
		if expectedETag != "" {
			return nil, ErrPreconditionFailed
		}
		return s.CreateFile(ctx, folderID, name, content, mimeType)
	}
	if err != nil {
		return nil, err
	}

	if expectedETag != "" && CheckConflict(expectedETag, existing.ETag) {
		return nil, ErrPreconditionFailed
	}
	return s.SaveFile(ctx, existing.ID, content, mimeType, expectedETag)
}
