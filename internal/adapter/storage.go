package adapter

import (
	"context"
	"time"
)

// FileMetadata represents metadata about a file stored in the cloud storage.
type FileMetadata struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	MIMEType       string    `json:"mimeType"`
	ModifiedTime   time.Time `json:"modifiedTime"`
	Size           int64     `json:"size"`
	ETag           string    `json:"etag"` // md5 of the content
	Parents        []string  `json:"parents,omitempty"`
	WebViewLink    string    `json:"webViewLink,omitempty"`
	WebContentLink string    `json:"webContentLink,omitempty"`
}

// File represents a file with its content.
type File struct {
	FileMetadata
	Content []byte `json:"content"`
}

// StorageAdapter is the drive gateway for one signed-in user. Implementations
// translate provider failures into ErrNotFound, ErrPreconditionFailed or
// ErrUnavailable.
type StorageAdapter interface {
	// ListFiles lists non-trashed files directly inside folderID.
	// An empty mimeType lists every type.
	ListFiles(ctx context.Context, folderID, mimeType string) ([]FileMetadata, error)

	// FindFile returns the most recently modified file called name in folderID.
	FindFile(ctx context.Context, folderID, name string) (*FileMetadata, error)

	// GetFile retrieves a file's content and metadata by its ID.
	GetFile(ctx context.Context, fileID string) (*File, error)

	// SaveFile replaces an existing file's content.
	// A non-empty etag is sent as If-Match; an empty etag forces the overwrite.
	SaveFile(ctx context.Context, fileID string, content []byte, mimeType, etag string) (*FileMetadata, error)

	// CreateFile creates a new file in the specified folder.
	CreateFile(ctx context.Context, folderID, name string, content []byte, mimeType string) (*FileMetadata, error)
}
