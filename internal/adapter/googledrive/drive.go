package googledrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
)

const fileFields = "id, name, mimeType, modifiedTime, size, md5Checksum, parents, webViewLink, webContentLink"

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quote makes a value safe inside a single-quoted Drive query literal.
func quote(v string) string {
	return "'" + queryEscaper.Replace(v) + "'"
}

func folderQuery(folderID string) string {
	return fmt.Sprintf("%s in parents and trashed = false", quote(folderID))
}

// DriveAdapter implements adapter.StorageAdapter for Google Drive.
type DriveAdapter struct {
	service *drive.Service
}

// NewDriveAdapter creates a new DriveAdapter.
// client should be an authenticated http.Client carrying the user's credentials.
func NewDriveAdapter(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*DriveAdapter, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}
	return &DriveAdapter{service: srv}, nil
}

func toMetadata(f *drive.File) adapter.FileMetadata {
	modTime, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return adapter.FileMetadata{
		ID:             f.Id,
		Name:           f.Name,
		MIMEType:       f.MimeType,
		ModifiedTime:   modTime,
		Size:           f.Size,
		ETag:           f.Md5Checksum,
		Parents:        f.Parents,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
	}
}

// ListFiles lists files in a folder, following every result page.
func (d *DriveAdapter) ListFiles(ctx context.Context, folderID, mimeType string) ([]adapter.FileMetadata, error) {
	q := folderQuery(folderID)
	if mimeType != "" {
		q += " and mimeType = " + quote(mimeType)
	}

	files := []adapter.FileMetadata{}
	err := d.service.Files.List().
		Q(q).
		Fields(googleapi.Field("nextPageToken, files("+fileFields+")")).
		OrderBy("name").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(r *drive.FileList) error {
			for _, f := range r.Files {
				files = append(files, toMetadata(f))
			}
			return nil
		})
	if err != nil {
		return nil, mapError("list files", err)
	}
	return files, nil
}

// FindFile returns the most recently modified file with the exact name.
func (d *DriveAdapter) FindFile(ctx context.Context, folderID, name string) (*adapter.FileMetadata, error) {
	q := folderQuery(folderID) + " and name = " + quote(name)
	r, err := d.service.Files.List().
		Q(q).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		OrderBy("modifiedTime desc").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError("find file", err)
	}
	if len(r.Files) == 0 {
		return nil, adapter.ErrNotFound
	}
	meta := toMetadata(r.Files[0])
	return &meta, nil
}

// GetFile retrieves a file's content and metadata by its ID.
func (d *DriveAdapter) GetFile(ctx context.Context, fileID string) (*adapter.File, error) {
	f, err := d.service.Files.Get(fileID).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError("get file metadata", err)
	}

	resp, err := d.service.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, mapError("download file", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read file content: %v: %w", err, adapter.ErrUnavailable)
	}

	return &adapter.File{FileMetadata: toMetadata(f), Content: content}, nil
}

// SaveFile updates an existing file's content.
func (d *DriveAdapter) SaveFile(ctx context.Context, fileID string, content []byte, mimeType, etag string) (*adapter.FileMetadata, error) {
	f := &drive.File{}
	var media []googleapi.MediaOption
	if mimeType != "" {
		media = append(media, googleapi.ContentType(mimeType))
	}
	call := d.service.Files.Update(fileID, f).
		Media(bytes.NewReader(content), media...).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields)).
		Context(ctx)

	// If etag is provided, use If-Match header for optimistic locking.
	if etag != "" {
		call.Header().Set("If-Match", etag)
	}

	res, err := call.Do()
	if err != nil {
		return nil, mapError("update file", err)
	}
	meta := toMetadata(res)
	return &meta, nil
}

// CreateFile creates a new file in the specified folder.
func (d *DriveAdapter) CreateFile(ctx context.Context, folderID, name string, content []byte, mimeType string) (*adapter.FileMetadata, error) {
	f := &drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{folderID},
	}
	var media []googleapi.MediaOption
	if mimeType != "" {
		media = append(media, googleapi.ContentType(mimeType))
	}
	res, err := d.service.Files.Create(f).
		Media(bytes.NewReader(content), media...).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError("create file", err)
	}
	meta := toMetadata(res)
	return &meta, nil
}

func mapError(op string, err error) error {
	switch {
	case isNotFound(err):
		return adapter.ErrNotFound
	case isPreconditionFailed(err):
		return adapter.ErrPreconditionFailed
	}
	return fmt.Errorf("unable to %s: %v: %w", op, err, adapter.ErrUnavailable)
}

func isPreconditionFailed(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusPreconditionFailed
	}
	return false
}

func isNotFound(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusNotFound
	}
	return false
}
