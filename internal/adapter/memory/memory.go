package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
	"github.com/Gaius-Lex/CV-voting/internal/auth"
)

const (
	maxDemoContentSize = 10 * 1024 * 1024 // 10MB, enough for scanned CVs
	maxDemoTitleLength = 255
	maxDemoItemCount   = 500
)

// MemoryAdapter implements adapter.StorageAdapter on an in-memory map.
// It stands in for Google Drive in DEV_MODE and in tests.
type MemoryAdapter struct {
	files map[string]*adapter.File
	mu    sync.RWMutex
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{files: make(map[string]*adapter.File)}
}

func etagOf(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

func inFolder(f *adapter.File, folderID string) bool {
	return slices.Contains(f.Parents, folderID)
}

func (m *MemoryAdapter) ListFiles(ctx context.Context, folderID, mimeType string) ([]adapter.FileMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := []adapter.FileMetadata{}
	for _, f := range m.files {
		if !inFolder(f, folderID) {
			continue
		}
		if mimeType != "" && f.MIMEType != mimeType {
			continue
		}
		files = append(files, f.FileMetadata)
	}
	slices.SortFunc(files, func(a, b adapter.FileMetadata) int {
		return strings.Compare(a.Name, b.Name)
	})
	return files, nil
}

func (m *MemoryAdapter) FindFile(ctx context.Context, folderID, name string) (*adapter.FileMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *adapter.FileMetadata
	for _, f := range m.files {
		if f.Name != name || !inFolder(f, folderID) {
			continue
		}
		if found == nil || f.ModifiedTime.After(found.ModifiedTime) {
			meta := f.FileMetadata
			found = &meta
		}
	}
	if found == nil {
		return nil, adapter.ErrNotFound
	}
	return found, nil
}

func (m *MemoryAdapter) GetFile(ctx context.Context, fileID string) (*adapter.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[fileID]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	return &adapter.File{
		FileMetadata: f.FileMetadata,
		Content:      slices.Clone(f.Content),
	}, nil
}

func (m *MemoryAdapter) SaveFile(ctx context.Context, fileID string, content []byte, mimeType, etag string) (*adapter.FileMetadata, error) {
	if len(content) > maxDemoContentSize {
		return nil, fmt.Errorf("content too large (max %d bytes)", maxDemoContentSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[fileID]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	if etag != "" && f.ETag != etag {
		return nil, adapter.ErrPreconditionFailed
	}

	f.Content = slices.Clone(content)
	f.ModifiedTime = time.Now()
	f.ETag = etagOf(content)
	f.Size = int64(len(content))
	if mimeType != "" {
		f.MIMEType = mimeType
	}
	meta := f.FileMetadata
	return &meta, nil
}

func (m *MemoryAdapter) CreateFile(ctx context.Context, folderID, name string, content []byte, mimeType string) (*adapter.FileMetadata, error) {
	if len(name) > maxDemoTitleLength {
		return nil, fmt.Errorf("name too long (max %d characters)", maxDemoTitleLength)
	}
	if len(content) > maxDemoContentSize {
		return nil, fmt.Errorf("content too large (max %d bytes)", maxDemoContentSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.files) >= maxDemoItemCount {
		return nil, fmt.Errorf("item limit reached (max %d items)", maxDemoItemCount)
	}

	id := uuid.New().String()
	f := &adapter.File{
		FileMetadata: adapter.FileMetadata{
			ID:             id,
			Name:           name,
			MIMEType:       mimeType,
			ModifiedTime:   time.Now(),
			Size:           int64(len(content)),
			ETag:           etagOf(content),
			Parents:        []string{folderID},
			WebViewLink:    "memory://" + id + "/view",
			WebContentLink: "memory://" + id + "/content",
		},
		Content: slices.Clone(content),
	}
	m.files[id] = f
	meta := f.FileMetadata
	return &meta, nil
}

// Provider hands every user the same shared adapter: folders are shared
// between reviewers, exactly as on Drive.
type Provider struct {
	store *MemoryAdapter
}

func NewProvider(store *MemoryAdapter) *Provider {
	if store == nil {
		store = NewMemoryAdapter()
	}
	return &Provider{store: store}
}

func (p *Provider) GetAdapter(ctx context.Context, cred *auth.Credential) (adapter.StorageAdapter, error) {
	return p.store, nil
}

// Store exposes the shared adapter for seeding demo data.
func (p *Provider) Store() *MemoryAdapter {
	return p.store
}
