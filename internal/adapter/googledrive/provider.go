package googledrive

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
	"github.com/Gaius-Lex/CV-voting/internal/auth"
)

// Provider implements adapter.StorageProvider for Google Drive.
type Provider struct {
	opts []option.ClientOption
}

// NewProvider creates a new Google Drive provider. opts are appended to every
// Drive service it builds.
func NewProvider(opts ...option.ClientOption) *Provider {
	return &Provider{opts: opts}
}

// GetAdapter returns a DriveAdapter acting as the credential's user.
func (p *Provider) GetAdapter(ctx context.Context, cred *auth.Credential) (adapter.StorageAdapter, error) {
	if cred == nil {
		return nil, auth.ErrUnauthenticated
	}
	storage, err := NewDriveAdapter(ctx, cred.Client(ctx), p.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive adapter: %w", err)
	}
	return storage, nil
}
