package adapter

import (
	"context"

	"github.com/Gaius-Lex/CV-voting/internal/auth"
)

// StorageProvider builds a StorageAdapter for a resolved user credential.
type StorageProvider interface {
	GetAdapter(ctx context.Context, cred *auth.Credential) (StorageAdapter, error)
}
