package ports

import (
	"context"

	"github.com/bnema/destiny-cli/internal/domain"
)

type CredentialStore interface {
	Get(ctx context.Context, key string) (domain.TokenSet, error)
	Put(ctx context.Context, key string, tokens domain.TokenSet) error
	Delete(ctx context.Context, key string) error
}
