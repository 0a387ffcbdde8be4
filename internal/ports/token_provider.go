package ports

import (
	"context"

	"github.com/bnema/destiny-cli/internal/domain"
)

type TokenProvider interface {
	Token(ctx context.Context) (domain.TokenSet, error)
	APIKey() string
	// Forget drops any persisted grant so the next Token call fails until a new login.
	Forget(ctx context.Context) error
}
