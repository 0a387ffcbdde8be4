package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/destiny-cli/internal/adapters/credentials/file"
	passstore "github.com/bnema/destiny-cli/internal/adapters/credentials/pass"
	"github.com/bnema/destiny-cli/internal/domain"
	"github.com/bnema/destiny-cli/internal/ports"
)

// Store tries primary first and falls back when it fails or has no entry.
type Store struct {
	primary  ports.CredentialStore
	fallback ports.CredentialStore
}

var _ ports.CredentialStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary credential store is nil")
	errNilFallbackStore = errors.New("fallback credential store is nil")
)

func NewStore(primary ports.CredentialStore, fallback ports.CredentialStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}
	return &Store{primary: primary, fallback: fallback}, nil
}

func NewPassFirstWithFileFallback(fileRoot string) (*Store, error) {
	return NewStore(passstore.NewStore(), filestore.NewStore(fileRoot))
}

func (s *Store) Put(ctx context.Context, key string, tokens domain.TokenSet) error {
	err := s.primary.Put(ctx, key, tokens)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Put(ctx, key, tokens)
	if fallbackErr == nil {
		return nil
	}
	return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
}

func (s *Store) Get(ctx context.Context, key string) (domain.TokenSet, error) {
	tokens, err := s.primary.Get(ctx, key)
	if err == nil {
		return tokens, nil
	}
	if shouldSkipFallback(err) {
		return domain.TokenSet{}, err
	}

	tokens, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return tokens, nil
	}
	if errors.Is(err, domain.ErrCredentialsNotFound) && errors.Is(fallbackErr, domain.ErrCredentialsNotFound) {
		return domain.TokenSet{}, fmt.Errorf("credential %q: %w", key, domain.ErrCredentialsNotFound)
	}
	return domain.TokenSet{}, fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

// Delete removes the entry from both backends so a hard reset leaves no
// grant behind.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if shouldSkipFallback(err) {
		return err
	}
	if errors.Is(err, passstore.ErrUnavailable) {
		err = nil
	}

	fallbackErr := s.fallback.Delete(ctx, key)
	switch {
	case err == nil && fallbackErr == nil:
		return nil
	case fallbackErr == nil:
		return fmt.Errorf("primary backend delete failed: %w", err)
	case err == nil:
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	default:
		return errors.Join(
			fmt.Errorf("primary backend delete failed: %w", err),
			fmt.Errorf("fallback backend delete failed: %w", fallbackErr),
		)
	}
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
