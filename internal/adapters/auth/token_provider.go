package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/destiny-cli/internal/domain"
	"github.com/bnema/destiny-cli/internal/ports"
)

const refreshSkew = time.Minute

type refresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.TokenSet, error)
}

// TokenProvider serves the stored grant, refreshing it shortly before it
// expires.
type TokenProvider struct {
	store  ports.CredentialStore
	tokens refresher
	key    string
	apiKey string
	now    func() time.Time

	mu sync.Mutex
}

var _ ports.TokenProvider = (*TokenProvider)(nil)

func NewTokenProvider(store ports.CredentialStore, tokens refresher, key string, apiKey string, clock ports.Clock) *TokenProvider {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &TokenProvider{store: store, tokens: tokens, key: key, apiKey: apiKey, now: clock.Now}
}

func (p *TokenProvider) APIKey() string {
	return p.apiKey
}

func (p *TokenProvider) Token(ctx context.Context) (domain.TokenSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.store.Get(ctx, p.key)
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("load credentials: %w", err)
	}

	now := p.now()
	if !current.ExpiringSoon(now, refreshSkew) {
		return current, nil
	}
	if !current.CanRefresh() || p.tokens == nil {
		return domain.TokenSet{}, fmt.Errorf("access token expired: %w", domain.ErrCredentialsNotFound)
	}

	refreshed, err := p.tokens.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenInvalid) {
			return domain.TokenSet{}, errors.Join(err, domain.ErrCredentialsNotFound)
		}
		return domain.TokenSet{}, fmt.Errorf("refresh access token: %w", err)
	}
	refreshed = refreshed.WithCalculatedExpiry(now)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = current.RefreshToken
	}
	if refreshed.MembershipID == "" {
		refreshed.MembershipID = current.MembershipID
	}

	if err := p.store.Put(ctx, p.key, refreshed); err != nil {
		return domain.TokenSet{}, fmt.Errorf("persist refreshed credentials: %w", err)
	}
	return refreshed, nil
}

// Save stores a freshly exchanged grant.
func (p *TokenProvider) Save(ctx context.Context, tokens domain.TokenSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Put(ctx, p.key, tokens.WithCalculatedExpiry(p.now())); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

func (p *TokenProvider) Forget(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
