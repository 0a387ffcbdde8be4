package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/destiny-cli/internal/domain"
	"github.com/bnema/destiny-cli/internal/ports"
	portmocks "github.com/bnema/destiny-cli/internal/ports/mocks"
)

const credentialKey = "dst/bungie"

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time                         { return c.now }
func (c fixedClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (c fixedClock) NewTicker(d time.Duration) ports.Ticker {
	return ports.SystemClock{}.NewTicker(d)
}

type refresherFunc func(ctx context.Context, refreshToken string) (domain.TokenSet, error)

func (f refresherFunc) Refresh(ctx context.Context, refreshToken string) (domain.TokenSet, error) {
	return f(ctx, refreshToken)
}

var providerNow = time.Date(2015, 9, 22, 12, 0, 0, 0, time.UTC)

func TestTokenProviderReturnsFreshToken(t *testing.T) {
	t.Parallel()

	store := portmocks.NewMockCredentialStore(t)
	stored := domain.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresAt: providerNow.Add(time.Hour).Unix()}
	store.EXPECT().Get(mock.Anything, credentialKey).Return(stored, nil).Once()

	provider := NewTokenProvider(store, nil, credentialKey, "api-key", fixedClock{now: providerNow})
	tokens, err := provider.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stored, tokens)
	assert.Equal(t, "api-key", provider.APIKey())
}

func TestTokenProviderRefreshesExpiringToken(t *testing.T) {
	t.Parallel()

	store := portmocks.NewMockCredentialStore(t)
	stored := domain.TokenSet{AccessToken: "at", RefreshToken: "rt", MembershipID: "9", ExpiresAt: providerNow.Add(30 * time.Second).Unix()}
	store.EXPECT().Get(mock.Anything, credentialKey).Return(stored, nil).Once()
	want := domain.TokenSet{AccessToken: "at2", RefreshToken: "rt", MembershipID: "9", ExpiresIn: 3600, ExpiresAt: providerNow.Add(time.Hour).Unix()}
	store.EXPECT().Put(mock.Anything, credentialKey, want).Return(nil).Once()

	refresher := refresherFunc(func(_ context.Context, refreshToken string) (domain.TokenSet, error) {
		assert.Equal(t, "rt", refreshToken)
		return domain.TokenSet{AccessToken: "at2", ExpiresIn: 3600}, nil
	})

	provider := NewTokenProvider(store, refresher, credentialKey, "api-key", fixedClock{now: providerNow})
	tokens, err := provider.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, tokens)
}

func TestTokenProviderRejectedRefreshRequiresLogin(t *testing.T) {
	t.Parallel()

	store := portmocks.NewMockCredentialStore(t)
	stored := domain.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresAt: providerNow.Add(-time.Hour).Unix()}
	store.EXPECT().Get(mock.Anything, credentialKey).Return(stored, nil).Once()

	refresher := refresherFunc(func(context.Context, string) (domain.TokenSet, error) {
		return domain.TokenSet{}, ErrRefreshTokenInvalid
	})

	provider := NewTokenProvider(store, refresher, credentialKey, "api-key", fixedClock{now: providerNow})
	_, err := provider.Token(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestTokenProviderExpiredWithoutRefreshToken(t *testing.T) {
	t.Parallel()

	store := portmocks.NewMockCredentialStore(t)
	store.EXPECT().Get(mock.Anything, credentialKey).Return(domain.TokenSet{AccessToken: "at", ExpiresAt: providerNow.Unix()}, nil).Once()

	provider := NewTokenProvider(store, nil, credentialKey, "api-key", fixedClock{now: providerNow})
	_, err := provider.Token(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}

func TestTokenProviderPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	store := portmocks.NewMockCredentialStore(t)
	store.EXPECT().Get(mock.Anything, credentialKey).Return(domain.TokenSet{}, errors.New("disk on fire")).Once()

	provider := NewTokenProvider(store, nil, credentialKey, "api-key", fixedClock{now: providerNow})
	_, err := provider.Token(context.Background())
	assert.ErrorContains(t, err, "load credentials: disk on fire")
}

func TestTokenProviderSaveAndForget(t *testing.T) {
	t.Parallel()

	store := portmocks.NewMockCredentialStore(t)
	store.EXPECT().Put(mock.Anything, credentialKey, domain.TokenSet{
		AccessToken: "at",
		ExpiresIn:   3600,
		ExpiresAt:   providerNow.Add(time.Hour).Unix(),
	}).Return(nil).Once()
	store.EXPECT().Delete(mock.Anything, credentialKey).Return(nil).Once()

	provider := NewTokenProvider(store, nil, credentialKey, "api-key", fixedClock{now: providerNow})
	require.NoError(t, provider.Save(context.Background(), domain.TokenSet{AccessToken: "at", ExpiresIn: 3600}))
	require.NoError(t, provider.Forget(context.Background()))
}
