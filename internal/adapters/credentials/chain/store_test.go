package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	passstore "github.com/bnema/destiny-cli/internal/adapters/credentials/pass"
	"github.com/bnema/destiny-cli/internal/domain"
	portmocks "github.com/bnema/destiny-cli/internal/ports/mocks"
)

const key = "dst/bungie"

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mock.Anything, key).Return(domain.TokenSet{AccessToken: "from-pass"}, nil).Once()

	tokens, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", tokens.AccessToken)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mock.Anything, key).Return(domain.TokenSet{}, passstore.ErrUnavailable).Once()
	fallback.EXPECT().Get(mock.Anything, key).Return(domain.TokenSet{AccessToken: "from-file"}, nil).Once()

	tokens, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "from-file", tokens.AccessToken)
}

func TestStoreGetReportsMissingWhenNeitherBackendHasEntry(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mock.Anything, key).Return(domain.TokenSet{}, fmt.Errorf("pass: %w", domain.ErrCredentialsNotFound)).Once()
	fallback.EXPECT().Get(mock.Anything, key).Return(domain.TokenSet{}, fmt.Errorf("file: %w", domain.ErrCredentialsNotFound)).Once()

	_, err = store.Get(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
	assert.NotContains(t, err.Error(), "primary backend")
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mock.Anything, key).Return(domain.TokenSet{}, errors.New("pass failed")).Once()
	fallback.EXPECT().Get(mock.Anything, key).Return(domain.TokenSet{}, errors.New("file failed")).Once()

	_, err = store.Get(context.Background(), key)
	require.Error(t, err)
	assert.ErrorContains(t, err, "primary backend")
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "file failed")
}

func TestStoreGetSkipsFallbackOnCancellation(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mock.Anything, key).Return(domain.TokenSet{}, context.Canceled).Once()

	_, err = store.Get(context.Background(), key)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	tokens := domain.TokenSet{AccessToken: "at"}
	primary.EXPECT().Put(mock.Anything, key, tokens).Return(passstore.ErrUnavailable).Once()
	fallback.EXPECT().Put(mock.Anything, key, tokens).Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), key, tokens))
}

func TestStoreDeleteClearsBothBackends(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Delete(mock.Anything, key).Return(passstore.ErrUnavailable).Once()
	fallback.EXPECT().Delete(mock.Anything, key).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), key))
}

func TestStoreDeleteReportsFallbackFailure(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Delete(mock.Anything, key).Return(nil).Once()
	fallback.EXPECT().Delete(mock.Anything, key).Return(errors.New("read-only")).Once()

	err = store.Delete(context.Background(), key)
	assert.ErrorContains(t, err, "fallback backend delete failed: read-only")
}

func TestNewStoreRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, portmocks.NewMockCredentialStore(t))
	assert.ErrorIs(t, err, errNilPrimaryStore)
	_, err = NewStore(portmocks.NewMockCredentialStore(t), nil)
	assert.ErrorIs(t, err, errNilFallbackStore)
}
