package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Platform
		wantErr bool
	}{
		{name: "xbox display name", raw: "Xbox", want: PlatformXbox},
		{name: "xbox one", raw: "  xbone xb1 ", want: PlatformXbox},
		{name: "membership type", raw: "1", want: PlatformXbox},
		{name: "playstation", raw: "PlayStation", want: PlatformPlayStation},
		{name: "psn", raw: "psn", want: PlatformPlayStation},
		{name: "empty", raw: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlatform(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlatformAPINames(t *testing.T) {
	assert.Equal(t, 1, PlatformXbox.MembershipType())
	assert.Equal(t, 2, PlatformPlayStation.MembershipType())
	assert.Equal(t, "TigerXbox", PlatformXbox.APIName())
	assert.Equal(t, "TigerPSN", PlatformPlayStation.APIName())
}

func TestSessionReadyRequiresMembershipID(t *testing.T) {
	assert.False(t, Session{State: ReadyStateComplete}.Ready())
	assert.False(t, Session{MembershipID: "123", State: ReadyStateLoading}.Ready())
	assert.True(t, Session{MembershipID: "123", State: ReadyStateComplete}.Ready())
	assert.Equal(t, "loading", ReadyStateLoading.String())
	assert.Equal(t, "unknown", ReadyState(0).String())
}

func TestTokenSetExpiry(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	tokens := TokenSet{AccessToken: "a", ExpiresIn: 3600}.WithCalculatedExpiry(now)

	assert.Equal(t, now.Add(time.Hour).Unix(), tokens.ExpiresAt)
	assert.False(t, tokens.ExpiringSoon(now, time.Minute))
	assert.True(t, tokens.ExpiringSoon(now.Add(59*time.Minute+30*time.Second), time.Minute))
	assert.False(t, TokenSet{AccessToken: "a"}.ExpiringSoon(now, time.Minute))
	assert.False(t, tokens.CanRefresh())
}

func TestCharacterBaseDecodesRaw(t *testing.T) {
	character := Character{
		ID:  "c1",
		Raw: json.RawMessage(`{"characterId":"c1","dateLastPlayed":"2015-09-08T04:23:18Z","powerLevel":280}`),
	}

	base, err := character.Base()
	require.NoError(t, err)
	assert.Equal(t, "c1", base.CharacterID)
	assert.Equal(t, 280, base.PowerLevel)
	assert.Equal(t, 2015, base.DateLastPlayed.Year())
}
