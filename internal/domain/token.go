package domain

import (
	"strings"
	"time"
)

// TokenSet is a Bungie OAuth grant as persisted in the credential store.
type TokenSet struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
	ExpiresAt        int64  `json:"expires_at,omitempty"`
	RefreshExpiresIn int64  `json:"refresh_expires_in,omitempty"`
	MembershipID     string `json:"membership_id,omitempty"`
}

func (t TokenSet) WithCalculatedExpiry(now time.Time) TokenSet {
	if t.ExpiresIn > 0 {
		t.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).Unix()
	}
	return t
}

func (t TokenSet) ExpiringSoon(now time.Time, skew time.Duration) bool {
	if t.ExpiresAt <= 0 {
		return false
	}
	expiresAt := time.Unix(t.ExpiresAt, 0)
	return !expiresAt.After(now.Add(skew))
}

func (t TokenSet) CanRefresh() bool {
	return strings.TrimSpace(t.RefreshToken) != ""
}
