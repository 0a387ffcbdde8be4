package domain

import "time"

type ReadyState int

const (
	ReadyStateClosed ReadyState = iota + 1
	ReadyStateLoading
	ReadyStateComplete
)

func (s ReadyState) String() string {
	switch s {
	case ReadyStateClosed:
		return "closed"
	case ReadyStateLoading:
		return "loading"
	case ReadyStateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Session is the identity the client resolved during bootstrap.
// MembershipID is only set while State is ReadyStateComplete.
type Session struct {
	Platform     Platform
	Username     string
	MembershipID string
	State        ReadyState
}

func (s Session) Ready() bool {
	return s.State == ReadyStateComplete && s.MembershipID != ""
}

// SessionSnapshot is the last known session, persisted between CLI runs.
type SessionSnapshot struct {
	Platform     Platform
	Username     string
	MembershipID string
	Characters   []CharacterSummary
	SavedAt      time.Time
}

type CharacterSummary struct {
	ID         CharacterID
	LastPlayed time.Time
}
