package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version    int               `toml:"version"`
	Session    sessionSchema     `toml:"session"`
	Characters []characterSchema `toml:"characters,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported session schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

type sessionSchema struct {
	Platform     string `toml:"platform"`
	Username     string `toml:"username"`
	MembershipID string `toml:"membership_id"`
	SavedAt      string `toml:"saved_at"`
}

type characterSchema struct {
	ID         string `toml:"id"`
	LastPlayed string `toml:"last_played,omitempty"`
}
