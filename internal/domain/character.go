package domain

import (
	"encoding/json"
	"time"
)

type CharacterID string

// Character is one playable character. Raw holds the characterBase payload
// exactly as the API returned it.
type Character struct {
	ID         CharacterID
	LastPlayed time.Time
	Raw        json.RawMessage
}

// CharacterBase is the subset of characterBase the client interprets.
type CharacterBase struct {
	CharacterID    string    `json:"characterId"`
	DateLastPlayed time.Time `json:"dateLastPlayed"`
	PowerLevel     int       `json:"powerLevel"`
	ClassHash      uint32    `json:"classHash"`
	MinutesPlayed  string    `json:"minutesPlayedTotal"`
}

func (c Character) Base() (CharacterBase, error) {
	var base CharacterBase
	if len(c.Raw) == 0 {
		return base, nil
	}
	err := json.Unmarshal(c.Raw, &base)
	return base, err
}

func (c Character) Summary() CharacterSummary {
	return CharacterSummary{ID: c.ID, LastPlayed: c.LastPlayed}
}
