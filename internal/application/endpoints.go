package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/bnema/destiny-cli/internal/domain"
)

// BungieUser is the subset of User/GetBungieNetUser the client relies on.
type BungieUser struct {
	PSNID    string `json:"psnId"`
	GamerTag string `json:"gamerTag"`
	User     struct {
		MembershipID string `json:"membershipId"`
		DisplayName  string `json:"displayName"`
	} `json:"user"`
}

type Membership struct {
	MembershipType int    `json:"membershipType"`
	MembershipID   string `json:"membershipId"`
	DisplayName    string `json:"displayName"`
}

// UserEndpoint holds the account lookups the bootstrap is made of. They all
// bypass the readiness gate.
type UserEndpoint struct {
	client *Client
}

// Get fetches the Bungie.net user and adopts its console identity. A PSN id
// wins over an Xbox gamertag.
func (e *UserEndpoint) Get(ctx context.Context) (BungieUser, error) {
	data, err := e.client.Send(ctx, Request{Path: []string{"User", "GetBungieNetUser"}, Bypass: true})
	if err != nil {
		return BungieUser{}, err
	}
	if isEmptyPayload(data) {
		return BungieUser{}, errors.New("failed to lookup user, no details returned")
	}

	var user BungieUser
	if err := json.Unmarshal(data, &user); err != nil {
		return BungieUser{}, fmt.Errorf("decode bungie user: %w", err)
	}

	switch {
	case user.PSNID != "":
		e.client.setIdentity(domain.PlatformPlayStation, user.PSNID)
	case user.GamerTag != "":
		e.client.setIdentity(domain.PlatformXbox, user.GamerTag)
	}
	return user, nil
}

func (e *UserEndpoint) Search(ctx context.Context, platform domain.Platform, username string) ([]Membership, error) {
	data, err := e.client.Send(ctx, Request{
		Path:   []string{"Destiny", "SearchDestinyPlayer", strconv.Itoa(platform.MembershipType()), username},
		Bypass: true,
	})
	if err != nil {
		return nil, err
	}
	if isEmptyPayload(data) {
		return nil, nil
	}

	var memberships []Membership
	if err := json.Unmarshal(data, &memberships); err != nil {
		return nil, fmt.Errorf("decode memberships: %w", err)
	}
	return memberships, nil
}

// Account returns the "data" object of the account summary, the payload
// Characters.Set understands.
func (e *UserEndpoint) Account(ctx context.Context, platform domain.Platform, membershipID string) (json.RawMessage, error) {
	data, err := e.client.Send(ctx, Request{
		Path:   []string{"Destiny", strconv.Itoa(platform.MembershipType()), "Account", membershipID, "Summary"},
		Filter: "data",
		Bypass: true,
	})
	if err != nil {
		return nil, err
	}
	if isEmptyPayload(data) {
		return nil, errors.New("account summary has no data")
	}
	return data, nil
}

// CharacterEndpoint wraps the per-character resources. Calls wait for the
// session to be ready.
type CharacterEndpoint struct {
	client *Client
}

func (e *CharacterEndpoint) Summary(ctx context.Context, id domain.CharacterID) (json.RawMessage, error) {
	return e.get(ctx, id, "")
}

func (e *CharacterEndpoint) Inventory(ctx context.Context, id domain.CharacterID) (json.RawMessage, error) {
	return e.get(ctx, id, "Inventory")
}

func (e *CharacterEndpoint) Activities(ctx context.Context, id domain.CharacterID) (json.RawMessage, error) {
	return e.get(ctx, id, "Activities")
}

func (e *CharacterEndpoint) Progression(ctx context.Context, id domain.CharacterID) (json.RawMessage, error) {
	return e.get(ctx, id, "Progression")
}

func (e *CharacterEndpoint) Advisors(ctx context.Context, id domain.CharacterID) (json.RawMessage, error) {
	return e.get(ctx, id, "Advisors")
}

func (e *CharacterEndpoint) get(ctx context.Context, id domain.CharacterID, resource string) (json.RawMessage, error) {
	if id == "" {
		return nil, errors.New("character id is required")
	}
	path := []string{"Destiny", "{platform}", "Account", "{id}", "Character", string(id)}
	if resource != "" {
		path = append(path, resource)
	}
	return e.client.Send(ctx, Request{Path: path, Filter: "data"})
}

func isEmptyPayload(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
