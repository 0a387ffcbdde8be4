// Package credentials holds the stores that persist Bungie OAuth grants.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/destiny-cli/internal/domain"
)

// DefaultKey is the entry the CLI keeps its single grant under.
const DefaultKey = "dst/bungie"

func Encode(tokens domain.TokenSet) (string, error) {
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return "", errors.New("access token is empty")
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return "", fmt.Errorf("encode token set: %w", err)
	}
	return string(data), nil
}

func Decode(raw string) (domain.TokenSet, error) {
	var tokens domain.TokenSet
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &tokens); err != nil {
		return domain.TokenSet{}, fmt.Errorf("decode token set: %w", err)
	}
	if tokens.AccessToken == "" {
		return domain.TokenSet{}, errors.New("decode token set: access token is empty")
	}
	return tokens, nil
}
