package domain

import (
	"fmt"
	"strings"
)

type Platform string

const (
	PlatformXbox        Platform = "Xbox"
	PlatformPlayStation Platform = "PlayStation"
)

// ParsePlatform accepts the display names as well as loose console names.
// Anything mentioning "xb" is treated as Xbox, everything else as PlayStation.
func ParsePlatform(raw string) (Platform, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case trimmed == "":
		return "", fmt.Errorf("platform is required")
	case trimmed == "1" || strings.Contains(trimmed, "xb"):
		return PlatformXbox, nil
	default:
		return PlatformPlayStation, nil
	}
}

// MembershipType is the numeric console identifier used in API paths.
func (p Platform) MembershipType() int {
	if p == PlatformXbox {
		return 1
	}
	return 2
}

// APIName returns the legacy console name some account endpoints still expect.
func (p Platform) APIName() string {
	if p == PlatformXbox {
		return "TigerXbox"
	}
	return "TigerPSN"
}

func (p Platform) String() string {
	return string(p)
}
