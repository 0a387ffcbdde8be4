package application

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/destiny-cli/internal/domain"
	"github.com/bnema/destiny-cli/internal/ports"
)

const (
	DefaultAPI                      = "https://www.bungie.net/Platform/"
	DefaultTimeout                  = 30 * time.Second
	DefaultTTL                      = 5 * time.Minute
	DefaultLanguage                 = "en"
	DefaultCharacterRefreshInterval = 10 * time.Second
	DefaultMaxThrottleRetries       = 10
	DefaultUserAgent                = "dst"
)

// Options configure a Client. Zero durations and strings fall back to the
// defaults above. Definitions and MaxThrottleRetries have no zero-value
// fallback, so start from DefaultOptions when their defaults are wanted.
type Options struct {
	API      string
	Platform domain.Platform
	Username string
	Timeout  time.Duration
	// TTL is how long a fetched vault stays fresh.
	TTL         time.Duration
	Definitions bool
	Language    string

	CharacterRefreshInterval time.Duration
	// MaxThrottleRetries bounds throttle reschedules per call. Zero disables
	// them, negative means unlimited.
	MaxThrottleRetries int
	UserAgent          string
	Logger             *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		API:                      DefaultAPI,
		Timeout:                  DefaultTimeout,
		TTL:                      DefaultTTL,
		Definitions:              true,
		Language:                 DefaultLanguage,
		CharacterRefreshInterval: DefaultCharacterRefreshInterval,
		MaxThrottleRetries:       DefaultMaxThrottleRetries,
		UserAgent:                DefaultUserAgent,
	}
}

func (o *Options) applyDefaults() {
	if strings.TrimSpace(o.API) == "" {
		o.API = DefaultAPI
	}
	if !strings.HasSuffix(o.API, "/") {
		o.API += "/"
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.CharacterRefreshInterval <= 0 {
		o.CharacterRefreshInterval = DefaultCharacterRefreshInterval
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

func (o Options) validate() error {
	parsed, err := url.Parse(o.API)
	if err != nil {
		return fmt.Errorf("parse api url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("api url must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("api url host is required")
	}
	return nil
}

// Dependencies are the collaborators a Client talks through.
type Dependencies struct {
	Transport ports.Transport
	Tokens    ports.TokenProvider
	Clock     ports.Clock
	// Observer, when set, is subscribed before the first bootstrap starts.
	Observer func(Event)
}

func (d Dependencies) validate() error {
	if d.Transport == nil {
		return errors.New("transport is required")
	}
	if d.Tokens == nil {
		return errors.New("token provider is required")
	}
	return nil
}
