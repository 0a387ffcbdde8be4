// Package config loads dst settings from ~/.config/dst/config.toml and DST_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/destiny-cli/internal/adapters/auth"
	"github.com/bnema/destiny-cli/internal/application"
	"github.com/bnema/destiny-cli/internal/domain"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "DST"

	KeyAPI                = "api"
	KeyAPIKey             = "api_key"
	KeyPlatform           = "platform"
	KeyUsername           = "username"
	KeyTimeout            = "timeout"
	KeyTTL                = "ttl"
	KeyDefinitions        = "definitions"
	KeyLanguage           = "language"
	KeyRefreshInterval    = "refresh_interval"
	KeyMaxThrottleRetries = "max_throttle_retries"
	KeyHTTP2              = "http2"
	KeyOAuthClientID      = "oauth.client_id"
	KeyOAuthClientSecret  = "oauth.client_secret"
	KeyOAuthAuthorizeURL  = "oauth.authorize_url"
	KeyOAuthTokenURL      = "oauth.token_url"
	KeyOAuthListen        = "oauth.listen"
	KeySessionPath        = "session.path"
	KeyCredentialsDir     = "credentials.dir"
	KeyCredentialsBackend = "credentials.backend"
)

// Credential backends. Auto tries pass first and falls back to files.
const (
	BackendAuto = "auto"
	BackendPass = "pass"
	BackendFile = "file"
)

type OAuth struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	Listen       string
}

type Config struct {
	// Dir holds config.toml and, by default, the session file and credentials.
	Dir                string
	API                string
	APIKey             string
	Platform           domain.Platform
	Username           string
	Timeout            time.Duration
	TTL                time.Duration
	Definitions        bool
	Language           string
	RefreshInterval    time.Duration
	MaxThrottleRetries int
	HTTP2              bool
	OAuth              OAuth
	SessionPath        string
	CredentialsDir     string
	CredentialsBackend string
}

// Dir returns the config directory below home.
func Dir(home string) string {
	return filepath.Join(home, ".config", "dst")
}

// Load reads config.toml from Dir(home) when present and applies DST_*
// overrides. A missing file is not an error.
func Load(v *viper.Viper, home string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	dir := Dir(home)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Dir:                dir,
		API:                strings.TrimSpace(v.GetString(KeyAPI)),
		APIKey:             strings.TrimSpace(v.GetString(KeyAPIKey)),
		Username:           strings.TrimSpace(v.GetString(KeyUsername)),
		Timeout:            v.GetDuration(KeyTimeout),
		TTL:                v.GetDuration(KeyTTL),
		Definitions:        v.GetBool(KeyDefinitions),
		Language:           v.GetString(KeyLanguage),
		RefreshInterval:    v.GetDuration(KeyRefreshInterval),
		MaxThrottleRetries: v.GetInt(KeyMaxThrottleRetries),
		HTTP2:              v.GetBool(KeyHTTP2),
		OAuth: OAuth{
			ClientID:     v.GetString(KeyOAuthClientID),
			ClientSecret: v.GetString(KeyOAuthClientSecret),
			AuthorizeURL: v.GetString(KeyOAuthAuthorizeURL),
			TokenURL:     v.GetString(KeyOAuthTokenURL),
			Listen:       v.GetString(KeyOAuthListen),
		},
		SessionPath:        v.GetString(KeySessionPath),
		CredentialsDir:     v.GetString(KeyCredentialsDir),
		CredentialsBackend: strings.ToLower(strings.TrimSpace(v.GetString(KeyCredentialsBackend))),
	}

	if raw := v.GetString(KeyPlatform); strings.TrimSpace(raw) != "" {
		platform, err := domain.ParsePlatform(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", KeyPlatform, err)
		}
		cfg.Platform = platform
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault(KeyAPI, application.DefaultAPI)
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyPlatform, "")
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyTimeout, application.DefaultTimeout)
	v.SetDefault(KeyTTL, application.DefaultTTL)
	v.SetDefault(KeyDefinitions, true)
	v.SetDefault(KeyLanguage, application.DefaultLanguage)
	v.SetDefault(KeyRefreshInterval, application.DefaultCharacterRefreshInterval)
	v.SetDefault(KeyMaxThrottleRetries, application.DefaultMaxThrottleRetries)
	v.SetDefault(KeyHTTP2, true)
	v.SetDefault(KeyOAuthClientID, "")
	v.SetDefault(KeyOAuthClientSecret, "")
	v.SetDefault(KeyOAuthAuthorizeURL, auth.DefaultAuthorizeURL)
	v.SetDefault(KeyOAuthTokenURL, auth.DefaultTokenURL)
	v.SetDefault(KeyOAuthListen, "127.0.0.1:7777")
	v.SetDefault(KeySessionPath, filepath.Join(dir, "session.toml"))
	v.SetDefault(KeyCredentialsDir, filepath.Join(dir, "credentials"))
	v.SetDefault(KeyCredentialsBackend, BackendAuto)
}

func (c Config) Validate() error {
	var errs []error
	if c.API == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyAPI))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyTimeout))
	}
	if c.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyTTL))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyRefreshInterval))
	}
	switch c.CredentialsBackend {
	case BackendAuto, BackendPass, BackendFile:
	default:
		errs = append(errs, fmt.Errorf("%s must be one of auto, pass, file", KeyCredentialsBackend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ApplicationOptions maps the loaded settings onto client options.
func (c Config) ApplicationOptions() application.Options {
	opts := application.DefaultOptions()
	opts.API = c.API
	opts.Platform = c.Platform
	opts.Username = c.Username
	opts.Timeout = c.Timeout
	opts.TTL = c.TTL
	opts.Definitions = c.Definitions
	opts.Language = c.Language
	opts.CharacterRefreshInterval = c.RefreshInterval
	opts.MaxThrottleRetries = c.MaxThrottleRetries
	return opts
}
