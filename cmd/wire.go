package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"

	authadapter "github.com/bnema/destiny-cli/internal/adapters/auth"
	"github.com/bnema/destiny-cli/internal/adapters/credentials"
	chainstore "github.com/bnema/destiny-cli/internal/adapters/credentials/chain"
	filestore "github.com/bnema/destiny-cli/internal/adapters/credentials/file"
	passstore "github.com/bnema/destiny-cli/internal/adapters/credentials/pass"
	"github.com/bnema/destiny-cli/internal/adapters/render/roster"
	tomlrepo "github.com/bnema/destiny-cli/internal/adapters/repo/toml"
	httptransport "github.com/bnema/destiny-cli/internal/adapters/transport/http"
	"github.com/bnema/destiny-cli/internal/application"
	"github.com/bnema/destiny-cli/internal/config"
	"github.com/bnema/destiny-cli/internal/ports"
)

const defaultLoginTimeout = 5 * time.Minute

type app struct {
	cfg            config.Config
	logger         *slog.Logger
	logLevel       *slog.LevelVar
	credentials    ports.CredentialStore
	tokenClient    authadapter.TokenClient
	tokens         *authadapter.TokenProvider
	transport      ports.Transport
	sessions       ports.SessionRepository
	rosterRenderer func(roster.Roster, roster.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	v := viper.New()
	cfg, err := config.Load(v, homeDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logLevel := &slog.LevelVar{}
	logLevel.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	store, err := newCredentialStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire credential store: %w", err)
	}

	sessions, err := tomlrepo.NewSessionRepository(v, cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	transport, err := httptransport.New(httptransport.Options{HTTP2: cfg.HTTP2, IdleConnTimeout: 90 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("wire http transport: %w", err)
	}

	tokenClient := authadapter.TokenClient{
		TokenURL:       cfg.OAuth.TokenURL,
		ClientID:       cfg.OAuth.ClientID,
		ClientSecret:   cfg.OAuth.ClientSecret,
		APIKey:         cfg.APIKey,
		HTTPClient:     http.DefaultClient,
		RequestTimeout: cfg.Timeout,
	}

	return &app{
		cfg:            cfg,
		logger:         logger,
		logLevel:       logLevel,
		credentials:    store,
		tokenClient:    tokenClient,
		tokens:         authadapter.NewTokenProvider(store, tokenClient, credentials.DefaultKey, cfg.APIKey, ports.SystemClock{}),
		transport:      transport,
		sessions:       sessions,
		rosterRenderer: roster.Render,
		now:            time.Now,
	}, nil
}

func newCredentialStore(cfg config.Config) (ports.CredentialStore, error) {
	switch cfg.CredentialsBackend {
	case config.BackendFile:
		return filestore.NewStore(cfg.CredentialsDir), nil
	case config.BackendPass:
		return passstore.NewStore(), nil
	default:
		return chainstore.NewPassFirstWithFileFallback(cfg.CredentialsDir)
	}
}

// newClient starts a client bootstrap. Callers must Close it.
func (a *app) newClient() (*application.Client, error) {
	if a.cfg.APIKey == "" {
		return nil, errors.New("api_key is not configured: set it in ~/.config/dst/config.toml or DST_API_KEY")
	}

	opts := a.cfg.ApplicationOptions()
	opts.Logger = a.logger

	client, err := application.New(opts, application.Dependencies{
		Transport: a.transport,
		Tokens:    a.tokens,
		Clock:     ports.SystemClock{},
	})
	if err != nil {
		return nil, fmt.Errorf("create bungie client: %w", err)
	}
	return client, nil
}

// waitReady blocks until the bootstrap finished and turns a failed bootstrap
// into an error that tells the user what to do.
func waitReady(ctx context.Context, client *application.Client) error {
	err := client.WaitReady(ctx)
	if err == nil {
		return nil
	}

	var bootErr *application.BootstrapError
	if errors.As(err, &bootErr) && bootErr.Action == application.ActionLogin {
		return fmt.Errorf("%w (run `dst login` to sign in again)", err)
	}
	return err
}
