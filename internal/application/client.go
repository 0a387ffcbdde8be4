package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bnema/destiny-cli/internal/domain"
	"github.com/bnema/destiny-cli/internal/ports"
)

const bootstrapFailureReason = "failed to retrieve account information from the bungie api"

// Client is the entry point to the Bungie API. It owns the session identity,
// gates requests until the bootstrap completed and collapses identical
// in-flight requests.
type Client struct {
	opts      Options
	transport ports.Transport
	tokens    ports.TokenProvider
	clock     ports.Clock
	logger    *slog.Logger
	throttle  ThrottlePolicy

	mu      sync.RWMutex
	session domain.Session

	queue  *RequestQueue
	ready  *readiness
	events observers
	bootMu sync.Mutex

	User       *UserEndpoint
	Character  *CharacterEndpoint
	Characters *Characters
	Vault      *Vault

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a client and starts the bootstrap in the background. Use
// WaitReady to block until it finished.
func New(opts Options, deps Dependencies) (*Client, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	c := &Client{
		opts:      opts,
		transport: deps.Transport,
		tokens:    deps.Tokens,
		clock:     clock,
		logger:    opts.Logger,
		throttle:  ThrottlePolicy{MaxRetries: opts.MaxThrottleRetries},
		session:   domain.Session{Platform: opts.Platform, Username: opts.Username},
		queue:     NewRequestQueue(),
		ready:     newReadiness(),
	}
	if deps.Observer != nil {
		c.events.subscribe(deps.Observer)
	}

	c.User = &UserEndpoint{client: c}
	c.Character = &CharacterEndpoint{client: c}
	c.Characters = newCharacters(c, clock, c.logger, c.events.emit)
	c.Vault = newVault(c, clock, opts.TTL)

	c.ctx, c.cancel = context.WithCancel(context.Background())

	first, err := c.ready.begin()
	if err != nil {
		return nil, err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.bootMu.Lock()
		defer c.bootMu.Unlock()
		select {
		case <-first.done:
			return
		default:
		}
		_ = c.run(c.ctx, first)
	}()

	c.Characters.start(opts.CharacterRefreshInterval)

	return c, nil
}

// Session returns a snapshot of the current identity.
func (c *Client) Session() domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	session := c.session
	session.State = c.ready.State()
	return session
}

func (c *Client) Options() Options {
	return c.opts
}

// Subscribe registers fn for every event and returns a function removing it.
func (c *Client) Subscribe(fn func(Event)) func() {
	return c.events.subscribe(fn)
}

// WaitReady blocks until the running bootstrap finished and returns its
// outcome. With no bootstrap running it reports the state right away.
func (c *Client) WaitReady(ctx context.Context) error {
	return c.ready.wait(ctx)
}

// Refresh runs the bootstrap again: user lookup, membership lookup, roster.
// Close cancels a Refresh in progress.
func (c *Client) Refresh(ctx context.Context) error {
	c.bootMu.Lock()
	defer c.bootMu.Unlock()

	cyc, err := c.ready.begin()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	return c.run(ctx, cyc)
}

// Reset clears the session and the character roster. A hard reset also
// drops the persisted credentials.
func (c *Client) Reset(ctx context.Context, hard bool) error {
	c.bootMu.Lock()
	defer c.bootMu.Unlock()

	return c.reset(ctx, hard)
}

// Close stops the roster polling and fails every gated caller.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.ready.close()
		c.cancel()
		c.Characters.stop()
	})
	c.wg.Wait()
	return nil
}

func (c *Client) run(ctx context.Context, cyc *cycle) error {
	if err := c.reset(ctx, false); err != nil {
		c.logger.Warn("soft reset failed", "error", err)
	}
	c.events.emit(Event{Kind: EventRefresh})
	c.logger.Debug("bootstrap started")

	membershipID, err := c.bootstrap(ctx)
	if err != nil {
		bootErr := &BootstrapError{Reason: bootstrapFailureReason, Action: ActionLogin, Err: err}
		c.logger.Warn("bootstrap failed", "error", err)

		// A cancelled bootstrap says nothing about the credentials.
		hard := ctx.Err() == nil
		if resetErr := c.reset(ctx, hard); resetErr != nil {
			c.logger.Warn("hard reset after bootstrap failure failed", "error", resetErr)
		}
		prev := c.Session()
		finishErr := c.ready.finish(cyc, bootErr)
		c.emitChanges(prev, c.Session())
		c.events.emit(Event{Kind: EventError, Err: finishErr})
		c.events.emit(Event{Kind: EventRefreshed, Err: finishErr})
		return finishErr
	}

	prev := c.Session()
	c.mu.Lock()
	// The id is only committed when the cycle really completes: a Close
	// racing the bootstrap leaves the session closed and without an id.
	finishErr := c.ready.finish(cyc, nil)
	if finishErr == nil {
		c.session.MembershipID = membershipID
	}
	c.mu.Unlock()
	c.emitChanges(prev, c.Session())

	if finishErr != nil {
		c.logger.Debug("bootstrap finished after close", "error", finishErr)
		c.events.emit(Event{Kind: EventRefreshed, Err: finishErr})
		return finishErr
	}

	c.logger.Debug("bootstrap complete", "membership_id", membershipID)
	c.events.emit(Event{Kind: EventRefreshed})
	return nil
}

func (c *Client) bootstrap(ctx context.Context) (string, error) {
	if _, err := c.User.Get(ctx); err != nil {
		return "", fmt.Errorf("fetch bungie user: %w", err)
	}

	session := c.Session()
	if session.Username == "" || session.Platform == "" {
		if c.opts.Username == "" || c.opts.Platform == "" {
			return "", errors.New("bungie user has no linked psn or xbox account")
		}
		c.setIdentity(c.opts.Platform, c.opts.Username)
		session = c.Session()
	}
	c.logger.Debug("bootstrap user resolved", "platform", session.Platform, "username", session.Username)

	memberships, err := c.User.Search(ctx, session.Platform, session.Username)
	if err != nil {
		return "", fmt.Errorf("search destiny player: %w", err)
	}
	if len(memberships) == 0 || memberships[0].MembershipID == "" {
		return "", fmt.Errorf("%w: %s on %s", domain.ErrMembershipNotFound, session.Username, session.Platform)
	}
	membershipID := memberships[0].MembershipID

	summary, err := c.User.Account(ctx, session.Platform, membershipID)
	if err != nil {
		return "", fmt.Errorf("fetch account summary: %w", err)
	}
	c.Characters.Set(summary)

	return membershipID, nil
}

func (c *Client) reset(ctx context.Context, hard bool) error {
	prev := c.Session()

	c.mu.Lock()
	c.session = domain.Session{}
	c.ready.reset()
	c.mu.Unlock()

	c.Characters.reset()
	c.Vault.reset()
	c.emitChanges(prev, c.Session())

	if !hard {
		return nil
	}
	if err := c.tokens.Forget(ctx); err != nil {
		return fmt.Errorf("forget credentials: %w", err)
	}
	return nil
}

func (c *Client) setIdentity(platform domain.Platform, username string) {
	prev := c.Session()

	c.mu.Lock()
	c.session.Platform = platform
	c.session.Username = username
	c.mu.Unlock()

	c.emitChanges(prev, c.Session())
}

func (c *Client) emitChanges(prev, next domain.Session) {
	changes := []struct {
		field    string
		from, to any
	}{
		{"platform", prev.Platform, next.Platform},
		{"username", prev.Username, next.Username},
		{"membership_id", prev.MembershipID, next.MembershipID},
		{"ready_state", prev.State, next.State},
	}
	for _, change := range changes {
		if change.from == change.to {
			continue
		}
		c.events.emit(Event{Kind: EventChanged, Field: change.field, From: change.from, To: change.to})
	}
}

func (c *Client) accountSummary(ctx context.Context, platform domain.Platform, membershipID string) (json.RawMessage, error) {
	return c.User.Account(ctx, platform, membershipID)
}
