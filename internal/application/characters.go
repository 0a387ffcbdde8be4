package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bnema/destiny-cli/internal/domain"
	"github.com/bnema/destiny-cli/internal/ports"
)

type summarySource interface {
	Session() domain.Session
	accountSummary(ctx context.Context, platform domain.Platform, membershipID string) (json.RawMessage, error)
}

type accountSummary struct {
	Characters *[]struct {
		CharacterBase json.RawMessage `json:"characterBase"`
	} `json:"characters"`
}

type characterIdentity struct {
	CharacterID    string `json:"characterId"`
	DateLastPlayed string `json:"dateLastPlayed"`
}

// Characters is the roster of the current account, most recently played
// first. Entries are updated in place when a later payload names the same id.
type Characters struct {
	source summarySource
	clock  ports.Clock
	logger *slog.Logger
	emit   func(Event)

	mu    sync.RWMutex
	items []*domain.Character
	// generation changes on every reset. Payloads fetched under an older
	// generation belong to a previous session and are dropped.
	generation uint64

	pollMu   sync.Mutex
	stopPoll context.CancelFunc
	polling  sync.WaitGroup
}

func newCharacters(source summarySource, clock ports.Clock, logger *slog.Logger, emit func(Event)) *Characters {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if emit == nil {
		emit = func(Event) {}
	}
	return &Characters{source: source, clock: clock, logger: logger, emit: emit}
}

// Refresh pulls the account summary and merges it. Without a complete
// session it does nothing.
func (c *Characters) Refresh(ctx context.Context) error {
	generation := c.currentGeneration()
	session := c.source.Session()
	if !session.Ready() {
		return nil
	}
	data, err := c.source.accountSummary(ctx, session.Platform, session.MembershipID)
	if err != nil {
		return err
	}
	c.merge(data, &generation)
	return nil
}

// Set merges an account summary payload. Malformed payloads are logged and
// otherwise ignored.
func (c *Characters) Set(payload json.RawMessage) {
	c.merge(payload, nil)
}

func (c *Characters) currentGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// merge applies payload unless generation is set and a reset happened since.
func (c *Characters) merge(payload json.RawMessage, generation *uint64) {
	var summary accountSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		c.logger.Debug("ignoring malformed account summary", "error", err)
		return
	}
	if summary.Characters == nil {
		c.logger.Debug("ignoring account summary without characters")
		return
	}

	c.mu.Lock()
	if generation != nil && *generation != c.generation {
		c.mu.Unlock()
		c.logger.Debug("dropping account summary fetched before a reset")
		return
	}
	for _, record := range *summary.Characters {
		var identity characterIdentity
		if len(record.CharacterBase) == 0 || json.Unmarshal(record.CharacterBase, &identity) != nil || identity.CharacterID == "" {
			c.logger.Debug("skipping character without characterBase")
			continue
		}
		id := domain.CharacterID(identity.CharacterID)
		lastPlayed := parseLastPlayed(identity.DateLastPlayed)

		if existing := c.find(id); existing != nil {
			existing.LastPlayed = lastPlayed
			existing.Raw = append(json.RawMessage(nil), record.CharacterBase...)
			continue
		}
		c.items = append(c.items, &domain.Character{
			ID:         id,
			LastPlayed: lastPlayed,
			Raw:        append(json.RawMessage(nil), record.CharacterBase...),
		})
	}
	sort.SliceStable(c.items, func(i, j int) bool {
		return c.items[i].LastPlayed.After(c.items[j].LastPlayed)
	})
	c.mu.Unlock()

	c.emit(Event{Kind: EventUpdate, Payload: payload})
}

func (c *Characters) find(id domain.CharacterID) *domain.Character {
	for _, character := range c.items {
		if character.ID == id {
			return character
		}
	}
	return nil
}

func (c *Characters) Find(id domain.CharacterID) (domain.Character, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if character := c.find(id); character != nil {
		return *character, true
	}
	return domain.Character{}, false
}

// Active returns the most recently played character.
func (c *Characters) Active() (domain.Character, bool) {
	return c.Get(0)
}

func (c *Characters) Get(index int) (domain.Character, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 0 || index >= len(c.items) {
		return domain.Character{}, false
	}
	return *c.items[index], true
}

func (c *Characters) All() []domain.Character {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Character, 0, len(c.items))
	for _, character := range c.items {
		out = append(out, *character)
	}
	return out
}

func (c *Characters) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Characters) reset() {
	c.mu.Lock()
	c.items = nil
	c.generation++
	c.mu.Unlock()
}

func (c *Characters) start(interval time.Duration) {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	if c.stopPoll != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.stopPoll = cancel
	ticker := c.clock.NewTicker(interval)

	c.polling.Add(1)
	go func() {
		defer c.polling.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
					c.logger.Debug("character refresh failed", "error", err)
				}
			}
		}
	}()
}

// stop ends the polling loop and waits for it to exit.
func (c *Characters) stop() {
	c.pollMu.Lock()
	cancel := c.stopPoll
	c.pollMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.polling.Wait()
}

func parseLastPlayed(raw string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
