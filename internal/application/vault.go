package application

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bnema/destiny-cli/internal/ports"
)

// Vault caches the account vault for a fixed TTL.
type Vault struct {
	client *Client
	clock  ports.Clock
	ttl    time.Duration

	mu         sync.Mutex
	items      json.RawMessage
	fetchedAt  time.Time
	generation uint64
}

func newVault(client *Client, clock ports.Clock, ttl time.Duration) *Vault {
	return &Vault{client: client, clock: clock, ttl: ttl}
}

// Items returns the cached vault while it is fresh and fetches it otherwise.
func (v *Vault) Items(ctx context.Context) (json.RawMessage, error) {
	v.mu.Lock()
	if v.items != nil && v.clock.Now().Sub(v.fetchedAt) < v.ttl {
		items := v.items
		v.mu.Unlock()
		return items, nil
	}
	v.mu.Unlock()

	return v.Refresh(ctx)
}

// Refresh fetches the vault regardless of the cache. A fetch that straddles
// a session reset is returned but not cached.
func (v *Vault) Refresh(ctx context.Context) (json.RawMessage, error) {
	v.mu.Lock()
	generation := v.generation
	v.mu.Unlock()

	data, err := v.client.Send(ctx, Request{
		Path:   []string{"Destiny", "{platform}", "MyAccount", "Vault"},
		Filter: "data",
	})
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if generation == v.generation {
		v.items = data
		v.fetchedAt = v.clock.Now()
	}
	return data, nil
}

func (v *Vault) reset() {
	v.mu.Lock()
	v.items = nil
	v.fetchedAt = time.Time{}
	v.generation++
	v.mu.Unlock()
}
