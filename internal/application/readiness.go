package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/destiny-cli/internal/domain"
)

// cycle is one bootstrap run. done is closed exactly once, after err is set.
type cycle struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newCycle() *cycle {
	return &cycle{done: make(chan struct{})}
}

func (c *cycle) resolve(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// readiness gates requests until a bootstrap cycle completes.
type readiness struct {
	mu      sync.Mutex
	state   domain.ReadyState
	current *cycle // running cycle, nil when not loading
	pending *cycle // collects waiters for the next "refreshed"
	last    *cycle
	closed  bool
}

func newReadiness() *readiness {
	return &readiness{state: domain.ReadyStateClosed, pending: newCycle()}
}

func (r *readiness) State() domain.ReadyState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// begin moves to LOADING. Calling it while already loading returns the
// running cycle.
func (r *readiness) begin() (*cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrClientClosed
	}
	if r.state == domain.ReadyStateLoading && r.current != nil {
		return r.current, nil
	}
	r.current = r.pending
	r.pending = newCycle()
	r.state = domain.ReadyStateLoading
	return r.current, nil
}

// finish ends c with err, releasing everyone waiting on it. It returns the
// outcome actually recorded, ErrClientClosed once the client was closed.
func (r *readiness) finish(c *cycle, err error) error {
	r.mu.Lock()
	if r.current == c {
		r.current = nil
	}
	switch {
	case r.closed:
		err = domain.ErrClientClosed
	case err == nil:
		r.state = domain.ReadyStateComplete
	default:
		r.state = domain.ReadyStateClosed
	}
	r.last = c
	r.mu.Unlock()

	c.resolve(err)
	return err
}

func (r *readiness) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != domain.ReadyStateLoading {
		r.state = domain.ReadyStateClosed
	}
}

// gate blocks until the session is complete. A caller arriving while the
// session is not complete waits for the next cycle to end and gets its error.
func (r *readiness) gate(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return domain.ErrClientClosed
		}
		if r.state == domain.ReadyStateComplete {
			r.mu.Unlock()
			return nil
		}
		next := r.current
		if next == nil {
			next = r.pending
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-next.done:
		}
		if next.err != nil {
			return next.err
		}
	}
}

// wait returns the outcome of the running cycle, or of the last finished one
// when nothing is running.
func (r *readiness) wait(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.ErrClientClosed
	}
	switch {
	case r.state == domain.ReadyStateComplete:
		r.mu.Unlock()
		return nil
	case r.current != nil:
		c := r.current
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return c.err
		}
	case r.last != nil && r.last.err != nil:
		err := r.last.err
		r.mu.Unlock()
		return err
	default:
		r.mu.Unlock()
		return fmt.Errorf("%w: state %s", domain.ErrNotReady, domain.ReadyStateClosed)
	}
}

// close fails every waiter with ErrClientClosed.
func (r *readiness) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.state = domain.ReadyStateClosed
	pending := []*cycle{r.pending}
	if r.current != nil {
		pending = append(pending, r.current)
	}
	r.current = nil
	r.mu.Unlock()

	for _, c := range pending {
		c.resolve(domain.ErrClientClosed)
	}
}
