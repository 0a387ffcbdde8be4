package application

import (
	"encoding/json"
	"sync"
)

// RequestKey identifies identical work: same method, same fully resolved URL.
type RequestKey struct {
	Method string
	URL    string
}

type Callback func(data json.RawMessage, err error)

// Ticket identifies one waiter so it can be removed without resolving the others.
type Ticket uint64

type waiter struct {
	ticket Ticket
	fn     Callback
}

type pendingEntry struct {
	waiters []waiter
	// inFlight is false after the leader detached to wait out a throttle.
	inFlight bool
}

// RequestQueue collapses concurrent identical requests into one network call.
type RequestQueue struct {
	mu      sync.Mutex
	next    Ticket
	entries map[RequestKey]*pendingEntry
}

func NewRequestQueue() *RequestQueue {
	return &RequestQueue{entries: map[RequestKey]*pendingEntry{}}
}

// Add registers fn as a waiter for key. It reports duplicate=false when the
// caller must issue the network call itself and later resolve it with Run.
func (q *RequestQueue) Add(key RequestKey, fn Callback) (Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.next++
	w := waiter{ticket: q.next, fn: fn}

	entry, ok := q.entries[key]
	if !ok {
		q.entries[key] = &pendingEntry{waiters: []waiter{w}, inFlight: true}
		return w.ticket, false
	}

	entry.waiters = append(entry.waiters, w)
	if !entry.inFlight {
		entry.inFlight = true
		return w.ticket, false
	}

	return w.ticket, true
}

// Run resolves every waiter for key, in the order they were added, and drops
// the entry. It reports whether an entry existed.
func (q *RequestQueue) Run(key RequestKey, data json.RawMessage, err error) bool {
	q.mu.Lock()
	entry, ok := q.entries[key]
	if ok {
		delete(q.entries, key)
	}
	q.mu.Unlock()

	if !ok {
		return false
	}
	for _, w := range entry.waiters {
		w.fn(data, err)
	}
	return true
}

// Remove drops a single waiter without resolving the rest. The entry stops
// being in flight: the next Add for key becomes responsible for the call.
func (q *RequestQueue) Remove(key RequestKey, ticket Ticket) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[key]
	if !ok {
		return
	}
	for i, w := range entry.waiters {
		if w.ticket == ticket {
			entry.waiters = append(entry.waiters[:i], entry.waiters[i+1:]...)
			break
		}
	}
	entry.inFlight = false
	if len(entry.waiters) == 0 {
		delete(q.entries, key)
	}
}

// Pending returns the number of waiters queued for key.
func (q *RequestQueue) Pending(key RequestKey) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if entry, ok := q.entries[key]; ok {
		return len(entry.waiters)
	}
	return 0
}

// Len returns the number of keys with pending waiters.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Abandon resolves the waiters of key with err, but only when nobody is
// driving the call anymore. It reports whether it resolved anything.
func (q *RequestQueue) Abandon(key RequestKey, err error) bool {
	q.mu.Lock()
	entry, ok := q.entries[key]
	if !ok || entry.inFlight {
		q.mu.Unlock()
		return false
	}
	delete(q.entries, key)
	q.mu.Unlock()

	for _, w := range entry.waiters {
		w.fn(nil, err)
	}
	return true
}
