package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bnema/destiny-cli/internal/domain"
	"github.com/bnema/destiny-cli/internal/ports"
)

const (
	userPath    = "User/GetBungieNetUser/"
	searchPath  = "Destiny/SearchDestinyPlayer/2/Eden/"
	summaryPath = "Destiny/2/Account/123/Summary/"
)

type fakeResponse struct {
	status int
	body   string
	err    error
}

func success(response string) fakeResponse {
	return fakeResponse{status: http.StatusOK, body: `{"Response":` + response + `,"ErrorCode":1,"ThrottleSeconds":0,"ErrorStatus":"Success","Message":"Ok"}`}
}

func apiFailure(code int, status, message string) fakeResponse {
	body, _ := json.Marshal(map[string]any{"ErrorCode": code, "ErrorStatus": status, "Message": message, "ThrottleSeconds": 0})
	return fakeResponse{status: http.StatusOK, body: string(body)}
}

func throttled(seconds int) fakeResponse {
	body, _ := json.Marshal(map[string]any{"ErrorCode": errorCodeThrottle, "ErrorStatus": "ThrottleLimitExceededMomentarily", "ThrottleSeconds": seconds})
	return fakeResponse{status: http.StatusOK, body: string(body)}
}

// fakeTransport answers by API path (relative to the Platform root). The last
// scripted response of a route repeats.
type fakeTransport struct {
	mu     sync.Mutex
	routes map[string][]fakeResponse
	holds  map[string]chan struct{}
	calls  []ports.TransportRequest
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{routes: map[string][]fakeResponse{}, holds: map[string]chan struct{}{}}
}

func (t *fakeTransport) on(path string, responses ...fakeResponse) *fakeTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[path] = responses
	return t
}

// hold blocks every call to path until the returned release is called.
func (t *fakeTransport) hold(path string) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan struct{})
	t.holds[path] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.holds, path)
			t.mu.Unlock()
			close(ch)
		})
	}
}

func (t *fakeTransport) Do(ctx context.Context, req ports.TransportRequest) (ports.TransportResponse, error) {
	path := apiPath(req.URL)

	t.mu.Lock()
	t.calls = append(t.calls, req)
	hold := t.holds[path]
	t.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ports.TransportResponse{}, ctx.Err()
		}
	}

	t.mu.Lock()
	responses := t.routes[path]
	var resp fakeResponse
	switch len(responses) {
	case 0:
		resp = fakeResponse{status: http.StatusNotFound, body: "not found"}
	case 1:
		resp = responses[0]
	default:
		resp = responses[0]
		t.routes[path] = responses[1:]
	}
	t.mu.Unlock()

	if resp.err != nil {
		return ports.TransportResponse{}, resp.err
	}
	return ports.TransportResponse{StatusCode: resp.status, Body: []byte(resp.body)}, nil
}

func (t *fakeTransport) count(path string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, call := range t.calls {
		if apiPath(call.URL) == path {
			n++
		}
	}
	return n
}

func (t *fakeTransport) last(path string) ports.TransportRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.calls) - 1; i >= 0; i-- {
		if apiPath(t.calls[i].URL) == path {
			return t.calls[i]
		}
	}
	return ports.TransportRequest{}
}

func apiPath(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return strings.TrimPrefix(parsed.Path, "/Platform/")
}

type fakeTokens struct {
	mu      sync.Mutex
	token   domain.TokenSet
	err     error
	forgets int
}

func (f *fakeTokens) Token(context.Context) (domain.TokenSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.err
}

func (f *fakeTokens) APIKey() string {
	return "api-key"
}

func (f *fakeTokens) Forget(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgets++
	return nil
}

func (f *fakeTokens) forgotten() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forgets
}

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	afters  []chan time.Time
	delays  []time.Duration
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2015, 9, 22, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.afters = append(c.afters, ch)
	c.delays = append(c.delays, d)
	return ch
}

func (c *fakeClock) NewTicker(time.Duration) ports.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	ticker := &fakeTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, ticker)
	return ticker
}

func (c *fakeClock) pendingAfters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.afters)
}

// fire releases every pending After.
func (c *fakeClock) fire() {
	c.mu.Lock()
	afters := c.afters
	c.afters = nil
	now := c.now
	c.mu.Unlock()
	for _, ch := range afters {
		ch <- now
	}
}

func (c *fakeClock) waited() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

func (c *fakeClock) ticker(i int) *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[i]
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

func (t *fakeTicker) tick() {
	select {
	case t.ch <- time.Now():
	default:
	}
}

const edenSummary = `{"data":{"membershipId":"123","characters":[` +
	`{"characterBase":{"characterId":"c1","dateLastPlayed":"2015-09-20T10:00:00Z"}},` +
	`{"characterBase":{"characterId":"c2","dateLastPlayed":"2015-09-21T10:00:00Z"}}]}}`

// edenTransport scripts a successful bootstrap for PSN user Eden, membership 123.
func edenTransport() *fakeTransport {
	return newFakeTransport().
		on(userPath, success(`{"psnId":"Eden","user":{"membershipId":"9","displayName":"eden"}}`)).
		on(searchPath, success(`[{"membershipId":"123","displayName":"Eden","membershipType":2}]`)).
		on(summaryPath, success(edenSummary))
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, event := range r.events {
		if event.Kind != EventChanged {
			out = append(out, event.Kind)
		}
	}
	return out
}

func (r *recorder) changes(field string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, event := range r.events {
		if event.Kind == EventChanged && event.Field == field {
			out = append(out, event)
		}
	}
	return out
}

type testClient struct {
	*Client
	transport *fakeTransport
	tokens    *fakeTokens
	clock     *fakeClock
	events    *recorder
}

func newTestClient(t *testing.T, transport *fakeTransport, configure ...func(*Options)) testClient {
	t.Helper()

	opts := DefaultOptions()
	for _, fn := range configure {
		fn(&opts)
	}
	tokens := &fakeTokens{token: domain.TokenSet{AccessToken: "access-token", TokenType: "Bearer"}}
	clock := newFakeClock()
	events := &recorder{}

	client, err := New(opts, Dependencies{Transport: transport, Tokens: tokens, Clock: clock, Observer: events.record})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return testClient{Client: client, transport: transport, tokens: tokens, clock: clock, events: events}
}

func readyClient(t *testing.T, transport *fakeTransport, configure ...func(*Options)) testClient {
	t.Helper()
	tc := newTestClient(t, transport, configure...)
	require.NoError(t, tc.WaitReady(context.Background()))
	return tc
}
