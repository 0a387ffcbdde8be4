package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/bnema/destiny-cli/internal/ports"
)

// Request describes one Bungie API call.
type Request struct {
	// URL is an endpoint template relative to Options.API, or an absolute
	// URL. {id}, {username} and {platform} are filled from the session.
	URL string
	// Path is used when URL is empty. Segments are escaped after the
	// placeholders inside them were replaced.
	Path   []string
	Query  map[string]string
	Method string
	// Filter is a dotted path (e.g. "data.characters.0") extracted from
	// the envelope Response. A missing path yields a nil payload.
	Filter string
	// Bypass skips the readiness gate. Only the bootstrap needs it.
	Bypass bool
	Body   []byte
}

type envelope struct {
	Response        json.RawMessage `json:"Response"`
	ErrorCode       int             `json:"ErrorCode"`
	ThrottleSeconds int             `json:"ThrottleSeconds"`
	ErrorStatus     string          `json:"ErrorStatus"`
	Message         string          `json:"Message"`
}

type result struct {
	data json.RawMessage
	err  error
}

type outcome struct {
	data            json.RawMessage
	throttled       bool
	throttleSeconds int
}

// Send issues req once the session is ready and returns the (filtered)
// Response of the envelope. Identical concurrent calls share one exchange.
func (c *Client) Send(ctx context.Context, req Request) (json.RawMessage, error) {
	return c.send(ctx, req, 0)
}

func (c *Client) send(ctx context.Context, req Request, attempt int) (json.RawMessage, error) {
	if !req.Bypass {
		if err := c.ready.gate(ctx); err != nil {
			return nil, err
		}
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.format(req)
	if err != nil {
		return nil, err
	}
	key := RequestKey{Method: method, URL: target}

	results := make(chan result, 1)
	ticket, duplicate := c.queue.Add(key, func(data json.RawMessage, err error) {
		results <- result{data: data, err: err}
	})
	if duplicate {
		c.logger.Debug("joined in-flight request", "method", method, "url", target)
		return await(ctx, results)
	}

	out, err := c.dispatch(ctx, method, target, req)
	if err == nil && out.throttled {
		delay := c.throttle.Delay(out.throttleSeconds)
		if !c.throttle.Allow(attempt) {
			err = &ThrottleError{Attempts: attempt, Delay: delay}
		} else {
			c.queue.Remove(key, ticket)
			c.logger.Info("bungie api throttled request", "url", target, "delay", delay, "attempt", attempt+1)

			select {
			case <-ctx.Done():
				c.queue.Abandon(key, ctx.Err())
				return nil, ctx.Err()
			case <-c.clock.After(delay):
			}
			return c.send(ctx, req, attempt+1)
		}
	}

	c.queue.Run(key, out.data, err)
	return await(ctx, results)
}

func await(ctx context.Context, results <-chan result) (json.RawMessage, error) {
	select {
	case r := <-results:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) dispatch(ctx context.Context, method, target string, req Request) (outcome, error) {
	tokens, err := c.tokens.Token(ctx)
	if err != nil {
		return outcome{}, fmt.Errorf("obtain access token: %w", err)
	}

	header := http.Header{}
	header.Set("X-API-Key", c.tokens.APIKey())
	header.Set("Accept", "application/json")
	header.Set("User-Agent", c.opts.UserAgent)
	if tokens.AccessToken != "" {
		header.Set("Authorization", "Bearer "+tokens.AccessToken)
	}
	if len(req.Body) > 0 {
		header.Set("Content-Type", "application/json")
	}

	requestID := uuid.NewString()
	logger := c.logger.With("request_id", requestID, "method", method, "url", target)
	logger.Debug("bungie api request")

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.transport.Do(reqCtx, ports.TransportRequest{
		Method: method,
		URL:    target,
		Header: header,
		Body:   req.Body,
	})
	if err != nil {
		logger.Debug("bungie api transport failed", "error", err)
		return outcome{}, &TransportError{Action: ActionRetry, Err: err}
	}
	logger.Debug("bungie api response", "status", resp.StatusCode, "bytes", len(resp.Body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return outcome{}, &TransportError{
			StatusCode: resp.StatusCode,
			Action:     ActionRetry,
			Body:       string(resp.Body),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return outcome{}, &ParseError{StatusCode: resp.StatusCode, Action: ActionRetry, Body: string(resp.Body), Err: err}
	}

	if !benignErrorCode(env.ErrorCode) {
		if env.ErrorCode == errorCodeThrottle {
			return outcome{throttled: true, throttleSeconds: env.ThrottleSeconds}, nil
		}
		return outcome{}, &APIError{
			Code:    env.ErrorCode,
			Status:  env.ErrorStatus,
			Message: env.Message,
			Payload: json.RawMessage(resp.Body),
		}
	}

	if req.Filter == "" {
		return outcome{data: env.Response}, nil
	}
	data, err := extractPath(env.Response, req.Filter)
	if err != nil {
		return outcome{}, &ParseError{StatusCode: resp.StatusCode, Action: ActionRetry, Body: string(resp.Body), Err: err}
	}
	return outcome{data: data}, nil
}

// format resolves req against the API root and appends the shared query
// parameters. The result doubles as the dedup key, so query keys are sorted.
func (c *Client) format(req Request) (string, error) {
	session := c.Session()
	platform := ""
	if session.Platform != "" {
		platform = strconv.Itoa(session.Platform.MembershipType())
	}
	raw := strings.NewReplacer(
		"{id}", session.MembershipID,
		"{username}", session.Username,
		"{platform}", platform,
	)

	endpoint := req.URL
	if endpoint == "" {
		if len(req.Path) == 0 {
			return "", errors.New("request needs a url or a path")
		}
		segments := make([]string, 0, len(req.Path))
		for _, segment := range req.Path {
			segments = append(segments, url.PathEscape(raw.Replace(segment)))
		}
		endpoint = strings.Join(segments, "/") + "/"
	} else {
		escaped := strings.NewReplacer(
			"{id}", url.PathEscape(session.MembershipID),
			"{username}", url.PathEscape(session.Username),
			"{platform}", platform,
		)
		endpoint = escaped.Replace(endpoint)
	}

	base, err := url.Parse(c.opts.API)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if !ref.IsAbs() {
		ref.Path = strings.TrimPrefix(ref.Path, "/")
	}
	resolved := base.ResolveReference(ref)

	query := resolved.Query()
	for k, v := range req.Query {
		query.Set(k, v)
	}
	if c.opts.Definitions {
		query.Set("definitions", "true")
	}
	if c.opts.Language != "" {
		query.Set("lc", c.opts.Language)
	}
	resolved.RawQuery = query.Encode()

	return resolved.String(), nil
}

// extractPath resolves a dotted path through objects and arrays. Numeric
// segments index arrays. A path that leads nowhere yields nil.
func extractPath(data json.RawMessage, path string) (json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("filter %q: response is not valid json", path)
	}

	segments := make([]string, 0, strings.Count(path, ".")+1)
	for _, segment := range strings.Split(path, ".") {
		if segment = strings.TrimSpace(segment); segment != "" {
			segments = append(segments, pathEscaper.Replace(segment))
		}
	}
	if len(segments) == 0 {
		return data, nil
	}

	result := gjson.GetBytes(data, strings.Join(segments, "."))
	if !result.Exists() {
		return nil, nil
	}
	return json.RawMessage(result.Raw), nil
}

// pathEscaper keeps wildcard and modifier characters literal in gjson paths.
var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"?", `\?`,
	"|", `\|`,
	"@", `\@`,
)
