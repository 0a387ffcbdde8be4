package application

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is the recovery a caller is advised to take.
type Action string

const (
	ActionRetry Action = "retry"
	ActionLogin Action = "login"
)

// TransportError reports a failed exchange: a non-2xx status, or no response
// at all (StatusCode 0) when the transport itself failed or timed out.
type TransportError struct {
	StatusCode int
	Action     Action
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("bungie api request failed: %v", e.Err)
	}
	return fmt.Sprintf("bungie api returned status %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type ParseError struct {
	StatusCode int
	Action     Action
	Body       string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse the json response from the bungie api: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// APIError carries a non-benign ErrorCode from the response envelope.
type APIError struct {
	Code    int
	Status  string
	Message string
	Payload json.RawMessage
}

func (e *APIError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("bungie api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("bungie api error %d (%s): %s", e.Code, e.Status, e.Message)
}

// ThrottleError is only returned once the retry bound is exhausted.
type ThrottleError struct {
	Attempts int
	Delay    time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("bungie api still throttling after %d retries (last delay %s)", e.Attempts, e.Delay)
}

type BootstrapError struct {
	Reason string
	Action Action
	Err    error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}
