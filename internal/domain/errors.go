package domain

import "errors"

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrClientClosed        = errors.New("client closed")
	ErrNotReady            = errors.New("session not ready")
)
