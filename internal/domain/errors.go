package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidOrder        = errors.New("invalid order parameters")
	ErrBrokerNotConfigured = errors.New("broker not configured")
	ErrBrokerUnsupported   = errors.New("unsupported broker")
	ErrPlatformDown        = errors.New("broker API unavailable")
	ErrWSDisconnect        = errors.New("websocket disconnected")
	ErrLockHeld            = errors.New("lock already held")
)
