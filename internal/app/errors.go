package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidName     = errors.New("invalid player name")
	ErrAlreadyInFlight = errors.New("valuation already in progress for this player")
	ErrBackpressure    = errors.New("too many pending valuations")
	ErrStopped         = errors.New("service not running")
)
