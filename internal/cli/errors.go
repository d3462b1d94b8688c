package cli

import "errors"

// Sentinel kinds for CLI errors.
var (
	ErrUnknownOutput   = errors.New("unknown output format")
	ErrMissingPlayer   = errors.New("player name required")
	ErrNoMatch         = errors.New("no catalog match")
	ErrValuationFailed = errors.New("valuation failed")
	ErrRemote          = errors.New("remote request failed")
)
