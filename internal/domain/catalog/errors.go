package catalog

import "errors"

// Sentinel kinds for catalog errors. Load never returns them; they are
// logged when the catalog falls back to empty.
var (
	ErrSourceMissing   = errors.New("catalog source missing")
	ErrSourceMalformed = errors.New("catalog source malformed")
)
