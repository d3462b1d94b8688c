package valuation

import "errors"

// Failure messages carried in ValuationResult.Error.
const (
	MsgBrowserUnavailable = "browser unavailable, try again later"
	MsgProfileLoadFailed  = "failed to load player profile"
	MsgProfileNotFound    = "player profile not found"
	MsgNoCategories       = "no categories found on profile"
	MsgInterrupted        = "valuation interrupted"
)

var errNoSections = errors.New("no category sections")
