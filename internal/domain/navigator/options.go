package navigator

import (
	"time"

	"github.com/okian/appraiser/pkg/logger"
)

const (
	defaultClickAttempts  = 3
	defaultClickBackoff   = 500 * time.Millisecond
	defaultLookupAttempts = 3
	defaultLookupPause    = time.Second
)

// Selectors describe the profile page markup.
type Selectors struct {
	Section      string
	Header       string
	Counter      string
	Toggle       string
	Filter       string
	Item         string
	Name         string
	NameFallback string
}

// DefaultSelectors returns the markup used by the live profile page.
func DefaultSelectors() Selectors {
	return Selectors{
		Section:      ".cosmetic-category.collapsible",
		Header:       ".category-title",
		Counter:      ".category-count",
		Toggle:       ".category-toggle",
		Filter:       "select",
		Item:         ".cosmetic-item",
		Name:         ".cosmetic-name",
		NameFallback: "[data-name]",
	}
}

// DefaultOwnedLabels lists the filter labels tried before the substring fallback.
func DefaultOwnedLabels() []string {
	return []string{"Owned", "Owned Only", "Show Owned", "Owned Items", "Only Owned"}
}

// Option applies a configuration option to the Navigator.
type Option func(*Navigator)

// WithSelectors overrides the page markup.
func WithSelectors(s Selectors) Option {
	return func(n *Navigator) {
		n.sel = s
	}
}

// WithOwnedLabels overrides the preferred filter labels.
func WithOwnedLabels(labels ...string) Option {
	return func(n *Navigator) {
		if len(labels) > 0 {
			n.ownedLabels = labels
		}
	}
}

// WithClickRetry sets attempts and fixed backoff for clicks and selects.
func WithClickRetry(attempts int, backoff time.Duration) Option {
	return func(n *Navigator) {
		if attempts > 0 {
			n.clickAttempts = attempts
		}
		if backoff > 0 {
			n.clickBackoff = backoff
		}
	}
}

// WithLookupRetry sets attempts and pause for item lookups.
func WithLookupRetry(attempts int, pause time.Duration) Option {
	return func(n *Navigator) {
		if attempts > 0 {
			n.lookupAttempts = attempts
		}
		if pause > 0 {
			n.lookupPause = pause
		}
	}
}

// WithLogger sets a custom logger for the navigator.
func WithLogger(l logger.Logger) Option {
	return func(n *Navigator) {
		if l != nil {
			n.logger = l
		}
	}
}
