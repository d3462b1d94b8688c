package valuation

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/appraiser/internal/domain/navigator"
	"github.com/okian/appraiser/pkg/logger"
)

const (
	defaultProfileURL       = "https://example.com/player/%s"
	defaultNotFoundMarker   = "Player not found"
	defaultSettleDelay      = 3 * time.Second
	defaultScrollOffset     = 800
	defaultDiscoverAttempts = 3
	defaultDiscoverPause    = time.Second
	defaultSuggestions      = 3
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithProfileURL sets the profile URL template; it must contain one %s.
func WithProfileURL(template string) Option {
	return func(a *Aggregator) {
		if template != "" {
			a.profileURL = template
		}
	}
}

// WithNotFoundMarker sets the text that identifies a missing profile.
// Empty disables the probe.
func WithNotFoundMarker(marker string) Option {
	return func(a *Aggregator) {
		a.notFoundMarker = marker
	}
}

// WithSettleDelay sets the pause after the body appears.
func WithSettleDelay(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.settle = d
		}
	}
}

// WithScrollOffset sets how far the page is scrolled before discovery.
func WithScrollOffset(px int) Option {
	return func(a *Aggregator) {
		if px >= 0 {
			a.scrollPx = px
		}
	}
}

// WithDiscoverRetry sets attempts and pause for category discovery.
func WithDiscoverRetry(attempts int, pause time.Duration) Option {
	return func(a *Aggregator) {
		if attempts > 0 {
			a.discoverAttempts = attempts
		}
		if pause > 0 {
			a.discoverPause = pause
		}
	}
}

// WithNavigationRate caps profile loads per second across all scrapes
// sharing this aggregator. Zero or less removes the cap.
func WithNavigationRate(perSecond float64) Option {
	return func(a *Aggregator) {
		if perSecond <= 0 {
			a.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		a.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithNavigator replaces the category navigator.
func WithNavigator(n *navigator.Navigator) Option {
	return func(a *Aggregator) {
		if n != nil {
			a.nav = n
		}
	}
}

// WithLogger sets a custom logger for the aggregator.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}
