package browser

import (
	"time"

	"github.com/okian/appraiser/pkg/logger"
)

const (
	defaultPageLoadTimeout = 30 * time.Second
	defaultElementWait     = 5 * time.Second
	defaultViewportWidth   = 1920
	defaultViewportHeight  = 1080
)

// ChromeOption configures a Chrome launcher.
type ChromeOption func(*Chrome)

// WithExecPath points at a specific browser binary. Empty uses the system install.
func WithExecPath(path string) ChromeOption {
	return func(c *Chrome) {
		c.execPath = path
	}
}

// WithBundled marks the binary as a portable bundle that must be made
// executable before launch.
func WithBundled(bundled bool) ChromeOption {
	return func(c *Chrome) {
		c.bundled = bundled
	}
}

// WithHeadless toggles headless mode.
func WithHeadless(headless bool) ChromeOption {
	return func(c *Chrome) {
		c.headless = headless
	}
}

// WithViewport sets the window size.
func WithViewport(width, height int) ChromeOption {
	return func(c *Chrome) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
		}
	}
}

// WithPageLoadTimeout caps navigation.
func WithPageLoadTimeout(d time.Duration) ChromeOption {
	return func(c *Chrome) {
		if d > 0 {
			c.pageLoadTimeout = d
		}
	}
}

// WithElementWait sets how long lookups wait for a first match.
func WithElementWait(d time.Duration) ChromeOption {
	return func(c *Chrome) {
		if d > 0 {
			c.elementWait = d
		}
	}
}

// WithChromeLogger sets the logger.
func WithChromeLogger(l logger.Logger) ChromeOption {
	return func(c *Chrome) {
		if l != nil {
			c.logger = l
		}
	}
}

// SnapshotOption configures a Snapshot launcher.
type SnapshotOption func(*Snapshot)

// WithSnapshotLogger sets the logger.
func WithSnapshotLogger(l logger.Logger) SnapshotOption {
	return func(s *Snapshot) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNavigateHook is invoked with every URL the page navigates to.
func WithNavigateHook(fn func(url string) error) SnapshotOption {
	return func(s *Snapshot) {
		s.onNavigate = fn
	}
}
