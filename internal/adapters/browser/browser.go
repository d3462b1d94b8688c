// Package browser drives the profile page. Chrome is the production driver;
// Snapshot replays a saved HTML document for offline runs and tests.
package browser

import "context"

// Option is one entry of a select-style control.
type Option struct {
	Value string
	Label string
}

// Element is a handle to a node on the page. Handles go stale once the page
// re-renders; callers re-locate rather than keep them across mutating actions.
type Element interface {
	// Text returns the trimmed rendered text of the node. Script bodies and
	// hidden descendants are left out.
	Text(ctx context.Context) (string, error)

	// Find returns descendants matching a CSS selector. An empty result is
	// not an error.
	Find(ctx context.Context, selector string) ([]Element, error)

	// Click scrolls the node into view and clicks it from script.
	Click(ctx context.Context) error

	// Options lists the entries of a select node.
	Options(ctx context.Context) ([]Option, error)

	// Select sets a select node to value and fires its change handlers.
	Select(ctx context.Context, value string) error
}

// Page is the document loaded in a session.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitBody(ctx context.Context) error
	BodyText(ctx context.Context) (string, error)
	ScrollBy(ctx context.Context, px int) error
	Find(ctx context.Context, selector string) ([]Element, error)
}

// Session is one browser instance bound to a single valuation.
type Session interface {
	Page

	// Close tears the browser down. Failures are logged, never returned.
	Close(ctx context.Context)
}

// Launcher produces sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
