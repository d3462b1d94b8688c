package browser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStaleElement is returned when a handle no longer refers to a live node.
	ErrStaleElement = errors.New("stale element reference")

	// ErrLaunch wraps failures to start a browser.
	ErrLaunch = errors.New("browser launch failed")

	// ErrNavigate wraps page load failures.
	ErrNavigate = errors.New("navigation failed")

	// ErrNotSelectable is returned when Options or Select target a non-select node.
	ErrNotSelectable = errors.New("element is not a select control")

	// ErrNoSuchOption is returned when Select is given an unknown value.
	ErrNoSuchOption = errors.New("no such option")
)

var staleMarkers = []string{
	"no node with given id",
	"could not find node with given id",
	"node with given id does not belong to the document",
	"node is detached from document",
	"cannot find context with specified id",
}

// classify maps CDP node errors onto ErrStaleElement.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrStaleElement) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %v", ErrStaleElement, err)
		}
	}
	return err
}
