package navigator

import "errors"

var (
	// ErrSectionMissing is returned when no section header matches the category.
	ErrSectionMissing = errors.New("category section not found")

	// ErrControlMissing is returned when a section lacks an expected control.
	ErrControlMissing = errors.New("section control not found")

	// ErrNoOwnedOption is returned when the filter offers no owned-only entry.
	ErrNoOwnedOption = errors.New("no owned filter option")

	// ErrNoItems is returned when an expanded section renders no items.
	ErrNoItems = errors.New("no items rendered")
)
