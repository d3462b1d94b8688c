package navigator

import (
	"regexp"
	"strconv"
)

var countPattern = regexp.MustCompile(`\[?\s*(\d+)\s*/\s*(\d+)\s*\]?`)

// ParseOwnedCount extracts the first "owned/total" pair from counter text,
// with or without surrounding brackets.
func ParseOwnedCount(text string) (owned, total int, ok bool) {
	m := countPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	owned, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return owned, total, true
}
