package bot

import (
	"fmt"
	"strconv"
)

// parseIndex parses a positional subscription index and checks it against
// the current list length. Indices are zero-based and shift on deletion.
func parseIndex(s string, listLen int) (int, bool) {
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 || idx >= listLen {
		return 0, false
	}
	return idx, true
}

// parseHours parses the /hours arguments as whole hours of the day.
// from <= to is deliberately not enforced.
func parseHours(fromStr, toStr string) (int, int, error) {
	from, err := strconv.Atoi(fromStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid from hour %q: %w", fromStr, err)
	}
	to, err := strconv.Atoi(toStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid to hour %q: %w", toStr, err)
	}
	if from < 0 || from > 23 || to < 0 || to > 23 {
		return 0, 0, fmt.Errorf("hours out of range: %d, %d", from, to)
	}
	return from, to, nil
}
