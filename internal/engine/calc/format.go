package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dshills/calcstorm/internal/store"
)

// maxSignificantChars is the display width before switching to
// exponential notation.
const maxSignificantChars = 12

// grouped renders integral values with grouping separators.
var grouped = message.NewPrinter(language.English)

// formatNumber renders a computed value for display and logging.
//
// Non-finite values fail with ErrInvalidNumber. Values needing more than
// 12 significant characters use exponential notation with 5 fractional
// digits; integral magnitudes >= 1000 get grouping separators; everything
// else is the plain decimal string.
func formatNumber(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("format %v: %w", v, ErrInvalidNumber)
	}

	plain := strconv.FormatFloat(v, 'f', -1, 64)

	significant := strings.TrimPrefix(plain, "-")
	significant = strings.ReplaceAll(significant, ".", "")
	if len(significant) > maxSignificantChars {
		return fmt.Sprintf("%.5e", v), nil
	}

	if v == math.Trunc(v) && math.Abs(v) >= 1000 {
		return grouped.Sprintf("%d", int64(v)), nil
	}

	return plain, nil
}

// parseValue parses a canonical or display-formatted value.
// Grouping separators are accepted so a formatted result can flow back
// in as an operand.
func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, ErrInvalidNumber)
	}
	return v, nil
}

// cloneLog copies a calculation log for hand-out.
func cloneLog(log []store.LogEntry) []store.LogEntry {
	if log == nil {
		return nil
	}
	out := make([]store.LogEntry, len(log))
	copy(out, log)
	return out
}

// logsEqual reports whether two logs hold the same entries in the same
// order. Entry ids are unique per entry, so id comparison suffices.
// Length alone is not enough: appending at the cap evicts the oldest
// entry and leaves the length unchanged.
func logsEqual(a, b []store.LogEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
