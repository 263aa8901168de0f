package main

import (
	"strconv"
	"strings"
	"time"
)

// truncate shortens s to maxLen runes, ending with "..." when cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// oneLine collapses line breaks so multi-line text fits a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dashIfEmpty renders an empty cell as "-".
func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// formatAge renders how long ago t was, e.g. "45s", "12m", "3h", "2d".
func formatAge(t, now time.Time) string {
	if t.IsZero() || t.Unix() == 0 {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < 0:
		return "0s"
	case d < time.Minute:
		return formatUnit(int(d/time.Second), "s")
	case d < time.Hour:
		return formatUnit(int(d/time.Minute), "m")
	case d < 24*time.Hour:
		return formatUnit(int(d/time.Hour), "h")
	default:
		return formatUnit(int(d/(24*time.Hour)), "d")
	}
}

func formatUnit(n int, unit string) string {
	return strconv.Itoa(n) + unit
}
