package tui

import (
	"fmt"
	"strings"
	"time"
)

// formatTime renders a modification time for the project list.
func formatTime(t time.Time) string {
	return relativeTime(time.Now(), t)
}

// relativeTime describes t as an age relative to now. Anything older than
// a month is shown as a date.
func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	switch d := now.Sub(t); {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Local().Format("Jan 2 2006")
}

// truncStr clips s to maxLen runes, ending in an ellipsis when clipped.
func truncStr(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(r[:maxLen-1]) + "…"
}

// truncateToHeight keeps the first maxLines lines of s. maxLines <= 0
// keeps everything.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	lines := strings.SplitAfter(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "")
}
