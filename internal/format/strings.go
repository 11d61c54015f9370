package format

import "fmt"

// TruncateWithEllipsis truncates a string to maxWidth runes, appending
// "..." if the string exceeds the limit. If maxWidth is less than 4,
// the string is hard-truncated without an ellipsis suffix.
func TruncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= maxWidth {
		return s
	}

	if maxWidth < 4 {
		return string(runes[:maxWidth])
	}

	return string(runes[:maxWidth-3]) + "..."
}

// Percent renders a utilization value as "42.3%".
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// Gigabytes renders a capacity as "15.6 GB".
func Gigabytes(v float64) string {
	return fmt.Sprintf("%.1f GB", v)
}
