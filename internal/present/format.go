package present

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count with 1024-based units.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}

	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, sizeUnits[i])
}

// DefaultDateLayout is a short date-time in the style of toLocaleString.
const DefaultDateLayout = "Jan 2, 2006, 3:04 PM"

// Layouts accepted from the library service, most specific first.
var inputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DateFormat renders timestamps for display.
type DateFormat struct {
	Layout   string
	Location *time.Location
}

// DefaultDates formats in local time with DefaultDateLayout.
var DefaultDates = DateFormat{Layout: DefaultDateLayout, Location: time.Local}

// NewDateFormat builds a DateFormat from a layout and an IANA zone name.
// An empty or unknown zone falls back to the process local time.
func NewDateFormat(layout, zone string) DateFormat {
	if layout == "" {
		layout = DefaultDateLayout
	}
	loc := time.Local
	if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}
	return DateFormat{Layout: layout, Location: loc}
}

// Format returns "Never" for empty input and the input itself when it
// cannot be parsed.
func (f DateFormat) Format(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Never"
	}
	t, ok := ParseTime(value)
	if !ok {
		return value
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	layout := f.Layout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.In(loc).Format(layout)
}

// FormatDate formats with DefaultDates.
func FormatDate(value string) string {
	return DefaultDates.Format(value)
}

// ParseTime parses the timestamp formats the library service emits.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDuration renders seconds as "1h 05m" or "4m 12s".
func FormatDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) {
		return "Unknown"
	}
	total := int64(math.Round(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}

// FormatProgress renders a 0-100 percentage without trailing zeros.
func FormatProgress(p float64) string {
	if p == math.Trunc(p) {
		return fmt.Sprintf("%d%%", int(p))
	}
	return fmt.Sprintf("%.1f%%", p)
}
