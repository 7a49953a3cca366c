package report

import (
	"fmt"
	"strings"
	"time"

	"pricemirror/internal/util"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatPrice formats a price as $X.XX, or "-" for zero.
func FormatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return fmt.Sprintf("$%.2f", p)
}

// FormatRatio formats a fractional change as a signed percentage with two
// decimals, e.g. 0.0123 -> "+1.23%".
func FormatRatio(r float64) string {
	return fmt.Sprintf("%+.2f%%", r*100)
}

// FormatPct formats a value already in percent.
func FormatPct(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

// FormatDate formats a day, or "-" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(util.DateLayout)
}

// FormatTime formats a trade timestamp in local time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// FormatDuration rounds d for summaries.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
