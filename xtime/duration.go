// Package xtime extends time.Duration parsing and formatting with day and
// week units, used for human-friendly configuration values.
package xtime

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var durationRx = regexp.MustCompile(`(\d*\.\d+|\d+)[^\d]*`)

// ParseDuration parses a duration string. In addition to the standard
// time.ParseDuration units it supports days ("d"/"D") and weeks ("w"/"W"),
// e.g. "10d", "-1.5w" or "1w2d12h".
func ParseDuration(s string) (time.Duration, error) {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	unitHours := map[string]time.Duration{
		"d": 24, "D": 24,
		"w": 7 * 24, "W": 7 * 24,
	}

	var sum time.Duration
	for _, part := range durationRx.FindAllString(s, -1) {
		var hours time.Duration = 1
		for unit, h := range unitHours {
			if strings.Contains(part, unit) {
				part = strings.ReplaceAll(part, unit, "h")
				hours = h
				break
			}
		}

		dur, err := time.ParseDuration(part)
		if err != nil {
			return 0, err
		}
		sum += dur * hours
	}

	if neg {
		sum = -sum
	}

	return sum, nil
}

// FormatDuration formats a duration using the same units as ParseDuration,
// e.g. "1w2d", "30m" or "-12h". The round parameter specifies the smallest
// unit to include.
func FormatDuration(d time.Duration, round time.Duration) string {
	if round > 0 {
		d = d.Round(round)
	}
	if d == 0 {
		return "0s"
	}

	neg := d < 0
	if neg {
		d = -d
	}

	hours := int64(d / time.Hour)
	weeks := hours / (7 * 24)
	hours %= 7 * 24
	days := hours / 24
	hours %= 24

	rem := d % time.Hour
	minutes := rem / time.Minute
	seconds := (rem % time.Minute) / time.Second

	var parts []string
	if weeks > 0 {
		parts = append(parts, fmt.Sprintf("%dw", weeks))
	}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 && round <= time.Hour {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 && round <= time.Minute {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 && round <= time.Second {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	if len(parts) == 0 {
		return "0s"
	}

	result := strings.Join(parts, "")
	if neg {
		result = "-" + result
	}

	return result
}
