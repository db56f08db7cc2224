package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// ParseDurationString accepts Go durations ("36h", "90m") and whole days or weeks ("2d", "1w").
// Negative values are rejected, token lifetimes and overdue windows only count forward.
func ParseDurationString(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)

	var d time.Duration
	if unit, ok := calendarUnit(value); ok {
		n, err := strconv.ParseInt(value[:len(value)-1], 10, 64)
		if err != nil || n > int64(1<<63-1)/int64(unit) {
			return 0, fmt.Errorf("invalid time duration '%s'", value)
		}
		d = time.Duration(n) * unit
	} else {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid time duration '%s' : %s", value, err.Error())
		}
		d = parsed
	}

	if d < 0 {
		return 0, fmt.Errorf("invalid time duration '%s' : must not be negative", value)
	}
	return d, nil
}

func calendarUnit(value string) (time.Duration, bool) {
	switch {
	case strings.HasSuffix(value, "d"):
		return day, true
	case strings.HasSuffix(value, "w"):
		return week, true
	}
	return 0, false
}
