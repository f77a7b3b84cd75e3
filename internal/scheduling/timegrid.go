package scheduling

import (
	"fmt"
	"regexp"
)

var hhmmPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ToMinutes parses an "HH:MM" wall-clock string into minutes since midnight.
func ToMinutes(hhmm string) (int, error) {
	if !hhmmPattern.MatchString(hhmm) {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", hhmm)
	}

	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time %q: %w", hhmm, err)
	}

	return h*60 + m, nil
}

// FromMinutes renders minutes since midnight back to zero-padded "HH:MM".
func FromMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) overlap. Touching endpoints do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}
