package scheduling

import "time"

// maxWalkDays bounds the day-walk independently of the occurrence cap so a
// misconfigured pattern (zero cap, unreachable day-of-month) still terminates.
const maxWalkDays = 365 * 10

// Expand produces the ordered calendar dates a recurring series occupies,
// starting from the anchor date inclusive. Emission stops at the pattern's
// occurrence cap (default 52 when neither bound is supplied) or when the walk
// passes EndDate.
func Expand(anchor time.Time, pattern RecurrencePattern) []time.Time {
	limit := DefaultOccurrenceCap
	if pattern.OccurrenceCap != nil {
		limit = *pattern.OccurrenceCap
	}
	if limit <= 0 {
		return nil
	}

	anchorDay := midnight(anchor)

	var dates []time.Time
	for i := 0; i < maxWalkDays; i++ {
		day := anchorDay.AddDate(0, 0, i)

		if pattern.EndDate != nil && day.After(midnight(*pattern.EndDate)) {
			break
		}

		if matchesPattern(day, anchorDay, pattern) {
			dates = append(dates, day)
			if len(dates) >= limit {
				break
			}
		}
	}

	return dates
}

func matchesPattern(day, anchor time.Time, pattern RecurrencePattern) bool {
	switch pattern.Frequency {
	case FrequencyDaily:
		return true

	case FrequencyWeekly:
		return matchesWeekday(day, anchor, pattern.DaysOfWeek)

	case FrequencyBiweekly:
		if !matchesWeekday(day, anchor, pattern.DaysOfWeek) {
			return false
		}
		weeks := int(day.Sub(anchor).Hours()/24) / 7
		return weeks%2 == 0

	case FrequencyMonthly:
		if pattern.DayOfMonth != nil {
			return day.Day() == *pattern.DayOfMonth
		}
		return day.Day() == anchor.Day()

	default:
		return false
	}
}

// matchesWeekday applies the weekly membership rule: an explicit DaysOfWeek
// set when supplied, otherwise only the anchor's weekday.
func matchesWeekday(day, anchor time.Time, daysOfWeek []time.Weekday) bool {
	if len(daysOfWeek) == 0 {
		return day.Weekday() == anchor.Weekday()
	}
	for _, wd := range daysOfWeek {
		if day.Weekday() == wd {
			return true
		}
	}
	return false
}
