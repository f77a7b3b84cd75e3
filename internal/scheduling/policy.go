package scheduling

import (
	"fmt"
	"time"
)

// ValidatePolicy checks a candidate date/time against a resolved policy.
// A nil policy validates everything. Every rule is evaluated independently;
// violations accumulate rather than short-circuit. The caller supplies "now"
// so the check stays pure and testable.
//
// AllowHolidays is carried in the policy shape but has no rule behind it:
// no holiday calendar exists anywhere in the system.
func ValidatePolicy(now, date time.Time, hhmm string, policy *SchedulingPolicy) []PolicyViolation {
	if policy == nil {
		return nil
	}

	var violations []PolicyViolation

	daysUntil := daysBetween(now, date)

	if daysUntil < policy.MinAdvanceDays {
		violations = append(violations, PolicyViolation{
			Code: ViolationTooSoon,
			Message: fmt.Sprintf("must be booked at least %d days in advance (requested %d days out)",
				policy.MinAdvanceDays, daysUntil),
		})
	}

	if policy.MaxAdvanceDays > 0 && daysUntil > policy.MaxAdvanceDays {
		violations = append(violations, PolicyViolation{
			Code: ViolationTooFarAhead,
			Message: fmt.Sprintf("cannot be booked more than %d days in advance (requested %d days out)",
				policy.MaxAdvanceDays, daysUntil),
		})
	}

	if !policy.AllowWeekends {
		wd := date.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			violations = append(violations, PolicyViolation{
				Code:    ViolationWeekend,
				Message: "weekend scheduling is not allowed",
			})
		}
	}

	if len(policy.PreferredSlots) > 0 && !containsSlot(policy.PreferredSlots, hhmm) {
		violations = append(violations, PolicyViolation{
			Code:    ViolationNotPreferredSlot,
			Message: fmt.Sprintf("time %s is not in the preferred slots", hhmm),
		})
	}

	if containsSlot(policy.AvoidedSlots, hhmm) {
		violations = append(violations, PolicyViolation{
			Code:    ViolationAvoidedSlot,
			Message: fmt.Sprintf("time %s is in the avoided slots", hhmm),
		})
	}

	return violations
}

// daysBetween counts whole calendar days from now's date to the target date,
// rounding partial days up.
func daysBetween(now, date time.Time) int {
	today := midnight(now)
	target := midnight(date)

	diff := target.Sub(today)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func containsSlot(slots []string, hhmm string) bool {
	for _, s := range slots {
		if s == hhmm {
			return true
		}
	}
	return false
}

// MergePolicies resolves a final policy from the global default plus zero or
// more override layers. Later overlays win, so callers pass the therapist
// override before the service override. Nil overlays are skipped; nil fields
// inherit the value already resolved.
func MergePolicies(base SchedulingPolicy, overlays ...*PolicyOverride) SchedulingPolicy {
	merged := base

	for _, o := range overlays {
		if o == nil {
			continue
		}
		if o.AllowWeekends != nil {
			merged.AllowWeekends = *o.AllowWeekends
		}
		if o.AllowHolidays != nil {
			merged.AllowHolidays = *o.AllowHolidays
		}
		if o.MinAdvanceDays != nil {
			merged.MinAdvanceDays = *o.MinAdvanceDays
		}
		if o.MaxAdvanceDays != nil {
			merged.MaxAdvanceDays = *o.MaxAdvanceDays
		}
		if o.PreferredSlots != nil {
			merged.PreferredSlots = o.PreferredSlots
		}
		if o.AvoidedSlots != nil {
			merged.AvoidedSlots = o.AvoidedSlots
		}
	}

	return merged
}
