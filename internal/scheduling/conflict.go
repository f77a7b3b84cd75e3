package scheduling

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionOverlaps compares a candidate [start,end) interval in minutes against
// every active session on the same day and returns one session_overlap
// conflict per collision. All collisions are reported, not just the first.
// A session matching excludeID is skipped so a reschedule does not conflict
// with itself.
func SessionOverlaps(start, end int, sessions []BookedSession, excludeID *uuid.UUID) []Conflict {
	var conflicts []Conflict

	for _, sess := range sessions {
		if excludeID != nil && sess.ID == *excludeID {
			continue
		}
		if !sess.Status.Active() {
			continue
		}

		sessStart, err := ToMinutes(sess.ScheduledTime)
		if err != nil {
			// A stored session with an unparseable time cannot be safely
			// overlapped against, so surface it rather than skip it.
			conflicts = append(conflicts, Conflict{
				Type:    ConflictError,
				Message: fmt.Sprintf("session %s has malformed time %q", sess.ID, sess.ScheduledTime),
			})
			continue
		}
		sessEnd := sessStart + sess.DurationMinutes

		if Overlaps(start, end, sessStart, sessEnd) {
			id := sess.ID
			conflicts = append(conflicts, Conflict{
				Type: ConflictSessionOverlap,
				Message: fmt.Sprintf("overlaps existing session at %s for %d minutes",
					sess.ScheduledTime, sess.DurationMinutes),
				SessionID:       &id,
				SessionTime:     sess.ScheduledTime,
				SessionDuration: sess.DurationMinutes,
			})
		}
	}

	return conflicts
}

// CheckWindow validates a candidate [start,end) interval against a day's
// working schedule: inside working hours and clear of the break window.
// A nil or inactive schedule yields a single no_schedule conflict and no
// further shape checks.
func CheckWindow(schedule *WorkingSchedule, start, end int) []Conflict {
	if schedule == nil || !schedule.Active {
		return []Conflict{{
			Type:    ConflictNoSchedule,
			Message: "therapist has no working schedule for this day",
		}}
	}

	var conflicts []Conflict

	workStart, err := ToMinutes(schedule.StartTime)
	if err != nil {
		return []Conflict{{Type: ConflictError, Message: fmt.Sprintf("malformed schedule start %q", schedule.StartTime)}}
	}
	workEnd, err := ToMinutes(schedule.EndTime)
	if err != nil {
		return []Conflict{{Type: ConflictError, Message: fmt.Sprintf("malformed schedule end %q", schedule.EndTime)}}
	}

	if start < workStart || end > workEnd {
		conflicts = append(conflicts, Conflict{
			Type: ConflictOutsideWorkingHours,
			Message: fmt.Sprintf("requested time is outside working hours %s-%s",
				schedule.StartTime, schedule.EndTime),
		})
	}

	if schedule.BreakStart != nil && schedule.BreakEnd != nil {
		breakStart, err1 := ToMinutes(*schedule.BreakStart)
		breakEnd, err2 := ToMinutes(*schedule.BreakEnd)
		if err1 == nil && err2 == nil && Overlaps(start, end, breakStart, breakEnd) {
			conflicts = append(conflicts, Conflict{
				Type: ConflictBreakTime,
				Message: fmt.Sprintf("requested time falls within break %s-%s",
					*schedule.BreakStart, *schedule.BreakEnd),
			})
		}
	}

	return conflicts
}

// RemediationHint returns the fixed suggestion shown to callers for each
// conflict type.
func RemediationHint(t ConflictType) string {
	switch t {
	case ConflictSessionOverlap:
		return "reschedule the conflicting session or choose a different slot"
	case ConflictNoSchedule:
		return "choose a day the therapist works, or configure a schedule for this weekday"
	case ConflictOutsideWorkingHours:
		return "choose a time within the therapist's working hours"
	case ConflictBreakTime:
		return "choose a time outside the therapist's break"
	default:
		return "retry the request; if the problem persists contact support"
	}
}
