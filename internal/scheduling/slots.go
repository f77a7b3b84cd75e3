package scheduling

import "sort"

const (
	// SlotStep is the granularity of candidate start times.
	SlotStep = 15
	// SlotBuffer is the clearance required between a generated slot and any
	// existing session, on both sides.
	SlotBuffer = 5
)

type interval struct {
	start int
	end   int
}

// GenerateSlots enumerates every start time at SlotStep granularity where a
// session of the given duration fits inside the working schedule without
// touching the break window and with SlotBuffer minutes of clearance from
// every active existing session. Results are ascending "HH:MM" strings and
// deterministic for identical input.
func GenerateSlots(schedule *WorkingSchedule, sessions []BookedSession, durationMinutes int) []string {
	if schedule == nil || !schedule.Active || durationMinutes <= 0 {
		return nil
	}

	workStart, err := ToMinutes(schedule.StartTime)
	if err != nil {
		return nil
	}
	workEnd, err := ToMinutes(schedule.EndTime)
	if err != nil {
		return nil
	}
	if workEnd-workStart < durationMinutes {
		return nil
	}

	// Occupied session intervals widened by the buffer, built once and sorted.
	occupied := make([]interval, 0, len(sessions))
	for _, sess := range sessions {
		if !sess.Status.Active() {
			continue
		}
		start, err := ToMinutes(sess.ScheduledTime)
		if err != nil {
			continue
		}
		occupied = append(occupied, interval{
			start: start - SlotBuffer,
			end:   start + sess.DurationMinutes + SlotBuffer,
		})
	}
	sort.Slice(occupied, func(i, j int) bool { return occupied[i].start < occupied[j].start })

	var breakWindow *interval
	if schedule.BreakStart != nil && schedule.BreakEnd != nil {
		bs, err1 := ToMinutes(*schedule.BreakStart)
		be, err2 := ToMinutes(*schedule.BreakEnd)
		if err1 == nil && err2 == nil {
			breakWindow = &interval{start: bs, end: be}
		}
	}

	var slots []string
	for start := workStart; start+durationMinutes <= workEnd; start += SlotStep {
		end := start + durationMinutes

		if breakWindow != nil && Overlaps(start, end, breakWindow.start, breakWindow.end) {
			continue
		}

		clean := true
		for _, occ := range occupied {
			if occ.start >= end {
				break
			}
			if Overlaps(start, end, occ.start, occ.end) {
				clean = false
				break
			}
		}
		if clean {
			slots = append(slots, FromMinutes(start))
		}
	}

	return slots
}
