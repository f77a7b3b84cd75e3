package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusScheduled           SessionStatus = "scheduled"
	StatusConfirmed           SessionStatus = "confirmed"
	StatusInProgress          SessionStatus = "in_progress"
	StatusCompleted           SessionStatus = "completed"
	StatusCancelled           SessionStatus = "cancelled"
	StatusNoShow              SessionStatus = "no_show"
	StatusRescheduleRequested SessionStatus = "reschedule_requested"
)

// ActiveStatuses are the statuses that occupy therapist capacity and
// therefore participate in conflict checks.
var ActiveStatuses = []SessionStatus{StatusScheduled, StatusConfirmed, StatusInProgress}

func (s SessionStatus) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed || s == StatusInProgress
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Therapist struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkingSchedule is one therapist's capacity window for a single weekday.
// BreakStart/BreakEnd are either both set or both nil. If Active is false the
// therapist has zero capacity on that weekday regardless of the time fields.
type WorkingSchedule struct {
	ID          uuid.UUID
	TherapistID uuid.UUID
	Weekday     time.Weekday
	StartTime   string // "HH:MM"
	EndTime     string // "HH:MM"
	BreakStart  *string
	BreakEnd    *string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BookedSession struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	TherapistID     uuid.UUID
	ServiceID       uuid.UUID
	ScheduledDate   time.Time // date only, midnight UTC
	ScheduledTime   string    // "HH:MM"
	DurationMinutes int
	Status          SessionStatus
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// DefaultOccurrenceCap bounds a recurrence expansion when the pattern supplies
// neither an end date nor an explicit cap.
const DefaultOccurrenceCap = 52

// RecurrencePattern describes how one booking request expands into a series
// of dated occurrences. Interval is reserved for a future multi-step feature
// and is not read by the expander.
type RecurrencePattern struct {
	Frequency     Frequency
	Interval      int
	EndDate       *time.Time
	OccurrenceCap *int
	DaysOfWeek    []time.Weekday
	DayOfMonth    *int
}

type ConflictType string

const (
	ConflictSessionOverlap      ConflictType = "session_overlap"
	ConflictNoSchedule          ConflictType = "no_schedule"
	ConflictOutsideWorkingHours ConflictType = "outside_working_hours"
	ConflictBreakTime           ConflictType = "break_time_conflict"
	ConflictError               ConflictType = "error"
)

// Conflict is a reason a candidate booking cannot occupy a slot. For
// session_overlap conflicts the colliding session's identity and timing are
// carried alongside the message.
type Conflict struct {
	Type            ConflictType
	Message         string
	SessionID       *uuid.UUID
	SessionTime     string
	SessionDuration int
}

type ViolationCode string

const (
	ViolationTooSoon          ViolationCode = "too_soon"
	ViolationTooFarAhead      ViolationCode = "too_far_ahead"
	ViolationWeekend          ViolationCode = "weekend_not_allowed"
	ViolationNotPreferredSlot ViolationCode = "not_preferred_slot"
	ViolationAvoidedSlot      ViolationCode = "avoided_slot"
)

type PolicyViolation struct {
	Code    ViolationCode
	Message string
}

// SchedulingPolicy is a fully resolved policy: the result of merging the
// global default with any therapist and service overrides.
type SchedulingPolicy struct {
	AllowWeekends  bool
	AllowHolidays  bool
	MinAdvanceDays int
	MaxAdvanceDays int
	PreferredSlots []string // "HH:MM"; empty means any slot
	AvoidedSlots   []string
}

// PolicyOverride is one layer of policy configuration. Nil fields inherit
// from the layer below; merge precedence is service > therapist > default.
type PolicyOverride struct {
	AllowWeekends  *bool
	AllowHolidays  *bool
	MinAdvanceDays *int
	MaxAdvanceDays *int
	PreferredSlots []string
	AvoidedSlots   []string
}

type EventLog struct {
	ID        int64
	EventType string
	SessionID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
