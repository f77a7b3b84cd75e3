package api

import (
	"time"

	"github.com/google/uuid"
)

type RecurrenceBody struct {
	Frequency     string  `json:"frequency"`
	Interval      int     `json:"interval,omitempty"`
	EndDate       *string `json:"end_date,omitempty"`
	OccurrenceCap *int    `json:"occurrence_cap,omitempty"`
	DaysOfWeek    []int   `json:"days_of_week,omitempty"`
	DayOfMonth    *int    `json:"day_of_month,omitempty"`
}

type PolicyBody struct {
	AllowWeekends  bool     `json:"allow_weekends"`
	AllowHolidays  bool     `json:"allow_holidays"`
	MinAdvanceDays int      `json:"min_advance_days"`
	MaxAdvanceDays int      `json:"max_advance_days"`
	PreferredSlots []string `json:"preferred_slots,omitempty"`
	AvoidedSlots   []string `json:"avoided_slots,omitempty"`
}

type CreateSessionRequest struct {
	PatientID       string          `json:"patient_id"`
	TherapistID     string          `json:"therapist_id"`
	ServiceID       string          `json:"service_id"`
	Date            string          `json:"date"` // YYYY-MM-DD
	Time            string          `json:"time"` // HH:MM
	DurationMinutes int             `json:"duration_minutes"`
	Recurrence      *RecurrenceBody `json:"recurrence,omitempty"`
	Policy          *PolicyBody     `json:"policy,omitempty"`
}

type BulkScheduleRequest struct {
	Sessions []CreateSessionRequest `json:"sessions"`
}

type RescheduleSessionRequest struct {
	NewDate         string `json:"new_date"`
	NewTime         string `json:"new_time"`
	Reason          string `json:"reason"`
	NotifyPatient   bool   `json:"notify_patient"`
	NotifyTherapist bool   `json:"notify_therapist"`
}

type SessionResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	TherapistID     uuid.UUID `json:"therapist_id"`
	ServiceID       uuid.UUID `json:"service_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ConflictBody struct {
	Type            string     `json:"type"`
	Message         string     `json:"message"`
	SessionID       *uuid.UUID `json:"session_id,omitempty"`
	SessionTime     string     `json:"session_time,omitempty"`
	SessionDuration int        `json:"session_duration,omitempty"`
}

type ViolationBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RejectionResponse struct {
	Conflicts    []ConflictBody  `json:"conflicts,omitempty"`
	Remediations []string        `json:"remediations,omitempty"`
	Violations   []ViolationBody `json:"violations,omitempty"`
}

type SkippedOccurrenceBody struct {
	Date      string         `json:"date"`
	Conflicts []ConflictBody `json:"conflicts"`
}

type SeriesResponse struct {
	Created []SessionResponse       `json:"created"`
	Skipped []SkippedOccurrenceBody `json:"skipped"`
}

type ScheduleSummary struct {
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	BreakStart *string `json:"break_start,omitempty"`
	BreakEnd   *string `json:"break_end,omitempty"`
	Active     bool    `json:"active"`
}

type AvailabilityResponse struct {
	TherapistID uuid.UUID         `json:"therapist_id"`
	Date        string            `json:"date"`
	Schedule    *ScheduleSummary  `json:"schedule"`
	Slots       []string          `json:"slots"`
	Sessions    []SessionResponse `json:"sessions"`
}

type BulkItemBody struct {
	Index      int              `json:"index"`
	Session    *SessionResponse `json:"session,omitempty"`
	Conflicts  []ConflictBody   `json:"conflicts,omitempty"`
	Violations []ViolationBody  `json:"violations,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type BulkScheduleResponse struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Successes  []BulkItemBody `json:"successes"`
	Failures   []BulkItemBody `json:"failures"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
