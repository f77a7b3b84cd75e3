package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/session-scheduler/internal/scheduling"
)

const (
	minDurationMinutes = 15
	maxDurationMinutes = 480
)

// validationError marks a request as malformed before it reaches the engine.
// The engine itself assumes shape-valid input.
type validationError struct {
	code    string
	details string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.details)
}

func invalid(code, format string, args ...any) *validationError {
	return &validationError{code: code, details: fmt.Sprintf(format, args...)}
}

func parseDate(field, value string) (time.Time, *validationError) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, invalid("invalid_"+field, "%s must be a YYYY-MM-DD date, got %q", field, value)
	}
	return d, nil
}

func parseClock(field, value string) *validationError {
	if _, err := scheduling.ToMinutes(value); err != nil {
		return invalid("invalid_"+field, "%s must be a HH:MM time, got %q", field, value)
	}
	return nil
}

func parseID(field, value string) (uuid.UUID, *validationError) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, invalid("invalid_"+field, "%s must be a valid UUID", field)
	}
	return id, nil
}

var frequencies = map[string]scheduling.Frequency{
	"daily":    scheduling.FrequencyDaily,
	"weekly":   scheduling.FrequencyWeekly,
	"biweekly": scheduling.FrequencyBiweekly,
	"monthly":  scheduling.FrequencyMonthly,
}

func parseRecurrence(body *RecurrenceBody) (*scheduling.RecurrencePattern, *validationError) {
	if body == nil {
		return nil, nil
	}

	freq, ok := frequencies[body.Frequency]
	if !ok {
		return nil, invalid("invalid_recurrence", "frequency must be one of daily, weekly, biweekly, monthly")
	}

	pattern := &scheduling.RecurrencePattern{
		Frequency:     freq,
		Interval:      body.Interval,
		OccurrenceCap: body.OccurrenceCap,
		DayOfMonth:    body.DayOfMonth,
	}

	if body.EndDate != nil {
		end, verr := parseDate("recurrence_end_date", *body.EndDate)
		if verr != nil {
			return nil, verr
		}
		pattern.EndDate = &end
	}

	if body.DayOfMonth != nil && (*body.DayOfMonth < 1 || *body.DayOfMonth > 31) {
		return nil, invalid("invalid_recurrence", "day_of_month must be between 1 and 31")
	}

	for _, d := range body.DaysOfWeek {
		if d < 0 || d > 6 {
			return nil, invalid("invalid_recurrence", "days_of_week entries must be 0 (Sunday) through 6 (Saturday)")
		}
		pattern.DaysOfWeek = append(pattern.DaysOfWeek, time.Weekday(d))
	}

	return pattern, nil
}

func parsePolicy(body *PolicyBody) (*scheduling.SchedulingPolicy, *validationError) {
	if body == nil {
		return nil, nil
	}

	for _, slot := range body.PreferredSlots {
		if verr := parseClock("preferred_slot", slot); verr != nil {
			return nil, verr
		}
	}
	for _, slot := range body.AvoidedSlots {
		if verr := parseClock("avoided_slot", slot); verr != nil {
			return nil, verr
		}
	}

	return &scheduling.SchedulingPolicy{
		AllowWeekends:  body.AllowWeekends,
		AllowHolidays:  body.AllowHolidays,
		MinAdvanceDays: body.MinAdvanceDays,
		MaxAdvanceDays: body.MaxAdvanceDays,
		PreferredSlots: body.PreferredSlots,
		AvoidedSlots:   body.AvoidedSlots,
	}, nil
}

// parseBookingRequest validates one booking payload and converts it to the
// engine's request type.
func parseBookingRequest(body CreateSessionRequest) (scheduling.BookingRequest, *validationError) {
	var req scheduling.BookingRequest

	patientID, verr := parseID("patient_id", body.PatientID)
	if verr != nil {
		return req, verr
	}
	therapistID, verr := parseID("therapist_id", body.TherapistID)
	if verr != nil {
		return req, verr
	}
	serviceID, verr := parseID("service_id", body.ServiceID)
	if verr != nil {
		return req, verr
	}

	date, verr := parseDate("date", body.Date)
	if verr != nil {
		return req, verr
	}
	if verr := parseClock("time", body.Time); verr != nil {
		return req, verr
	}

	if body.DurationMinutes < minDurationMinutes || body.DurationMinutes > maxDurationMinutes {
		return req, invalid("invalid_duration", "duration_minutes must be between %d and %d",
			minDurationMinutes, maxDurationMinutes)
	}

	recurrence, verr := parseRecurrence(body.Recurrence)
	if verr != nil {
		return req, verr
	}
	policy, verr := parsePolicy(body.Policy)
	if verr != nil {
		return req, verr
	}

	return scheduling.BookingRequest{
		PatientID:       patientID,
		TherapistID:     therapistID,
		ServiceID:       serviceID,
		Date:            date,
		Time:            body.Time,
		DurationMinutes: body.DurationMinutes,
		Recurrence:      recurrence,
		Policy:          policy,
	}, nil
}
