package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound   = errors.New("patient not found")
	ErrTherapistNotFound = errors.New("therapist not found")
	ErrScheduleNotFound  = errors.New("working schedule not found")
	ErrSessionNotFound   = errors.New("session not found")
)

// PolicyScope selects which override layer a stored policy row belongs to.
type PolicyScope string

const (
	PolicyScopeTherapist PolicyScope = "therapist"
	PolicyScopeService   PolicyScope = "service"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetTherapistByID(ctx context.Context, id uuid.UUID) (*Therapist, error)

	// GetWorkingSchedule returns the therapist's schedule row for one weekday,
	// or ErrScheduleNotFound when none is configured.
	GetWorkingSchedule(ctx context.Context, therapistID uuid.UUID, weekday time.Weekday) (*WorkingSchedule, error)

	// ListActiveSessions returns every capacity-occupying session for the
	// therapist on the given date.
	ListActiveSessions(ctx context.Context, therapistID uuid.UUID, date time.Time) ([]BookedSession, error)

	GetSessionByID(ctx context.Context, id uuid.UUID) (*BookedSession, error)
	CreateSession(ctx context.Context, sess BookedSession) (*BookedSession, error)

	// UpdateSessionTime moves a session to a new date/time and replaces its
	// notes in the same statement.
	UpdateSessionTime(ctx context.Context, id uuid.UUID, date time.Time, hhmm string, notes string) (*BookedSession, error)

	// GetPolicyOverride returns the stored override for a therapist or
	// service, or nil when none is configured.
	GetPolicyOverride(ctx context.Context, scope PolicyScope, id uuid.UUID) (*PolicyOverride, error)

	// Reminder worker
	FindSessionsStartingBetween(ctx context.Context, from, to time.Time) ([]BookedSession, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
