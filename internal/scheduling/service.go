package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/session-scheduler/internal/notify"
	redisclient "github.com/clinicware/session-scheduler/internal/redis"
)

const (
	EventSessionBooked      = "SESSION_BOOKED"
	EventSeriesBooked       = "SERIES_BOOKED"
	EventSessionRescheduled = "SESSION_RESCHEDULED"
	EventReminderSent       = "REMINDER_SENT"
)

var (
	ErrDayBeingScheduled = errors.New("therapist's day is currently being scheduled, please retry")
)

type Service struct {
	repo          Repository
	locker        redisclient.Locker
	notifier      notify.Dispatcher
	defaultPolicy SchedulingPolicy
	now           func() time.Time
}

// NewService wires the engine to its collaborators. A nil clock defaults to
// time.Now; tests pass a fixed clock so advance-window checks are
// deterministic.
func NewService(repo Repository, locker redisclient.Locker, notifier notify.Dispatcher, defaultPolicy SchedulingPolicy, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:          repo,
		locker:        locker,
		notifier:      notifier,
		defaultPolicy: defaultPolicy,
		now:           clock,
	}
}

type BookingRequest struct {
	PatientID       uuid.UUID
	TherapistID     uuid.UUID
	ServiceID       uuid.UUID
	Date            time.Time
	Time            string // "HH:MM"
	DurationMinutes int
	Recurrence      *RecurrencePattern
	Policy          *SchedulingPolicy // replaces the resolved policy when set
}

// BookingOutcome is the engine's verdict on a single booking. Exactly one of
// Session or the rejection fields is populated; conflicts and violations are
// data, never errors.
type BookingOutcome struct {
	Session      *BookedSession
	Conflicts    []Conflict
	Remediations []string
	Violations   []PolicyViolation
}

func (o *BookingOutcome) Accepted() bool {
	return o.Session != nil
}

// SkippedOccurrence records one series date that could not be booked and why.
type SkippedOccurrence struct {
	Date      time.Time
	Conflicts []Conflict
}

type SeriesOutcome struct {
	Created []BookedSession
	Skipped []SkippedOccurrence
}

type DayAvailability struct {
	Date     time.Time
	Schedule *WorkingSchedule
	Slots    []string
	Sessions []BookedSession
}

type RescheduleRequest struct {
	SessionID       uuid.UUID
	NewDate         time.Time
	NewTime         string
	Reason          string
	NotifyPatient   bool
	NotifyTherapist bool
}

type RescheduleOutcome struct {
	Session      *BookedSession
	Conflicts    []Conflict
	Remediations []string
}

func (o *RescheduleOutcome) Accepted() bool {
	return o.Session != nil
}

// DetectConflicts runs the full conflict check for a candidate booking:
// overlap against every active session that day, then working-hours and
// break-window shape checks. A failed persistence lookup degrades to an
// error-typed conflict; the returned list is the complete verdict and no
// error is ever thrown for a conflict.
func (s *Service) DetectConflicts(ctx context.Context, therapistID uuid.UUID, date time.Time, hhmm string, durationMinutes int, excludeID *uuid.UUID) []Conflict {
	start, err := ToMinutes(hhmm)
	if err != nil {
		return []Conflict{{Type: ConflictError, Message: err.Error()}}
	}
	end := start + durationMinutes

	sessions, err := s.repo.ListActiveSessions(ctx, therapistID, date)
	if err != nil {
		return []Conflict{{
			Type:    ConflictError,
			Message: fmt.Sprintf("could not load existing sessions: %v", err),
		}}
	}

	conflicts := SessionOverlaps(start, end, sessions, excludeID)

	schedule, err := s.repo.GetWorkingSchedule(ctx, therapistID, date.Weekday())
	switch {
	case errors.Is(err, ErrScheduleNotFound):
		conflicts = append(conflicts, CheckWindow(nil, start, end)...)
	case err != nil:
		conflicts = append(conflicts, Conflict{
			Type:    ConflictError,
			Message: fmt.Sprintf("could not load working schedule: %v", err),
		})
	default:
		conflicts = append(conflicts, CheckWindow(schedule, start, end)...)
	}

	return conflicts
}

// Availability returns the free slots, day schedule, and existing sessions
// for one therapist-day. A day without a schedule is not an error; it simply
// has no slots.
func (s *Service) Availability(ctx context.Context, therapistID uuid.UUID, date time.Time, durationMinutes int) (*DayAvailability, error) {
	if _, err := s.repo.GetTherapistByID(ctx, therapistID); err != nil {
		if errors.Is(err, ErrTherapistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load therapist: %w", err)
	}

	schedule, err := s.repo.GetWorkingSchedule(ctx, therapistID, date.Weekday())
	if err != nil && !errors.Is(err, ErrScheduleNotFound) {
		return nil, fmt.Errorf("load working schedule: %w", err)
	}

	sessions, err := s.repo.ListActiveSessions(ctx, therapistID, date)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	return &DayAvailability{
		Date:     date,
		Schedule: schedule,
		Slots:    GenerateSlots(schedule, sessions, durationMinutes),
		Sessions: sessions,
	}, nil
}

// BookSession books one session. The conflict check and the insert run inside
// the same per-therapist-day critical section so two concurrent requests for
// the same slot cannot both pass the check.
func (s *Service) BookSession(ctx context.Context, req BookingRequest) (*BookingOutcome, error) {
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetTherapistByID(ctx, req.TherapistID); err != nil {
		if errors.Is(err, ErrTherapistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load therapist: %w", err)
	}

	policy, err := s.resolvePolicy(ctx, req)
	if err != nil {
		return nil, err
	}

	var outcome *BookingOutcome

	err = s.locker.WithDayLock(ctx, req.TherapistID, req.Date, func(lockCtx context.Context) error {
		conflicts := s.DetectConflicts(lockCtx, req.TherapistID, req.Date, req.Time, req.DurationMinutes, nil)
		if len(conflicts) > 0 {
			outcome = &BookingOutcome{Conflicts: conflicts, Remediations: remediations(conflicts)}
			return nil
		}

		violations := ValidatePolicy(s.now(), req.Date, req.Time, &policy)
		if len(violations) > 0 {
			outcome = &BookingOutcome{Violations: violations}
			return nil
		}

		sess, err := s.repo.CreateSession(lockCtx, BookedSession{
			PatientID:       req.PatientID,
			TherapistID:     req.TherapistID,
			ServiceID:       req.ServiceID,
			ScheduledDate:   req.Date,
			ScheduledTime:   req.Time,
			DurationMinutes: req.DurationMinutes,
			Status:          StatusScheduled,
		})
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		outcome = &BookingOutcome{Session: sess}

		s.logEvent(lockCtx, sess.ID, EventSessionBooked, map[string]any{
			"therapist_id": req.TherapistID.String(),
			"date":         req.Date.Format("2006-01-02"),
			"time":         req.Time,
			"duration":     req.DurationMinutes,
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDayBeingScheduled
		}
		return nil, err
	}

	return outcome, nil
}

// BookRecurringSeries expands the recurrence pattern and books every clean
// occurrence at the request's time and duration. Each occurrence is
// independently conflict-checked inside its own day lock; colliding or
// failing dates are skipped and reported, never aborting the rest of the
// series.
func (s *Service) BookRecurringSeries(ctx context.Context, req BookingRequest) (*SeriesOutcome, error) {
	if req.Recurrence == nil {
		return nil, errors.New("recurrence pattern is required")
	}

	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetTherapistByID(ctx, req.TherapistID); err != nil {
		if errors.Is(err, ErrTherapistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load therapist: %w", err)
	}

	dates := Expand(req.Date, *req.Recurrence)

	outcome := &SeriesOutcome{}

	for _, date := range dates {
		err := s.locker.WithDayLock(ctx, req.TherapistID, date, func(lockCtx context.Context) error {
			conflicts := s.DetectConflicts(lockCtx, req.TherapistID, date, req.Time, req.DurationMinutes, nil)
			if len(conflicts) > 0 {
				outcome.Skipped = append(outcome.Skipped, SkippedOccurrence{Date: date, Conflicts: conflicts})
				return nil
			}

			sess, err := s.repo.CreateSession(lockCtx, BookedSession{
				PatientID:       req.PatientID,
				TherapistID:     req.TherapistID,
				ServiceID:       req.ServiceID,
				ScheduledDate:   date,
				ScheduledTime:   req.Time,
				DurationMinutes: req.DurationMinutes,
				Status:          StatusScheduled,
			})
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}

			outcome.Created = append(outcome.Created, *sess)
			return nil
		})
		if err != nil {
			// One occurrence's failure never aborts its siblings.
			outcome.Skipped = append(outcome.Skipped, SkippedOccurrence{
				Date: date,
				Conflicts: []Conflict{{
					Type:    ConflictError,
					Message: err.Error(),
				}},
			})
		}
	}

	if len(outcome.Created) > 0 {
		s.logEvent(ctx, outcome.Created[0].ID, EventSeriesBooked, map[string]any{
			"therapist_id": req.TherapistID.String(),
			"frequency":    string(req.Recurrence.Frequency),
			"created":      len(outcome.Created),
			"skipped":      len(outcome.Skipped),
		})
	}

	return outcome, nil
}

// Reschedule moves a session to a new date/time. The session itself is
// excluded from the conflict check so moving a session onto its own current
// slot reports no conflicts. Notification failures are logged and never fail
// the operation.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleOutcome, error) {
	sess, err := s.repo.GetSessionByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var outcome *RescheduleOutcome

	err = s.locker.WithDayLock(ctx, sess.TherapistID, req.NewDate, func(lockCtx context.Context) error {
		excludeID := sess.ID
		conflicts := s.DetectConflicts(lockCtx, sess.TherapistID, req.NewDate, req.NewTime, sess.DurationMinutes, &excludeID)
		if len(conflicts) > 0 {
			outcome = &RescheduleOutcome{Conflicts: conflicts, Remediations: remediations(conflicts)}
			return nil
		}

		notes := appendAuditNote(sess.Notes, fmt.Sprintf("rescheduled from %s %s to %s %s: %s",
			sess.ScheduledDate.Format("2006-01-02"), sess.ScheduledTime,
			req.NewDate.Format("2006-01-02"), req.NewTime, req.Reason))

		updated, err := s.repo.UpdateSessionTime(lockCtx, sess.ID, req.NewDate, req.NewTime, notes)
		if err != nil {
			return fmt.Errorf("update session time: %w", err)
		}

		outcome = &RescheduleOutcome{Session: updated}

		s.logEvent(lockCtx, updated.ID, EventSessionRescheduled, map[string]any{
			"old_date": sess.ScheduledDate.Format("2006-01-02"),
			"old_time": sess.ScheduledTime,
			"new_date": req.NewDate.Format("2006-01-02"),
			"new_time": req.NewTime,
			"reason":   req.Reason,
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDayBeingScheduled
		}
		return nil, err
	}

	if outcome.Accepted() && (req.NotifyPatient || req.NotifyTherapist) {
		notice := notify.RescheduleNotice{
			SessionID:       sess.ID,
			PatientID:       sess.PatientID,
			TherapistID:     sess.TherapistID,
			OldDate:         sess.ScheduledDate.Format("2006-01-02"),
			OldTime:         sess.ScheduledTime,
			NewDate:         req.NewDate.Format("2006-01-02"),
			NewTime:         req.NewTime,
			Reason:          req.Reason,
			NotifyPatient:   req.NotifyPatient,
			NotifyTherapist: req.NotifyTherapist,
		}
		if err := s.notifier.NotifyReschedule(ctx, notice); err != nil {
			log.Printf("failed to dispatch reschedule notice for session %s: %v", sess.ID, err)
		}
	}

	return outcome, nil
}

// BulkItemResult reports the fate of one request in a bulk batch.
type BulkItemResult struct {
	Index      int
	Session    *BookedSession
	Conflicts  []Conflict
	Violations []PolicyViolation
	Error      string
}

type BulkReport struct {
	Total      int
	Successful int
	Failed     int
	Successes  []BulkItemResult
	Failures   []BulkItemResult
}

// BulkSchedule processes each request inside its own error boundary and
// reports partial success. No item's failure, whatever its kind, aborts the
// batch.
func (s *Service) BulkSchedule(ctx context.Context, reqs []BookingRequest) *BulkReport {
	report := &BulkReport{Total: len(reqs)}

	for i, req := range reqs {
		item := BulkItemResult{Index: i}

		outcome, err := s.BookSession(ctx, req)
		switch {
		case err != nil:
			item.Error = err.Error()
		case outcome.Accepted():
			item.Session = outcome.Session
		default:
			item.Conflicts = outcome.Conflicts
			item.Violations = outcome.Violations
		}

		if item.Session != nil {
			report.Successful++
			report.Successes = append(report.Successes, item)
		} else {
			report.Failed++
			report.Failures = append(report.Failures, item)
		}
	}

	return report
}

// DispatchReminders publishes a reminder for every session starting inside
// the window. Called periodically by the reminder worker.
func (s *Service) DispatchReminders(ctx context.Context, from, to time.Time) (int, error) {
	sessions, err := s.repo.FindSessionsStartingBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("find upcoming sessions: %w", err)
	}

	sent := 0
	for _, sess := range sessions {
		notice := notify.ReminderNotice{
			SessionID:   sess.ID,
			PatientID:   sess.PatientID,
			TherapistID: sess.TherapistID,
			Date:        sess.ScheduledDate.Format("2006-01-02"),
			Time:        sess.ScheduledTime,
		}
		if err := s.notifier.NotifyReminder(ctx, notice); err != nil {
			log.Printf("failed to dispatch reminder for session %s: %v", sess.ID, err)
			continue
		}
		sent++

		s.logEvent(ctx, sess.ID, EventReminderSent, map[string]any{
			"date": notice.Date,
			"time": notice.Time,
		})
	}

	return sent, nil
}

// resolvePolicy merges default < therapist < service overrides, unless the
// request carries an explicit policy, which replaces the merge entirely.
func (s *Service) resolvePolicy(ctx context.Context, req BookingRequest) (SchedulingPolicy, error) {
	if req.Policy != nil {
		return *req.Policy, nil
	}

	therapistOverride, err := s.repo.GetPolicyOverride(ctx, PolicyScopeTherapist, req.TherapistID)
	if err != nil {
		return SchedulingPolicy{}, fmt.Errorf("load therapist policy: %w", err)
	}
	serviceOverride, err := s.repo.GetPolicyOverride(ctx, PolicyScopeService, req.ServiceID)
	if err != nil {
		return SchedulingPolicy{}, fmt.Errorf("load service policy: %w", err)
	}

	return MergePolicies(s.defaultPolicy, therapistOverride, serviceOverride), nil
}

func remediations(conflicts []Conflict) []string {
	seen := make(map[ConflictType]bool)
	var hints []string
	for _, c := range conflicts {
		if seen[c.Type] {
			continue
		}
		seen[c.Type] = true
		hints = append(hints, RemediationHint(c.Type))
	}
	return hints
}

func appendAuditNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "\n" + note
}

func (s *Service) logEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	sessID := sessionID

	ev := EventLog{
		EventType: eventType,
		SessionID: &sessID,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for session %s: %v", eventType, sessionID, err)
	}
}
