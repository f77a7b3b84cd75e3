package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/session-scheduler/internal/notify"
)

// Stub collaborators

type scheduleKey struct {
	therapist uuid.UUID
	weekday   time.Weekday
}

type overrideKey struct {
	scope PolicyScope
	id    uuid.UUID
}

type stubRepo struct {
	mu         sync.Mutex
	patients   map[uuid.UUID]*Patient
	therapists map[uuid.UUID]*Therapist
	schedules  map[scheduleKey]*WorkingSchedule
	sessions   map[uuid.UUID]*BookedSession
	overrides  map[overrideKey]*PolicyOverride
	events     []EventLog

	listErr   error
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		patients:   make(map[uuid.UUID]*Patient),
		therapists: make(map[uuid.UUID]*Therapist),
		schedules:  make(map[scheduleKey]*WorkingSchedule),
		sessions:   make(map[uuid.UUID]*BookedSession),
		overrides:  make(map[overrideKey]*PolicyOverride),
	}
}

func (r *stubRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (r *stubRepo) GetTherapistByID(_ context.Context, id uuid.UUID) (*Therapist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.therapists[id]
	if !ok {
		return nil, ErrTherapistNotFound
	}
	return t, nil
}

func (r *stubRepo) GetWorkingSchedule(_ context.Context, therapistID uuid.UUID, weekday time.Weekday) (*WorkingSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.schedules[scheduleKey{therapist: therapistID, weekday: weekday}]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	return ws, nil
}

func (r *stubRepo) ListActiveSessions(_ context.Context, therapistID uuid.UUID, date time.Time) ([]BookedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}

	var result []BookedSession
	for _, sess := range r.sessions {
		if sess.TherapistID == therapistID && sess.ScheduledDate.Equal(date) && sess.Status.Active() {
			result = append(result, *sess)
		}
	}
	return result, nil
}

func (r *stubRepo) GetSessionByID(_ context.Context, id uuid.UUID) (*BookedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *sess
	return &copied, nil
}

func (r *stubRepo) CreateSession(_ context.Context, sess BookedSession) (*BookedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}

	sess.ID = uuid.New()
	sess.CreatedAt = time.Now()
	sess.UpdatedAt = sess.CreatedAt
	stored := sess
	r.sessions[sess.ID] = &stored
	copied := sess
	return &copied, nil
}

func (r *stubRepo) UpdateSessionTime(_ context.Context, id uuid.UUID, date time.Time, hhmm string, notes string) (*BookedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.ScheduledDate = date
	sess.ScheduledTime = hhmm
	sess.Notes = notes
	sess.UpdatedAt = time.Now()
	copied := *sess
	return &copied, nil
}

func (r *stubRepo) GetPolicyOverride(_ context.Context, scope PolicyScope, id uuid.UUID) (*PolicyOverride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overrides[overrideKey{scope: scope, id: id}], nil
}

func (r *stubRepo) FindSessionsStartingBetween(_ context.Context, from, to time.Time) ([]BookedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []BookedSession
	for _, sess := range r.sessions {
		start, err := ToMinutes(sess.ScheduledTime)
		if err != nil {
			continue
		}
		at := sess.ScheduledDate.Add(time.Duration(start) * time.Minute)
		if sess.Status.Active() && !at.Before(from) && at.Before(to) {
			result = append(result, *sess)
		}
	}
	return result, nil
}

func (r *stubRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *stubRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

// mutexLocker serializes callers per therapist-day key the way the Redis
// locker does in production, without needing Redis.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexLocker) WithDayLock(ctx context.Context, therapistID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("%s:%s", therapistID, date.Format("2006-01-02"))

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type stubDispatcher struct {
	mu          sync.Mutex
	reschedules []notify.RescheduleNotice
	reminders   []notify.ReminderNotice
	failWith    error
}

func (d *stubDispatcher) NotifyReschedule(_ context.Context, notice notify.RescheduleNotice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return d.failWith
	}
	d.reschedules = append(d.reschedules, notice)
	return nil
}

func (d *stubDispatcher) NotifyReminder(_ context.Context, notice notify.ReminderNotice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return d.failWith
	}
	d.reminders = append(d.reminders, notice)
	return nil
}

// Fixture helpers

var testClock = func() time.Time { return date(2024, time.June, 3) } // a Monday

type fixture struct {
	repo       *stubRepo
	locker     *mutexLocker
	dispatcher *stubDispatcher
	svc        *Service
	patient    uuid.UUID
	therapist  uuid.UUID
	service    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newStubRepo()
	locker := newMutexLocker()
	dispatcher := &stubDispatcher{}

	f := &fixture{
		repo:       repo,
		locker:     locker,
		dispatcher: dispatcher,
		patient:    uuid.New(),
		therapist:  uuid.New(),
		service:    uuid.New(),
	}

	repo.patients[f.patient] = &Patient{ID: f.patient, Name: "Jamie Doe"}
	repo.therapists[f.therapist] = &Therapist{ID: f.therapist, Name: "Dr. Reyes"}

	// Monday through Friday 09:00-17:00 with a 12:00-13:00 break.
	for wd := time.Monday; wd <= time.Friday; wd++ {
		repo.schedules[scheduleKey{therapist: f.therapist, weekday: wd}] = &WorkingSchedule{
			ID:          uuid.New(),
			TherapistID: f.therapist,
			Weekday:     wd,
			StartTime:   "09:00",
			EndTime:     "17:00",
			BreakStart:  strPtr("12:00"),
			BreakEnd:    strPtr("13:00"),
			Active:      true,
		}
	}

	defaultPolicy := SchedulingPolicy{AllowWeekends: false, MinAdvanceDays: 1, MaxAdvanceDays: 90}
	f.svc = NewService(repo, locker, dispatcher, defaultPolicy, testClock)

	return f
}

func (f *fixture) request(d time.Time, hhmm string, duration int) BookingRequest {
	return BookingRequest{
		PatientID:       f.patient,
		TherapistID:     f.therapist,
		ServiceID:       f.service,
		Date:            d,
		Time:            hhmm,
		DurationMinutes: duration,
	}
}

// Next Monday relative to the fixed test clock.
func nextMonday() time.Time { return date(2024, time.June, 10) }

func TestServiceDetectConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sunday has no schedule", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		sunday := date(2024, time.June, 9)
		conflicts := f.svc.DetectConflicts(ctx, f.therapist, sunday, "10:00", 60, nil)
		if len(conflicts) != 1 || conflicts[0].Type != ConflictNoSchedule {
			t.Fatalf("expected no_schedule, got %v", conflicts)
		}
	})

	t.Run("break conflict at 12:30", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		conflicts := f.svc.DetectConflicts(ctx, f.therapist, nextMonday(), "12:30", 60, nil)
		if len(conflicts) != 1 || conflicts[0].Type != ConflictBreakTime {
			t.Fatalf("expected break_time_conflict, got %v", conflicts)
		}
	})

	t.Run("lookup failure degrades to a single error conflict", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.listErr = errors.New("connection refused")

		conflicts := f.svc.DetectConflicts(ctx, f.therapist, nextMonday(), "10:00", 60, nil)
		if len(conflicts) != 1 || conflicts[0].Type != ConflictError {
			t.Fatalf("expected single error conflict, got %v", conflicts)
		}
	})
}

func TestBookSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("accepts a clean request and persists it", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		outcome, err := f.svc.BookSession(ctx, f.request(nextMonday(), "10:00", 60))
		if err != nil {
			t.Fatalf("BookSession failed: %v", err)
		}
		if !outcome.Accepted() {
			t.Fatalf("expected acceptance, got %+v", outcome)
		}
		if outcome.Session.Status != StatusScheduled {
			t.Fatalf("expected scheduled status, got %s", outcome.Session.Status)
		}
		if _, err := f.repo.GetSessionByID(ctx, outcome.Session.ID); err != nil {
			t.Fatalf("session not persisted: %v", err)
		}

		types := f.repo.eventTypes()
		if len(types) != 1 || types[0] != EventSessionBooked {
			t.Fatalf("expected one SESSION_BOOKED event, got %v", types)
		}
	})

	t.Run("immediately rebooking the same slot reports the overlap", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		first, err := f.svc.BookSession(ctx, f.request(nextMonday(), "10:00", 60))
		if err != nil || !first.Accepted() {
			t.Fatalf("first booking should succeed: %v %+v", err, first)
		}

		second, err := f.svc.BookSession(ctx, f.request(nextMonday(), "10:00", 60))
		if err != nil {
			t.Fatalf("BookSession failed: %v", err)
		}
		if second.Accepted() {
			t.Fatal("double booking was accepted")
		}
		if len(second.Conflicts) != 1 || second.Conflicts[0].Type != ConflictSessionOverlap {
			t.Fatalf("expected session_overlap, got %v", second.Conflicts)
		}
		if len(second.Remediations) == 0 {
			t.Fatal("rejection should carry remediation hints")
		}
	})

	t.Run("policy violations reject without persisting", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		// Tomorrow violates nothing; today violates min advance of 1.
		outcome, err := f.svc.BookSession(ctx, f.request(testClock(), "10:00", 60))
		if err != nil {
			t.Fatalf("BookSession failed: %v", err)
		}
		if outcome.Accepted() {
			t.Fatal("expected policy rejection")
		}
		if !hasViolation(outcome.Violations, ViolationTooSoon) {
			t.Fatalf("expected too_soon, got %v", outcome.Violations)
		}
		if len(f.repo.sessions) != 0 {
			t.Fatal("rejected booking must not persist")
		}
	})

	t.Run("request policy replaces the merged policy", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := f.request(testClock(), "10:00", 60)
		req.Policy = &SchedulingPolicy{MinAdvanceDays: 0, MaxAdvanceDays: 90, AllowWeekends: true}

		outcome, err := f.svc.BookSession(ctx, req)
		if err != nil {
			t.Fatalf("BookSession failed: %v", err)
		}
		if !outcome.Accepted() {
			t.Fatalf("request policy should permit same-day booking, got %+v", outcome)
		}
	})

	t.Run("service override outranks therapist override", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		three := 3
		seven := 7
		f.repo.overrides[overrideKey{scope: PolicyScopeTherapist, id: f.therapist}] = &PolicyOverride{MinAdvanceDays: &three}
		f.repo.overrides[overrideKey{scope: PolicyScopeService, id: f.service}] = &PolicyOverride{MinAdvanceDays: &seven}

		// Next Monday is 7 days out: satisfies the service override exactly.
		outcome, err := f.svc.BookSession(ctx, f.request(nextMonday(), "10:00", 60))
		if err != nil {
			t.Fatalf("BookSession failed: %v", err)
		}
		if !outcome.Accepted() {
			t.Fatalf("7 days out should satisfy min advance 7, got %+v", outcome)
		}

		// 4 days out satisfies the therapist override but not the service one.
		friday := date(2024, time.June, 7)
		outcome, err = f.svc.BookSession(ctx, f.request(friday, "10:00", 60))
		if err != nil {
			t.Fatalf("BookSession failed: %v", err)
		}
		if outcome.Accepted() || !hasViolation(outcome.Violations, ViolationTooSoon) {
			t.Fatalf("service override must win, got %+v", outcome)
		}
	})

	t.Run("unknown patient is an error, not a conflict", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := f.request(nextMonday(), "10:00", 60)
		req.PatientID = uuid.New()

		_, err := f.svc.BookSession(ctx, req)
		if !errors.Is(err, ErrPatientNotFound) {
			t.Fatalf("expected ErrPatientNotFound, got %v", err)
		}
	})

	t.Run("concurrent requests for one slot create exactly one session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		const attempts = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		accepted := 0

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, err := f.svc.BookSession(ctx, f.request(nextMonday(), "10:00", 60))
				if err != nil {
					t.Errorf("BookSession failed: %v", err)
					return
				}
				if outcome.Accepted() {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if accepted != 1 {
			t.Fatalf("expected exactly 1 accepted booking, got %d", accepted)
		}
		if len(f.repo.sessions) != 1 {
			t.Fatalf("expected exactly 1 persisted session, got %d", len(f.repo.sessions))
		}
	})
}

func TestBookRecurringSeries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("books every clean occurrence", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := f.request(nextMonday(), "10:00", 60)
		req.Recurrence = &RecurrencePattern{Frequency: FrequencyWeekly, OccurrenceCap: intPtr(4)}

		outcome, err := f.svc.BookRecurringSeries(ctx, req)
		if err != nil {
			t.Fatalf("BookRecurringSeries failed: %v", err)
		}
		if len(outcome.Created) != 4 || len(outcome.Skipped) != 0 {
			t.Fatalf("expected 4 created 0 skipped, got %d/%d", len(outcome.Created), len(outcome.Skipped))
		}
		for i, sess := range outcome.Created {
			if sess.ScheduledDate.Weekday() != time.Monday {
				t.Fatalf("occurrence %d not on a Monday: %v", i, sess.ScheduledDate)
			}
		}
		if len(f.repo.sessions) != 4 {
			t.Fatalf("expected 4 persisted sessions, got %d", len(f.repo.sessions))
		}
	})

	t.Run("colliding occurrences are skipped and reported", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		// Pre-book the second Monday of the series.
		blocked := nextMonday().AddDate(0, 0, 7)
		pre, err := f.svc.BookSession(ctx, f.request(blocked, "10:00", 60))
		if err != nil || !pre.Accepted() {
			t.Fatalf("pre-booking failed: %v %+v", err, pre)
		}

		req := f.request(nextMonday(), "10:00", 60)
		req.Recurrence = &RecurrencePattern{Frequency: FrequencyWeekly, OccurrenceCap: intPtr(3)}

		outcome, err := f.svc.BookRecurringSeries(ctx, req)
		if err != nil {
			t.Fatalf("BookRecurringSeries failed: %v", err)
		}
		if len(outcome.Created) != 2 {
			t.Fatalf("expected 2 created, got %d", len(outcome.Created))
		}
		if len(outcome.Skipped) != 1 {
			t.Fatalf("expected 1 skipped, got %d", len(outcome.Skipped))
		}
		skip := outcome.Skipped[0]
		if !skip.Date.Equal(blocked) {
			t.Fatalf("wrong skipped date: %v", skip.Date)
		}
		if len(skip.Conflicts) != 1 || skip.Conflicts[0].Type != ConflictSessionOverlap {
			t.Fatalf("expected session_overlap on the skipped date, got %v", skip.Conflicts)
		}
	})

	t.Run("requires a recurrence pattern", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		if _, err := f.svc.BookRecurringSeries(ctx, f.request(nextMonday(), "10:00", 60)); err == nil {
			t.Fatal("expected an error for a missing pattern")
		}
	})
}

func TestReschedule(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	book := func(t *testing.T, f *fixture) *BookedSession {
		t.Helper()
		outcome, err := f.svc.BookSession(ctx, f.request(nextMonday(), "10:00", 60))
		if err != nil || !outcome.Accepted() {
			t.Fatalf("setup booking failed: %v %+v", err, outcome)
		}
		return outcome.Session
	}

	t.Run("moves the session and notifies", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sess := book(t, f)

		outcome, err := f.svc.Reschedule(ctx, RescheduleRequest{
			SessionID:       sess.ID,
			NewDate:         nextMonday().AddDate(0, 0, 1),
			NewTime:         "14:00",
			Reason:          "patient request",
			NotifyPatient:   true,
			NotifyTherapist: true,
		})
		if err != nil {
			t.Fatalf("Reschedule failed: %v", err)
		}
		if !outcome.Accepted() {
			t.Fatalf("expected acceptance, got %+v", outcome)
		}
		if outcome.Session.ScheduledTime != "14:00" {
			t.Fatalf("time not updated: %s", outcome.Session.ScheduledTime)
		}
		if !strings.Contains(outcome.Session.Notes, "patient request") {
			t.Fatalf("audit note missing: %q", outcome.Session.Notes)
		}

		f.dispatcher.mu.Lock()
		defer f.dispatcher.mu.Unlock()
		if len(f.dispatcher.reschedules) != 1 {
			t.Fatalf("expected 1 reschedule notice, got %d", len(f.dispatcher.reschedules))
		}
		notice := f.dispatcher.reschedules[0]
		if notice.NewTime != "14:00" || !notice.NotifyPatient || !notice.NotifyTherapist {
			t.Fatalf("unexpected notice: %+v", notice)
		}
	})

	t.Run("rescheduling onto its own slot reports zero conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sess := book(t, f)

		outcome, err := f.svc.Reschedule(ctx, RescheduleRequest{
			SessionID: sess.ID,
			NewDate:   sess.ScheduledDate,
			NewTime:   sess.ScheduledTime,
		})
		if err != nil {
			t.Fatalf("Reschedule failed: %v", err)
		}
		if !outcome.Accepted() {
			t.Fatalf("self-reschedule must be clean, got %+v", outcome.Conflicts)
		}
	})

	t.Run("conflicting target is rejected with conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sess := book(t, f)

		other, err := f.svc.BookSession(ctx, f.request(nextMonday(), "14:00", 60))
		if err != nil || !other.Accepted() {
			t.Fatalf("second booking failed: %v %+v", err, other)
		}

		outcome, err := f.svc.Reschedule(ctx, RescheduleRequest{
			SessionID: sess.ID,
			NewDate:   nextMonday(),
			NewTime:   "14:30",
		})
		if err != nil {
			t.Fatalf("Reschedule failed: %v", err)
		}
		if outcome.Accepted() {
			t.Fatal("expected a conflict rejection")
		}
		if len(outcome.Conflicts) != 1 || outcome.Conflicts[0].Type != ConflictSessionOverlap {
			t.Fatalf("expected session_overlap, got %v", outcome.Conflicts)
		}

		// The session must not have moved.
		stored, _ := f.repo.GetSessionByID(ctx, sess.ID)
		if stored.ScheduledTime != "10:00" {
			t.Fatalf("rejected reschedule moved the session to %s", stored.ScheduledTime)
		}
	})

	t.Run("notification failure does not fail the reschedule", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sess := book(t, f)
		f.dispatcher.failWith = errors.New("broker down")

		outcome, err := f.svc.Reschedule(ctx, RescheduleRequest{
			SessionID:     sess.ID,
			NewDate:       nextMonday().AddDate(0, 0, 1),
			NewTime:       "11:00",
			NotifyPatient: true,
		})
		if err != nil {
			t.Fatalf("Reschedule must not fail on notification error: %v", err)
		}
		if !outcome.Accepted() {
			t.Fatalf("expected acceptance, got %+v", outcome)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.Reschedule(ctx, RescheduleRequest{SessionID: uuid.New(), NewDate: nextMonday(), NewTime: "10:00"})
		if !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestBulkSchedule(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("one conflicting item fails alone", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		// Occupy 11:00 so the third item conflicts.
		pre, err := f.svc.BookSession(ctx, f.request(nextMonday(), "11:00", 60))
		if err != nil || !pre.Accepted() {
			t.Fatalf("pre-booking failed: %v %+v", err, pre)
		}

		reqs := []BookingRequest{
			f.request(nextMonday(), "09:00", 60),
			f.request(nextMonday(), "10:00", 60),
			f.request(nextMonday(), "11:00", 60), // conflicts
			f.request(nextMonday(), "14:00", 60),
			f.request(nextMonday(), "15:00", 60),
		}

		report := f.svc.BulkSchedule(ctx, reqs)

		if report.Total != 5 || report.Successful != 4 || report.Failed != 1 {
			t.Fatalf("expected total=5 successful=4 failed=1, got %+v", report)
		}
		if len(report.Successes) != 4 || len(report.Failures) != 1 {
			t.Fatalf("result lists out of shape: %d/%d", len(report.Successes), len(report.Failures))
		}
		if report.Failures[0].Index != 2 {
			t.Fatalf("wrong failed index: %d", report.Failures[0].Index)
		}
		if len(report.Failures[0].Conflicts) == 0 {
			t.Fatal("failed item should carry its conflicts")
		}

		// The pre-booked session plus the 4 successes.
		if len(f.repo.sessions) != 5 {
			t.Fatalf("expected 5 persisted sessions, got %d", len(f.repo.sessions))
		}
	})

	t.Run("infrastructure failure becomes a per-item error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.repo.createErr = errors.New("disk full")

		report := f.svc.BulkSchedule(ctx, []BookingRequest{
			f.request(nextMonday(), "09:00", 60),
			f.request(nextMonday(), "10:00", 60),
		})

		if report.Failed != 2 || report.Successful != 0 {
			t.Fatalf("expected both items to fail, got %+v", report)
		}
		for _, item := range report.Failures {
			if item.Error == "" {
				t.Fatalf("infrastructure failure must surface per item, got %+v", item)
			}
		}
	})

	t.Run("empty batch reports zero everything", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		report := f.svc.BulkSchedule(ctx, nil)
		if report.Total != 0 || report.Successful != 0 || report.Failed != 0 {
			t.Fatalf("expected empty report, got %+v", report)
		}
	})
}

func TestAvailability(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns slots, schedule and sessions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		booked, err := f.svc.BookSession(ctx, f.request(nextMonday(), "10:00", 60))
		if err != nil || !booked.Accepted() {
			t.Fatalf("setup booking failed: %v", err)
		}

		day, err := f.svc.Availability(ctx, f.therapist, nextMonday(), 60)
		if err != nil {
			t.Fatalf("Availability failed: %v", err)
		}
		if day.Schedule == nil || day.Schedule.StartTime != "09:00" {
			t.Fatalf("schedule summary missing: %+v", day.Schedule)
		}
		if len(day.Sessions) != 1 {
			t.Fatalf("expected 1 existing session, got %d", len(day.Sessions))
		}
		for _, slot := range day.Slots {
			if slot == "10:00" {
				t.Fatal("booked slot still offered")
			}
		}
	})

	t.Run("day without schedule has no slots and no error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		sunday := date(2024, time.June, 9)
		day, err := f.svc.Availability(ctx, f.therapist, sunday, 60)
		if err != nil {
			t.Fatalf("Availability failed: %v", err)
		}
		if day.Schedule != nil || len(day.Slots) != 0 {
			t.Fatalf("expected empty day, got %+v", day)
		}
	})
}

func TestDispatchReminders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)

	booked, err := f.svc.BookSession(ctx, f.request(nextMonday(), "10:00", 60))
	if err != nil || !booked.Accepted() {
		t.Fatalf("setup booking failed: %v", err)
	}

	from := nextMonday()
	to := from.AddDate(0, 0, 1)

	sent, err := f.svc.DispatchReminders(ctx, from, to)
	if err != nil {
		t.Fatalf("DispatchReminders failed: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 reminder, got %d", sent)
	}

	f.dispatcher.mu.Lock()
	if len(f.dispatcher.reminders) != 1 || f.dispatcher.reminders[0].SessionID != booked.Session.ID {
		t.Fatalf("unexpected reminders: %+v", f.dispatcher.reminders)
	}
	f.dispatcher.mu.Unlock()

	types := f.repo.eventTypes()
	found := false
	for _, et := range types {
		if et == EventReminderSent {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected REMINDER_SENT event, got %v", types)
	}
}
