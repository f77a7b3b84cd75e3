package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisclient "github.com/clinicware/session-scheduler/internal/redis"
	"github.com/clinicware/session-scheduler/internal/scheduling"
)

func availabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		therapistID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_therapist_id", "id must be a valid UUID")
			return
		}

		date, verr := parseDate("date", r.URL.Query().Get("date"))
		if verr != nil {
			writeError(w, http.StatusBadRequest, verr.code, verr.details)
			return
		}

		duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
		if err != nil || duration < minDurationMinutes || duration > maxDurationMinutes {
			writeError(w, http.StatusBadRequest, "invalid_duration",
				"duration must be an integer between 15 and 480")
			return
		}

		day, err := svc.Availability(r.Context(), therapistID, date, duration)
		if err != nil {
			if errors.Is(err, scheduling.ErrTherapistNotFound) {
				writeError(w, http.StatusNotFound, "therapist_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := AvailabilityResponse{
			TherapistID: therapistID,
			Date:        date.Format("2006-01-02"),
			Slots:       day.Slots,
			Sessions:    make([]SessionResponse, 0, len(day.Sessions)),
		}
		if resp.Slots == nil {
			resp.Slots = []string{}
		}
		if day.Schedule != nil {
			resp.Schedule = &ScheduleSummary{
				StartTime:  day.Schedule.StartTime,
				EndTime:    day.Schedule.EndTime,
				BreakStart: day.Schedule.BreakStart,
				BreakEnd:   day.Schedule.BreakEnd,
				Active:     day.Schedule.Active,
			}
		}
		for i := range day.Sessions {
			resp.Sessions = append(resp.Sessions, toSessionResponse(&day.Sessions[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createSessionHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		req, verr := parseBookingRequest(body)
		if verr != nil {
			writeError(w, http.StatusBadRequest, verr.code, verr.details)
			return
		}

		if req.Recurrence != nil {
			outcome, err := svc.BookRecurringSeries(r.Context(), req)
			if err != nil {
				handleBookingError(w, err)
				return
			}

			resp := SeriesResponse{
				Created: make([]SessionResponse, 0, len(outcome.Created)),
				Skipped: make([]SkippedOccurrenceBody, 0, len(outcome.Skipped)),
			}
			for i := range outcome.Created {
				resp.Created = append(resp.Created, toSessionResponse(&outcome.Created[i]))
			}
			for _, skip := range outcome.Skipped {
				resp.Skipped = append(resp.Skipped, SkippedOccurrenceBody{
					Date:      skip.Date.Format("2006-01-02"),
					Conflicts: toConflictBodies(skip.Conflicts),
				})
			}

			writeJSON(w, http.StatusCreated, resp)
			return
		}

		outcome, err := svc.BookSession(r.Context(), req)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		if !outcome.Accepted() {
			status := http.StatusConflict
			if len(outcome.Conflicts) == 0 {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, RejectionResponse{
				Conflicts:    toConflictBodies(outcome.Conflicts),
				Remediations: outcome.Remediations,
				Violations:   toViolationBodies(outcome.Violations),
			})
			return
		}

		writeJSON(w, http.StatusCreated, toSessionResponse(outcome.Session))
	}
}

func getSessionHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}

		sess, err := repo.GetSessionByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, scheduling.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "session_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

func rescheduleSessionHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}

		var body RescheduleSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		newDate, verr := parseDate("new_date", body.NewDate)
		if verr != nil {
			writeError(w, http.StatusBadRequest, verr.code, verr.details)
			return
		}
		if verr := parseClock("new_time", body.NewTime); verr != nil {
			writeError(w, http.StatusBadRequest, verr.code, verr.details)
			return
		}

		outcome, err := svc.Reschedule(r.Context(), scheduling.RescheduleRequest{
			SessionID:       id,
			NewDate:         newDate,
			NewTime:         body.NewTime,
			Reason:          body.Reason,
			NotifyPatient:   body.NotifyPatient,
			NotifyTherapist: body.NotifyTherapist,
		})
		if err != nil {
			if errors.Is(err, scheduling.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "session_not_found", err.Error())
				return
			}
			handleBookingError(w, err)
			return
		}

		if !outcome.Accepted() {
			writeJSON(w, http.StatusConflict, RejectionResponse{
				Conflicts:    toConflictBodies(outcome.Conflicts),
				Remediations: outcome.Remediations,
			})
			return
		}

		writeJSON(w, http.StatusOK, toSessionResponse(outcome.Session))
	}
}

func bulkScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body BulkScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(body.Sessions) == 0 {
			writeError(w, http.StatusBadRequest, "empty_batch", "sessions must contain at least one entry")
			return
		}

		resp := BulkScheduleResponse{
			Total:     len(body.Sessions),
			Successes: []BulkItemBody{},
			Failures:  []BulkItemBody{},
		}

		// Shape validation happens per item so one malformed entry fails
		// alone rather than rejecting the batch.
		reqs := make([]scheduling.BookingRequest, 0, len(body.Sessions))
		indexes := make([]int, 0, len(body.Sessions))
		for i, item := range body.Sessions {
			req, verr := parseBookingRequest(item)
			if verr != nil {
				resp.Failed++
				resp.Failures = append(resp.Failures, BulkItemBody{Index: i, Error: verr.Error()})
				continue
			}
			reqs = append(reqs, req)
			indexes = append(indexes, i)
		}

		report := svc.BulkSchedule(r.Context(), reqs)
		resp.Successful = report.Successful
		resp.Failed += report.Failed

		for _, item := range report.Successes {
			resp.Successes = append(resp.Successes, BulkItemBody{
				Index:   indexes[item.Index],
				Session: sessionBodyPtr(item.Session),
			})
		}
		for _, item := range report.Failures {
			resp.Failures = append(resp.Failures, BulkItemBody{
				Index:      indexes[item.Index],
				Conflicts:  toConflictBodies(item.Conflicts),
				Violations: toViolationBodies(item.Violations),
				Error:      item.Error,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func sessionBodyPtr(sess *scheduling.BookedSession) *SessionResponse {
	if sess == nil {
		return nil
	}
	body := toSessionResponse(sess)
	return &body
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrTherapistNotFound):
		writeError(w, http.StatusNotFound, "therapist_not_found", err.Error())
	case errors.Is(err, scheduling.ErrDayBeingScheduled),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "day_being_scheduled",
			"this therapist's day is currently being scheduled, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
