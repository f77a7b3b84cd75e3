package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/clinicware/session-scheduler/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// Response mappers

func toSessionResponse(sess *scheduling.BookedSession) SessionResponse {
	return SessionResponse{
		ID:              sess.ID,
		PatientID:       sess.PatientID,
		TherapistID:     sess.TherapistID,
		ServiceID:       sess.ServiceID,
		Date:            sess.ScheduledDate.Format("2006-01-02"),
		Time:            sess.ScheduledTime,
		DurationMinutes: sess.DurationMinutes,
		Status:          string(sess.Status),
		Notes:           sess.Notes,
		CreatedAt:       sess.CreatedAt,
		UpdatedAt:       sess.UpdatedAt,
	}
}

func toConflictBodies(conflicts []scheduling.Conflict) []ConflictBody {
	out := make([]ConflictBody, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, ConflictBody{
			Type:            string(c.Type),
			Message:         c.Message,
			SessionID:       c.SessionID,
			SessionTime:     c.SessionTime,
			SessionDuration: c.SessionDuration,
		})
	}
	return out
}

func toViolationBodies(violations []scheduling.PolicyViolation) []ViolationBody {
	out := make([]ViolationBody, 0, len(violations))
	for _, v := range violations {
		out = append(out, ViolationBody{Code: string(v.Code), Message: v.Message})
	}
	return out
}
