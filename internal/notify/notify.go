package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelReschedules = "notifications:reschedules"
	channelReminders   = "notifications:reminders"
)

// RescheduleNotice describes a completed reschedule for downstream delivery
// (email/SMS workers subscribe to the channel).
type RescheduleNotice struct {
	SessionID       uuid.UUID `json:"session_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	TherapistID     uuid.UUID `json:"therapist_id"`
	OldDate         string    `json:"old_date"`
	OldTime         string    `json:"old_time"`
	NewDate         string    `json:"new_date"`
	NewTime         string    `json:"new_time"`
	Reason          string    `json:"reason"`
	NotifyPatient   bool      `json:"notify_patient"`
	NotifyTherapist bool      `json:"notify_therapist"`
	SentAt          time.Time `json:"sent_at"`
}

// ReminderNotice is published for each session approaching its start time.
type ReminderNotice struct {
	SessionID   uuid.UUID `json:"session_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	TherapistID uuid.UUID `json:"therapist_id"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	SentAt      time.Time `json:"sent_at"`
}

// Dispatcher delivers notifications out of band. Implementations must never
// block or fail the scheduling operation that triggered them: callers treat
// errors as log-only.
type Dispatcher interface {
	NotifyReschedule(ctx context.Context, notice RescheduleNotice) error
	NotifyReminder(ctx context.Context, notice ReminderNotice) error
}

type redisDispatcher struct {
	client *redis.Client
}

// NewRedisDispatcher publishes notices as JSON on Redis pub/sub channels.
func NewRedisDispatcher(client *redis.Client) Dispatcher {
	return &redisDispatcher{client: client}
}

func (d *redisDispatcher) NotifyReschedule(ctx context.Context, notice RescheduleNotice) error {
	notice.SentAt = time.Now()
	return d.publish(ctx, channelReschedules, notice)
}

func (d *redisDispatcher) NotifyReminder(ctx context.Context, notice ReminderNotice) error {
	notice.SentAt = time.Now()
	return d.publish(ctx, channelReminders, notice)
}

func (d *redisDispatcher) publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := d.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// LogDispatcher writes notifications to the process log instead of a broker.
// Used by tests and local runs without Redis.
type LogDispatcher struct{}

func (LogDispatcher) NotifyReschedule(_ context.Context, notice RescheduleNotice) error {
	log.Printf("reschedule notice session=%s new=%s %s notify_patient=%t notify_therapist=%t",
		notice.SessionID, notice.NewDate, notice.NewTime, notice.NotifyPatient, notice.NotifyTherapist)
	return nil
}

func (LogDispatcher) NotifyReminder(_ context.Context, notice ReminderNotice) error {
	log.Printf("reminder notice session=%s at %s %s", notice.SessionID, notice.Date, notice.Time)
	return nil
}
