package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/jobs"
)

// ParseJobMessage is the wire form of a queued parse job. It carries the
// whole request so a worker can run it even when it cannot see the
// publisher's job store.
type ParseJobMessage struct {
	JobID      string    `json:"jobId"`
	UserID     string    `json:"userId"`
	Text       string    `json:"text"`
	VehicleID  string    `json:"vehicleId,omitempty"`
	AutoSave   bool      `json:"autoSave"`
	Attempt    int       `json:"attempt"`
	MaxRetries int       `json:"maxRetries"`
	CreatedAt  time.Time `json:"createdAt"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewParseJobMessage builds the message for job.
func NewParseJobMessage(job *jobs.ParseTextJob, now time.Time) *ParseJobMessage {
	return &ParseJobMessage{
		JobID:      job.ID,
		UserID:     job.UserID,
		Text:       job.Text,
		VehicleID:  job.VehicleID,
		AutoSave:   job.AutoSave,
		Attempt:    job.RetryCount,
		MaxRetries: job.MaxRetries,
		CreatedAt:  job.CreatedAt,
		Timestamp:  now,
	}
}

func (m *ParseJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ParseJobMessageFromJSON decodes a message and rejects ones without a job or user id.
func ParseJobMessageFromJSON(data []byte) (*ParseJobMessage, error) {
	var msg ParseJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.JobID == "" || msg.UserID == "" {
		return nil, fmt.Errorf("message is missing jobId or userId")
	}
	return &msg, nil
}

// Job rebuilds a queued job from the message.
func (m *ParseJobMessage) Job() *jobs.ParseTextJob {
	return &jobs.ParseTextJob{
		ID:         m.JobID,
		UserID:     m.UserID,
		Text:       m.Text,
		VehicleID:  m.VehicleID,
		AutoSave:   m.AutoSave,
		Status:     jobs.JobStatusQueued,
		RetryCount: m.Attempt,
		MaxRetries: m.MaxRetries,
		CreatedAt:  m.CreatedAt,
	}
}
