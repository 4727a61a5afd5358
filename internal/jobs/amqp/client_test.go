package amqp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/jobs"
	"github.com/dvloznov/vehicle-tracker/internal/jobs/inmemory"
)

type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func newTestClient(store jobs.JobStore) (*Client, *[]*ParseJobMessage) {
	c := newClient("vehicle_tracker", "parse_jobs", store)
	c.backoff = func(int) time.Duration { return 0 }
	var published []*ParseJobMessage
	c.publishFn = func(ctx context.Context, msg *ParseJobMessage) error {
		published = append(published, msg)
		return nil
	}
	return c, &published
}

func delivery(t *testing.T, msg *ParseJobMessage, ack *fakeAcknowledger) amqp091.Delivery {
	t.Helper()
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	return amqp091.Delivery{Acknowledger: ack, Body: body}
}

func TestParseJobMessage_RoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	job := &jobs.ParseTextJob{ID: "j1", UserID: "u1", Text: "fuel 100k", VehicleID: "v1", AutoSave: true, RetryCount: 2, MaxRetries: 3, CreatedAt: created}

	body, err := NewParseJobMessage(job, created).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	msg, err := ParseJobMessageFromJSON(body)
	if err != nil {
		t.Fatalf("ParseJobMessageFromJSON failed: %v", err)
	}

	got := msg.Job()
	if got.ID != "j1" || got.UserID != "u1" || got.Text != "fuel 100k" || got.VehicleID != "v1" || !got.AutoSave {
		t.Errorf("Unexpected job %+v", got)
	}
	if got.RetryCount != 2 || got.MaxRetries != 3 || got.Status != jobs.JobStatusQueued {
		t.Errorf("Unexpected retry state %+v", got)
	}
}

func TestParseJobMessageFromJSON_Invalid(t *testing.T) {
	for _, body := range []string{`not json`, `{"jobId":"j1"}`, `{"userId":"u1"}`} {
		if _, err := ParseJobMessageFromJSON([]byte(body)); err == nil {
			t.Errorf("Expected error for %s", body)
		}
	}
}

func TestPublishParseText_SavesAndPublishes(t *testing.T) {
	store := inmemory.NewStore()
	c, published := newTestClient(store)

	job := &jobs.ParseTextJob{UserID: "u1", Text: "wash 50k"}
	if err := c.PublishParseText(context.Background(), job); err != nil {
		t.Fatalf("PublishParseText failed: %v", err)
	}
	if len(*published) != 1 || (*published)[0].JobID != job.ID {
		t.Fatalf("Expected one message for %s, got %+v", job.ID, *published)
	}
	stored, err := store.GetJob(context.Background(), job.ID)
	if err != nil || stored.Status != jobs.JobStatusQueued {
		t.Errorf("Expected queued job in store, got %+v (%v)", stored, err)
	}
}

func TestHandleDelivery(t *testing.T) {
	tests := []struct {
		name          string
		handlerErr    error
		attempt       int
		wantStatus    jobs.JobStatus
		wantAck       int
		wantPublished int
	}{
		{name: "success", wantStatus: jobs.JobStatusCompleted, wantAck: 1},
		{name: "transient error republishes", handlerErr: domain.ErrUpstreamRequestFailed, wantStatus: jobs.JobStatusRetrying, wantAck: 1, wantPublished: 1},
		{name: "permanent error fails", handlerErr: domain.ErrAPIKeyMissing, wantStatus: jobs.JobStatusFailed, wantAck: 1},
		{name: "budget spent fails", handlerErr: errors.New("timeout"), attempt: 3, wantStatus: jobs.JobStatusFailed, wantAck: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := inmemory.NewStore()
			c, published := newTestClient(store)
			ack := &fakeAcknowledger{}

			msg := &ParseJobMessage{JobID: "j1", UserID: "u1", Text: "x", Attempt: tt.attempt, MaxRetries: 3}
			c.handleDelivery(context.Background(), delivery(t, msg, ack), func(ctx context.Context, job *jobs.ParseTextJob) error {
				return tt.handlerErr
			})

			if ack.acked != tt.wantAck || ack.nacked != 0 {
				t.Errorf("Expected %d acks and no nacks, got %d/%d", tt.wantAck, ack.acked, ack.nacked)
			}
			if len(*published) != tt.wantPublished {
				t.Errorf("Expected %d republished, got %d", tt.wantPublished, len(*published))
			}
			if tt.wantPublished > 0 && (*published)[0].Attempt != tt.attempt+1 {
				t.Errorf("Expected attempt %d, got %d", tt.attempt+1, (*published)[0].Attempt)
			}
			stored, err := store.GetJob(context.Background(), "j1")
			if err != nil {
				t.Fatalf("GetJob failed: %v", err)
			}
			if stored.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, stored.Status)
			}
		})
	}
}

func TestHandleDelivery_BadMessageIsDropped(t *testing.T) {
	c, _ := newTestClient(nil)
	ack := &fakeAcknowledger{}
	called := false

	c.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: []byte("{")}, func(ctx context.Context, job *jobs.ParseTextJob) error {
		called = true
		return nil
	})

	if called {
		t.Error("Expected handler not to run")
	}
	if ack.nacked != 1 || ack.requeue {
		t.Errorf("Expected one nack without requeue, got %d (requeue=%v)", ack.nacked, ack.requeue)
	}
}

func TestHandleDelivery_SkipsFinishedJob(t *testing.T) {
	store := inmemory.NewStore()
	_ = store.SaveJob(context.Background(), &jobs.ParseTextJob{ID: "j1", UserID: "u1", Status: jobs.JobStatusCompleted})
	c, _ := newTestClient(store)
	ack := &fakeAcknowledger{}

	c.handleDelivery(context.Background(), delivery(t, &ParseJobMessage{JobID: "j1", UserID: "u1"}, ack), func(ctx context.Context, job *jobs.ParseTextJob) error {
		t.Error("Expected handler not to run for a finished job")
		return nil
	})
	if ack.acked != 1 {
		t.Errorf("Expected ack, got %d", ack.acked)
	}
}
