package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/jobs"
)

const (
	defaultJobsLimit = 20
	maxJobsLimit     = 100
)

// JobsHandler serves asynchronous parse jobs.
type JobsHandler struct {
	publisher  jobs.Publisher
	store      jobs.JobStore
	maxRetries int
	log        zerolog.Logger
}

// NewJobsHandler creates the handler. maxRetries <= 0 selects jobs.DefaultMaxRetries.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore, maxRetries int, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{publisher: publisher, store: store, maxRetries: maxRetries, log: log}
}

type enqueueRequest struct {
	Text      string `json:"text"`
	VehicleID string `json:"vehicleId"`
	AutoSave  bool   `json:"autoSave"`
}

// EnqueueParse handles POST /api/transactions/parse-jobs
func (h *JobsHandler) EnqueueParse(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req enqueueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.AutoSave && req.VehicleID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "vehicleId is required when autoSave is set")
		return
	}

	job := &jobs.ParseTextJob{
		UserID:    userID,
		Text:      req.Text,
		VehicleID: req.VehicleID,
		AutoSave:  req.AutoSave,
	}
	if h.maxRetries > 0 {
		job.MaxRetries = h.maxRetries
	}
	if err := h.publisher.PublishParseText(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue parse job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue parse job")
		return
	}

	h.log.Info().Str("job_id", job.ID).Str("user_id", userID).Msg("Parse job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"jobId":  job.ID,
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}. Jobs of other users are not found.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if err == nil && job.UserID != userID {
		err = fmt.Errorf("%w: job %s", domain.ErrNotFound, r.PathValue("id"))
	}
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs?status=&limit=&offset=
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	filter, err := parseJobFilter(r)
	if err != nil {
		writeServiceError(w, h.log, err, "Invalid query")
		return
	}
	filter.UserID = userID

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list jobs")
		return
	}
	if list == nil {
		list = []*jobs.ParseTextJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

func parseJobFilter(r *http.Request) (jobs.JobFilter, error) {
	q := r.URL.Query()
	filter := jobs.JobFilter{Status: jobs.JobStatus(q.Get("status")), Limit: defaultJobsLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput)
		}
		filter.Limit = min(n, maxJobsLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("%w: offset must be a non-negative integer", domain.ErrInvalidInput)
		}
		filter.Offset = n
	}
	return filter, nil
}
