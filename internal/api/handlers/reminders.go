package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

// RemindersHandler serves reminder CRUD.
type RemindersHandler struct {
	repo store.ReminderRepository
	log  zerolog.Logger
}

func NewRemindersHandler(repo store.ReminderRepository, log zerolog.Logger) *RemindersHandler {
	return &RemindersHandler{repo: repo, log: log}
}

// ListReminders handles GET /api/reminders?includeCompleted=true
func (h *RemindersHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	reminders, err := h.repo.ListReminders(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list reminders")
		return
	}

	includeCompleted := r.URL.Query().Get("includeCompleted") != "false"
	out := make([]domain.Reminder, 0, len(reminders))
	for _, rem := range reminders {
		if rem.IsCompleted && !includeCompleted {
			continue
		}
		out = append(out, rem)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reminders": out,
		"count":     len(out),
	})
}

// CreateReminder handles POST /api/reminders
func (h *RemindersHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var rem domain.Reminder
	if err := decodeJSON(w, r, &rem); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}
	if err := rem.Validate(); err != nil {
		writeServiceError(w, h.log, err, "Invalid reminder")
		return
	}

	id, err := h.repo.AddReminder(r.Context(), userID, rem)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create reminder")
		return
	}
	rem.ID = id
	middleware.WriteJSON(w, http.StatusCreated, rem)
}

// UpdateReminder handles PUT /api/reminders/{id}
func (h *RemindersHandler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var rem domain.Reminder
	if err := decodeJSON(w, r, &rem); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}
	rem.ID = r.PathValue("id")
	if err := rem.Validate(); err != nil {
		writeServiceError(w, h.log, err, "Invalid reminder")
		return
	}

	if err := h.repo.UpdateReminder(r.Context(), userID, rem); err != nil {
		writeServiceError(w, h.log, err, "Failed to update reminder")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rem)
}

// CompleteReminder handles POST /api/reminders/{id}/complete
func (h *RemindersHandler) CompleteReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	rem, err := store.CompleteReminder(r.Context(), h.repo, userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to complete reminder")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rem)
}

// DeleteReminder handles DELETE /api/reminders/{id}
func (h *RemindersHandler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteReminder(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete reminder")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
