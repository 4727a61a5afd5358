package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

// SettingsHandler serves per-user settings. The stored key is never returned.
type SettingsHandler struct {
	repo store.SettingsRepository
	// hasDefaultKey reports whether the server has an environment key to fall back on.
	hasDefaultKey bool
	log           zerolog.Logger
}

func NewSettingsHandler(repo store.SettingsRepository, hasDefaultKey bool, log zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{repo: repo, hasDefaultKey: hasDefaultKey, log: log}
}

type settingsResponse struct {
	HasAPIKey     bool `json:"hasApiKey"`
	HasDefaultKey bool `json:"hasDefaultKey"`
}

// GetSettings handles GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	key, err := h.repo.GetAPIKey(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load settings")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, settingsResponse{
		HasAPIKey:     strings.TrimSpace(key) != "",
		HasDefaultKey: h.hasDefaultKey,
	})
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// SetAPIKey handles PUT /api/settings/api-key. An empty key clears it.
func (h *SettingsHandler) SetAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req apiKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}

	key := strings.TrimSpace(req.APIKey)
	if err := h.repo.SetAPIKey(r.Context(), userID, key); err != nil {
		writeServiceError(w, h.log, err, "Failed to save API key")
		return
	}

	h.log.Info().Str("user_id", userID).Bool("cleared", key == "").Msg("API key updated")
	middleware.WriteJSON(w, http.StatusOK, settingsResponse{
		HasAPIKey:     key != "",
		HasDefaultKey: h.hasDefaultKey,
	})
}
