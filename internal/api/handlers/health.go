package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
)

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Me handles GET /api/me
func Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"userId":          userID,
		"isAuthenticated": true,
	})
}
