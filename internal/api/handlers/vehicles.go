package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

// VehiclesHandler serves vehicle CRUD.
type VehiclesHandler struct {
	repo store.VehicleRepository
	log  zerolog.Logger
}

func NewVehiclesHandler(repo store.VehicleRepository, log zerolog.Logger) *VehiclesHandler {
	return &VehiclesHandler{repo: repo, log: log}
}

// ListVehicles handles GET /api/vehicles
func (h *VehiclesHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	vehicles, err := h.repo.ListVehicles(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list vehicles")
		return
	}
	if vehicles == nil {
		vehicles = []domain.Vehicle{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"count":    len(vehicles),
	})
}

// GetVehicle handles GET /api/vehicles/{id}
func (h *VehiclesHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	v, err := h.repo.GetVehicle(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get vehicle")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, v)
}

// CreateVehicle handles POST /api/vehicles
func (h *VehiclesHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var v domain.Vehicle
	if err := decodeJSON(w, r, &v); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}
	if err := v.Validate(); err != nil {
		writeServiceError(w, h.log, err, "Invalid vehicle")
		return
	}

	id, err := h.repo.AddVehicle(r.Context(), userID, v)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create vehicle")
		return
	}
	v.ID = id
	middleware.WriteJSON(w, http.StatusCreated, v)
}

// UpdateVehicle handles PUT /api/vehicles/{id}
func (h *VehiclesHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var v domain.Vehicle
	if err := decodeJSON(w, r, &v); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}
	v.ID = r.PathValue("id")
	if err := v.Validate(); err != nil {
		writeServiceError(w, h.log, err, "Invalid vehicle")
		return
	}

	if err := h.repo.UpdateVehicle(r.Context(), userID, v); err != nil {
		writeServiceError(w, h.log, err, "Failed to update vehicle")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, v)
}

// DeleteVehicle handles DELETE /api/vehicles/{id}
func (h *VehiclesHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteVehicle(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete vehicle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
