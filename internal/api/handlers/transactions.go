// Package handlers implements the JSON HTTP endpoints.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

// TransactionsHandler serves transaction CRUD.
type TransactionsHandler struct {
	repo store.TransactionRepository
	log  zerolog.Logger
}

func NewTransactionsHandler(repo store.TransactionRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{repo: repo, log: log}
}

// ListTransactions handles GET /api/transactions?vehicleId=
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	txs, err := h.repo.ListTransactions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list transactions")
		return
	}

	if vehicleID := r.URL.Query().Get("vehicleId"); vehicleID != "" {
		filtered := make([]domain.Transaction, 0, len(txs))
		for _, tx := range txs {
			if tx.VehicleID == vehicleID {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	tx, err := h.repo.GetTransaction(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var tx domain.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}
	if tx.TransactionType == "" && tx.Category.IsValid() {
		tx.TransactionType = domain.TypeForCategory(tx.Category)
	}
	if err := tx.Validate(); err != nil {
		writeServiceError(w, h.log, err, "Invalid transaction")
		return
	}

	id, err := h.repo.AddTransaction(r.Context(), userID, tx)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create transaction")
		return
	}
	tx.ID = id
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	existing, err := h.repo.GetTransaction(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get transaction")
		return
	}

	var tx domain.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}
	tx.ID = existing.ID
	// Attachments are managed through the attachment endpoints.
	tx.Attachments = existing.Attachments
	if tx.TransactionType == "" && tx.Category.IsValid() {
		tx.TransactionType = domain.TypeForCategory(tx.Category)
	}
	if err := tx.Validate(); err != nil {
		writeServiceError(w, h.log, err, "Invalid transaction")
		return
	}

	if err := h.repo.UpdateTransaction(r.Context(), userID, tx); err != nil {
		writeServiceError(w, h.log, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteTransaction(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
