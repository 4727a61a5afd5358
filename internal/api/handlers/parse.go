package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/pipeline"
)

// maxBulkTransactions bounds one bulk request.
const maxBulkTransactions = 500

// TextParser is satisfied by *pipeline.TransactionParser.
type TextParser interface {
	ParseTransactions(ctx context.Context, text string) ([]domain.ParsedTransaction, error)
}

// BulkSaver is satisfied by *pipeline.BulkPersister.
type BulkSaver interface {
	AddBulkTransactions(ctx context.Context, userID, vehicleID string, parsed []domain.ParsedTransaction) (pipeline.BulkResult, error)
}

// ParseHandler serves synchronous parsing and bulk saving.
type ParseHandler struct {
	parser TextParser
	bulk   BulkSaver
	log    zerolog.Logger
}

func NewParseHandler(parser TextParser, bulk BulkSaver, log zerolog.Logger) *ParseHandler {
	return &ParseHandler{parser: parser, bulk: bulk, log: log}
}

type parseRequest struct {
	Text string `json:"text"`
}

// ParseTransactions handles POST /api/transactions/parse
func (h *ParseHandler) ParseTransactions(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req parseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}

	parsed, err := h.parser.ParseTransactions(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to parse transactions")
		return
	}
	if parsed == nil {
		parsed = []domain.ParsedTransaction{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": parsed,
		"count":        len(parsed),
	})
}

type bulkRequest struct {
	VehicleID    string                     `json:"vehicleId"`
	Transactions []domain.ParsedTransaction `json:"transactions"`
}

// AddBulkTransactions handles POST /api/transactions/bulk. It answers 201
// when every record was stored and 207 when some were not.
func (h *ParseHandler) AddBulkTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req bulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, err, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.VehicleID) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "vehicleId is required")
		return
	}
	if len(req.Transactions) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transactions must not be empty")
		return
	}
	if len(req.Transactions) > maxBulkTransactions {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("at most %d transactions per request", maxBulkTransactions))
		return
	}

	res, err := h.bulk.AddBulkTransactions(r.Context(), userID, req.VehicleID, req.Transactions)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to save transactions")
		return
	}

	status := http.StatusCreated
	if res.Failed > 0 {
		status = http.StatusMultiStatus
	}
	middleware.WriteJSON(w, status, res)
}
