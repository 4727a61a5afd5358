// Package api assembles the HTTP handlers and middleware into a server handler.
package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/handlers"
	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/auth"
	"github.com/dvloznov/vehicle-tracker/internal/jobs"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

// Deps are the services behind the routes. Attachments, Publisher and
// JobStore may be nil; their routes then answer 503.
type Deps struct {
	Store         store.Store
	Parser        handlers.TextParser
	Bulk          handlers.BulkSaver
	Dashboard     handlers.StatsProvider
	Attachments   handlers.AttachmentService
	Publisher     jobs.Publisher
	JobStore      jobs.JobStore
	Authenticator auth.Authenticator
}

// Options tune the HTTP layer.
type Options struct {
	AllowedOrigin  string
	MaxUploadBytes int64
	HasDefaultKey  bool
	JobMaxRetries  int
}

// NewHandler returns the full handler: routes wrapped in Recovery, RequestID,
// Logger, CORS and Auth, outermost first.
func NewHandler(deps Deps, opts Options, log zerolog.Logger) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("GET /api/me", handlers.Me)

	txs := handlers.NewTransactionsHandler(deps.Store, log)
	mux.HandleFunc("GET /api/transactions", txs.ListTransactions)
	mux.HandleFunc("POST /api/transactions", txs.CreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", txs.GetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", txs.UpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", txs.DeleteTransaction)

	parse := handlers.NewParseHandler(deps.Parser, deps.Bulk, log)
	mux.HandleFunc("POST /api/transactions/parse", parse.ParseTransactions)
	mux.HandleFunc("POST /api/transactions/bulk", parse.AddBulkTransactions)

	att := handlers.NewAttachmentsHandler(deps.Attachments, opts.MaxUploadBytes, log)
	mux.HandleFunc("POST /api/transactions/{id}/attachments", att.Upload)
	mux.HandleFunc("GET /api/transactions/{id}/attachments/{index}", att.Download)

	if deps.Publisher != nil && deps.JobStore != nil {
		jh := handlers.NewJobsHandler(deps.Publisher, deps.JobStore, opts.JobMaxRetries, log)
		mux.HandleFunc("POST /api/transactions/parse-jobs", jh.EnqueueParse)
		mux.HandleFunc("GET /api/jobs", jh.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", jh.GetJob)
	} else {
		unavailable := func(w http.ResponseWriter, r *http.Request) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Parse jobs are not configured")
		}
		mux.HandleFunc("POST /api/transactions/parse-jobs", unavailable)
		mux.HandleFunc("GET /api/jobs", unavailable)
		mux.HandleFunc("GET /api/jobs/{id}", unavailable)
	}

	vehicles := handlers.NewVehiclesHandler(deps.Store, log)
	mux.HandleFunc("GET /api/vehicles", vehicles.ListVehicles)
	mux.HandleFunc("POST /api/vehicles", vehicles.CreateVehicle)
	mux.HandleFunc("GET /api/vehicles/{id}", vehicles.GetVehicle)
	mux.HandleFunc("PUT /api/vehicles/{id}", vehicles.UpdateVehicle)
	mux.HandleFunc("DELETE /api/vehicles/{id}", vehicles.DeleteVehicle)

	reminders := handlers.NewRemindersHandler(deps.Store, log)
	mux.HandleFunc("GET /api/reminders", reminders.ListReminders)
	mux.HandleFunc("POST /api/reminders", reminders.CreateReminder)
	mux.HandleFunc("PUT /api/reminders/{id}", reminders.UpdateReminder)
	mux.HandleFunc("DELETE /api/reminders/{id}", reminders.DeleteReminder)
	mux.HandleFunc("POST /api/reminders/{id}/complete", reminders.CompleteReminder)

	mux.HandleFunc("GET /api/dashboard", handlers.NewDashboardHandler(deps.Dashboard, log).GetStats)

	settings := handlers.NewSettingsHandler(deps.Store, opts.HasDefaultKey, log)
	mux.HandleFunc("GET /api/settings", settings.GetSettings)
	mux.HandleFunc("PUT /api/settings/api-key", settings.SetAPIKey)

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS(opts.AllowedOrigin),
		middleware.Auth(deps.Authenticator),
	)
}
