package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/auth"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

const maxJSONBodyBytes = 1 << 20

var statusTable = []struct {
	err    error
	status int
}{
	{domain.ErrNotAuthenticated, http.StatusUnauthorized},
	{domain.ErrAPIKeyMissing, http.StatusPreconditionFailed},
	{domain.ErrInvalidResponseShape, http.StatusUnprocessableEntity},
	{domain.ErrUpstreamRequestFailed, http.StatusBadGateway},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrInvalidInput, http.StatusBadRequest},
}

// statusFor maps an error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// publicMessage drops the call-site prefixes in front of the sentinel so
// the client sees "not found: vehicle x" rather than the wrapping chain.
func publicMessage(err error) string {
	msg := err.Error()
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			if i := strings.Index(msg, e.err.Error()); i >= 0 {
				return msg[i:]
			}
			return e.err.Error()
		}
	}
	return msg
}

// writeServiceError answers with the status for err. Server errors are
// logged and hidden behind fallback.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
		middleware.WriteError(w, status, fallback)
		return
	}
	if status == http.StatusBadGateway {
		log.Warn().Err(err).Msg(fallback)
	}
	middleware.WriteError(w, status, publicMessage(err))
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// requireUser returns the authenticated user id or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
		return "", false
	}
	return userID, true
}
