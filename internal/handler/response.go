package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"message": "Capsule not found"}
//
// The client only ever reads one field, whatever the status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/time-capsule/internal/apperror"
	"github.com/sakif/time-capsule/internal/auth"
	"github.com/sakif/time-capsule/internal/model"
)

// MessageResponse is the body of every error and of plain acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

// msgUserNotFound is sent when a valid token's user has since been removed.
const msgUserNotFound = "Not authorized, user not found"

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
// Any header changes after that are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation, ErrConflict, ErrInvalidCredentials → 400
//	ErrUnauthorized                                   → 401
//	ErrForbidden                                      → 403
//	ErrNotFound                                       → 404
//	anything else                                     → 500 with fallback
//
// Conflict and InvalidCredentials are 400, not 409/401. The client shows the message.
//
// NEVER expose internal error details to the client: unexpected errors are
// logged in full and the client only sees the per-operation fallback message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := 0
		switch {
		case errors.Is(err, apperror.ErrValidation),
			errors.Is(err, apperror.ErrConflict),
			errors.Is(err, apperror.ErrInvalidCredentials):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		}

		if status != 0 {
			writeMessage(w, status, appErr.Message)
			return
		}
	}

	logger.Error("request failed",
		slog.String("fallback", fallback),
		slog.String("error", err.Error()),
	)
	writeMessage(w, http.StatusInternalServerError, fallback)
}

// currentUser returns the identity the auth guard attached to the request.
// When there is none it writes a 401 and returns false; the caller just returns.
func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUserNotFound)
		return nil, false
	}
	return user, true
}
