package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/time-capsule/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", apperror.ValidationFailed("f", "bad input"), http.StatusBadRequest, "bad input"},
		{"conflict", apperror.Conflict("email", "User already exists"), http.StatusBadRequest, "User already exists"},
		{"invalid credentials", apperror.InvalidCredentials(), http.StatusBadRequest, "Invalid email or password"},
		{"unauthorized", apperror.Unauthorized("who are you"), http.StatusUnauthorized, "who are you"},
		{"forbidden", apperror.Forbidden("Not authorized"), http.StatusForbidden, "Not authorized"},
		{"not found", apperror.NotFound("Capsule not found"), http.StatusNotFound, "Capsule not found"},
		{"wrapped not found", fmt.Errorf("outer: %w", apperror.NotFound("Capsule not found")), http.StatusNotFound, "Capsule not found"},
		{"plain error", errors.New("SELECT failed: disk I/O"), http.StatusInternalServerError, "fallback text"},
		{"app error without sentinel", &apperror.AppError{Err: errors.New("odd"), Message: "odd"}, http.StatusInternalServerError, "fallback text"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, logger, tc.err, "fallback text")

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, map[string]string{"message": tc.wantMsg}, body)
		})
	}
}
