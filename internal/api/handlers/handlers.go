package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/scidatahub/platform/internal/api/httpx"
	"github.com/scidatahub/platform/internal/auth"
	"github.com/scidatahub/platform/internal/services"
)

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps the service error taxonomy onto HTTP status codes.
// Unrecognized errors are store failures: logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrSubmissionNotFound),
		errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrEmailInUse),
		errors.Is(err, services.ErrInvalidReviewer),
		errors.Is(err, services.ErrInvalidDecision),
		errors.Is(err, services.ErrInvalidBatchDecision),
		errors.Is(err, services.ErrNotAssignable),
		errors.Is(err, services.ErrNotUnderReview),
		errors.Is(err, services.ErrNotAuthorizedReviewer),
		errors.Is(err, services.ErrNotAssignedReviewer):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAccountDeactivated),
		errors.Is(err, auth.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())
	default:
		slog.Error("request failed", "err", err, "path", r.URL.Path)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func queryTime(r *http.Request, key string) *time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}
