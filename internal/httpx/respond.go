// Package httpx holds the JSON, error-mapping and middleware helpers shared by
// the catalog and order handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"bookcourier/internal/apperr"
)

const maxBodyBytes = 1 << 20

// Ack acknowledges a mutation with MongoDB-style insert, update and delete
// counts.
type Ack struct {
	Acknowledged  bool   `json:"acknowledged"`
	InsertedID    string `json:"insertedId,omitempty"`
	MatchedCount  *int   `json:"matchedCount,omitempty"`
	ModifiedCount *int   `json:"modifiedCount,omitempty"`
	DeletedCount  *int   `json:"deletedCount,omitempty"`
}

func count(b bool) *int {
	n := 0
	if b {
		n = 1
	}
	return &n
}

func Inserted(id uuid.UUID) Ack {
	return Ack{Acknowledged: true, InsertedID: id.String()}
}

// Updated acknowledges a matched record; modified is false for no-op writes.
func Updated(modified bool) Ack {
	return Ack{Acknowledged: true, MatchedCount: count(true), ModifiedCount: count(modified)}
}

func Deleted() Ack {
	return Ack{Acknowledged: true, DeletedCount: count(true)}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// StatusOf maps the apperr taxonomy to an HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON error. Store and unclassified failures are logged
// and replaced by an opaque message.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "req_id", middleware.GetReqID(r.Context()), "err", err)
		msg = "internal server error"
	}
	JSON(w, status, errorBody{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}

// Decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func Decode(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return apperr.Validation("invalid JSON body: %v", err)
	}
	return nil
}

// ParseID reads a UUID path parameter. Malformed ids are rejected before any
// store call.
func ParseID(r *http.Request, param, what string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s id %q", what, raw)
	}
	return id, nil
}

// PathString reads and unescapes a string path parameter such as an email.
func PathString(r *http.Request, param string) (string, error) {
	raw := chi.URLParam(r, param)
	s, err := url.PathUnescape(raw)
	if err != nil {
		return "", apperr.Validation("invalid %s %q", param, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Validation("%s is required", param)
	}
	return s, nil
}
