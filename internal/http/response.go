package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/davidbz/promptdesk/internal/domain"
	"github.com/davidbz/promptdesk/internal/observability"
)

const (
	msgNotFound       = "Not found."
	msgResolveFailed  = "Failed to resolve request"
	msgInternalError  = "Internal server error"
	maxRequestBodyLen = 1 << 20
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		observability.FromContext(r.Context()).Error("failed to encode response", observability.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, messageResponse{Message: message})
}

// writeError maps service errors onto status codes and response bodies.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, r, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, domain.ErrAPIKeyNotFound):
		writeJSON(w, r, http.StatusBadRequest, map[string][]string{"key": {domain.ErrAPIKeyNotFound.Error()}})
	case errors.Is(err, domain.ErrAPIKeyExists):
		writeJSON(w, r, http.StatusBadRequest, map[string][]string{"key": {domain.ErrAPIKeyExists.Error()}})
	case errors.Is(err, domain.ErrAPIKeyInactive):
		writeMessage(w, r, http.StatusBadRequest, domain.ErrAPIKeyInactive.Error())
	case errors.Is(err, domain.ErrRequestNotFound):
		writeMessage(w, r, http.StatusNotFound, msgNotFound)
	default:
		observability.FromContext(r.Context()).Error("request handling failed", observability.Error(err))
		writeMessage(w, r, http.StatusInternalServerError, msgInternalError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyLen)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// pathID parses the {id} URL parameter. An id that is not a positive integer
// cannot match any record, so it is reported as not found.
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeMessage(w, r, http.StatusNotFound, msgNotFound)
		return 0, false
	}
	return uint(id), true
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "A valid non-negative integer is required.")
	}
	return n, nil
}
