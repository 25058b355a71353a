package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/davidbz/promptdesk/internal/domain"
)

// QueueStats exposes the dispatcher backlog to the admin surface.
type QueueStats interface {
	Pending(ctx context.Context) (int64, error)
}

// AdminHandler serves key management and request moderation.
type AdminHandler struct {
	keys    domain.APIKeyStore
	service *domain.RequestService
	queue   QueueStats
}

// NewAdminHandler creates a new admin handler (DI constructor).
func NewAdminHandler(keys domain.APIKeyStore, service *domain.RequestService, queue QueueStats) *AdminHandler {
	return &AdminHandler{
		keys:    keys,
		service: service,
		queue:   queue,
	}
}

// HandleListKeys lists API keys, optionally filtered by search text and state.
func (a *AdminHandler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	filter := domain.APIKeyFilter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, domain.NewValidationError("active", "Must be a valid boolean."))
			return
		}
		filter.Active = &active
	}

	keys, err := a.keys.ListAPIKeys(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]apiKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, newAPIKeyResponse(&keys[i]))
	}
	writeJSON(w, r, http.StatusOK, out)
}

// HandleCreateKey creates a key. A missing token is generated and keys start active.
func (a *AdminHandler) HandleCreateKey(w http.ResponseWriter, r *http.Request) {
	var payload apiKeyPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	key := &domain.APIKey{Active: true}
	payload.apply(key)
	if key.Key == "" {
		key.Key = domain.NewAPIKeyToken()
	}

	if err := a.keys.CreateAPIKey(r.Context(), key); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, newAPIKeyResponse(key))
}

// HandleGetKey returns one key.
func (a *AdminHandler) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	key, err := a.keys.GetAPIKey(r.Context(), id)
	if err != nil {
		writeKeyError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newAPIKeyResponse(key))
}

// HandleUpdateKey changes the supplied key fields. Usage is never editable.
func (a *AdminHandler) HandleUpdateKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var payload apiKeyPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	key, err := a.keys.GetAPIKey(r.Context(), id)
	if err != nil {
		writeKeyError(w, r, err)
		return
	}

	payload.apply(key)
	if key.Key == "" {
		writeError(w, r, domain.NewValidationError("key", domain.FieldRequired))
		return
	}

	if err := a.keys.UpdateAPIKey(r.Context(), key); err != nil {
		writeKeyError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newAPIKeyResponse(key))
}

// HandleDeleteKey removes a key together with its requests.
func (a *AdminHandler) HandleDeleteKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := a.keys.DeleteAPIKey(r.Context(), id); err != nil {
		writeKeyError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListRequests lists requests with the admin display fields.
func (a *AdminHandler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.RequestFilter{
		APIKey: query.Get("key"),
		Engine: query.Get("engine"),
		Search: query.Get("search"),
	}

	var err error
	if filter.Since, err = parseTimeParam("since", query.Get("since")); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Until, err = parseTimeParam("until", query.Get("until")); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		writeError(w, r, err)
		return
	}

	reqs, err := a.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newAdminRequestRows(reqs))
}

// HandleGetRequest returns the sectioned detail view of a request.
func (a *AdminHandler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := a.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newAdminRequestDetail(req))
}

// HandleBulkCancel cancels every listed request.
func (a *AdminHandler) HandleBulkCancel(w http.ResponseWriter, r *http.Request) {
	var payload bulkPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	writeJSON(w, r, http.StatusOK, newBulkResponse(a.service.CancelMany(r.Context(), payload.IDs)))
}

// HandleBulkResolve resolves every listed request inline, one after another.
func (a *AdminHandler) HandleBulkResolve(w http.ResponseWriter, r *http.Request) {
	var payload bulkPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	writeJSON(w, r, http.StatusOK, newBulkResponse(a.service.ResolveMany(ctx, payload.IDs)))
}

// HandleQueue reports the number of jobs waiting for a worker.
func (a *AdminHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	pending, err := a.queue.Pending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]int64{"pending": pending})
}

// writeKeyError reports a missing key as 404 instead of the API's 400.
func writeKeyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrAPIKeyNotFound) {
		writeMessage(w, r, http.StatusNotFound, msgNotFound)
		return
	}
	writeError(w, r, err)
}

func parseTimeParam(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, domain.MillisLayout, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, domain.NewValidationError(name, "Enter a valid date/time.")
}
