package http

import (
	"context"
	"net/http"

	"github.com/davidbz/promptdesk/internal/domain"
	"github.com/davidbz/promptdesk/internal/observability"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the public request API.
type Handler struct {
	service *domain.RequestService
	db      Pinger
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(service *domain.RequestService, db Pinger) *Handler {
	return &Handler{
		service: service,
		db:      db,
	}
}

// HandleCreate stores a request and schedules or resolves it.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload requestPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	// Resolution keeps going if the client hangs up.
	ctx := context.WithoutCancel(r.Context())

	req, err := h.service.CreateAndSchedule(ctx, payload.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !req.Asynchronous && req.IsFailed {
		writeMessage(w, r, http.StatusInternalServerError, msgResolveFailed)
		return
	}

	writeJSON(w, r, http.StatusCreated, newRequestResponse(req))
}

// HandleList returns stored requests, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	reqs, err := h.service.List(r.Context(), domain.RequestFilter{
		Engine: r.URL.Query().Get("engine"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newRequestResponses(reqs))
}

// HandleGet returns one request.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newRequestResponse(req))
}

// HandleUpdate replaces the caller-editable fields (PUT).
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// HandlePatch changes the supplied fields only (PATCH).
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var payload requestPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	req, err := h.service.Update(r.Context(), id, payload.toInput(), partial)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newRequestResponse(req))
}

// HandleDelete cancels and removes a request.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleCancel cancels a request and terminates its job.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newRequestResponse(req))
}

// HandleResolve runs the upstream call inline, whatever the request's state.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := h.service.Resolve(context.WithoutCancel(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newRequestResponse(req))
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			observability.FromContext(r.Context()).Warn("health check failed", observability.Error(err))
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleNotFound renders unknown routes in the API's error format.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, r, http.StatusNotFound, msgNotFound)
}
