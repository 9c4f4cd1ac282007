package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/duraqio/duraq/internal/session"
)

// QueueHandler serves read-only and flush endpoints over the session
// command surface. One Handler instance is shared by the whole admin API;
// it does not represent a per-connection session the way a protocol
// adapter's session.Handler normally does.
type QueueHandler struct {
	cmd *session.Handler
}

// NewQueueHandler creates a QueueHandler bound to cmd.
func NewQueueHandler(cmd *session.Handler) *QueueHandler {
	return &QueueHandler{cmd: cmd}
}

type queueSummary struct {
	Name  string            `json:"name"`
	Stats map[string]string `json:"stats"`
}

// List responds with every known queue and its stats snapshot.
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	names := h.cmd.QueueNames()
	summaries := make([]queueSummary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, queueSummary{Name: name, Stats: h.cmd.Stats(name)})
	}
	writeJSON(w, http.StatusOK, okResponse(summaries))
}

// Get responds with the stats snapshot for one named queue.
func (h *QueueHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	writeJSON(w, http.StatusOK, okResponse(queueSummary{Name: name, Stats: h.cmd.Stats(name)}))
}

// Flush unconditionally discards every item in one queue.
func (h *QueueHandler) Flush(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.cmd.Flush(name); err != nil {
		writeHandlerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]string{"queue": name}))
}

// FlushExpired discards expired items in one queue, returning how many.
func (h *QueueHandler) FlushExpired(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, err := h.cmd.FlushExpired(name)
	if err != nil {
		writeHandlerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]any{"queue": name, "flushed": n}))
}

// FlushAll unconditionally discards every item in every queue.
func (h *QueueHandler) FlushAll(w http.ResponseWriter, r *http.Request) {
	if err := h.cmd.FlushAllQueues(); err != nil {
		writeHandlerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]string{"result": "flushed all queues"}))
}
