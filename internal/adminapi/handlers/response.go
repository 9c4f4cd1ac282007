package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/duraqio/duraq/internal/logger"
)

// Response is the standard JSON envelope for every admin API response.
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// writeJSON encodes data to a buffer first, so an encoding failure produces
// a clean error response instead of a half-written body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("failed to encode admin API response", logger.Err(err))
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func okResponse(data interface{}) Response {
	return Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}

func errorResponse(errMsg string) Response {
	return Response{Status: "error", Timestamp: time.Now().UTC(), Error: errMsg}
}

// writeHandlerError maps a session-layer error to an HTTP status and writes
// the error envelope.
func writeHandlerError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	writeJSON(w, status, errorResponse(err.Error()))
}
