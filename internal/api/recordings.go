package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"monolithgo/pkg/recorder"
	"monolithgo/pkg/store"
)

const defaultListLimit = 100

// Recorder controls pose recording.
type Recorder interface {
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) error
	Active() (string, bool)
}

// RecordingHandler exposes recording sessions and their samples.
type RecordingHandler struct {
	rec   Recorder
	store store.RecordingStore
}

// NewRecordingHandler creates a RecordingHandler.
func NewRecordingHandler(rec Recorder, st store.RecordingStore) *RecordingHandler {
	return &RecordingHandler{rec: rec, store: st}
}

func limitParam(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	return defaultListLimit
}

func (h *RecordingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	id, active := h.rec.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"active":   active,
		"current":  id,
		"sessions": sessions,
	})
}

func (h *RecordingHandler) HandleSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := h.store.GetSamples(r.Context(), r.PathValue("id"), limitParam(r))
	if errors.Is(err, store.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if samples == nil {
		samples = []store.Sample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func (h *RecordingHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	id, err := h.rec.Start(r.Context())
	if errors.Is(err, recorder.ErrRecording) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session": id})
}

func (h *RecordingHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	id, _ := h.rec.Active()
	err := h.rec.Stop(r.Context())
	if errors.Is(err, recorder.ErrNotRecording) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session": id})
}
