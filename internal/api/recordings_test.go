package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monolithgo/pkg/recorder"
	"monolithgo/pkg/store"
)

type mockRecorder struct {
	id     string
	active bool
}

func (m *mockRecorder) Start(ctx context.Context) (string, error) {
	if m.active {
		return "", recorder.ErrRecording
	}
	m.active = true
	return m.id, nil
}

func (m *mockRecorder) Stop(ctx context.Context) error {
	if !m.active {
		return recorder.ErrNotRecording
	}
	m.active = false
	return nil
}

func (m *mockRecorder) Active() (string, bool) {
	if !m.active {
		return "", false
	}
	return m.id, true
}

type mockRecordingStore struct {
	store.RecordingStore
	sessions []store.Session
	samples  map[string][]store.Sample
}

func (m *mockRecordingStore) ListSessions(ctx context.Context, limit int) ([]store.Session, error) {
	if len(m.sessions) > limit {
		return m.sessions[:limit], nil
	}
	return m.sessions, nil
}

func (m *mockRecordingStore) GetSamples(ctx context.Context, id string, limit int) ([]store.Sample, error) {
	s, ok := m.samples[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return s, nil
}

func TestRecordingList(t *testing.T) {
	st := &mockRecordingStore{sessions: []store.Session{
		{ID: "b", StartedAt: time.Now()},
		{ID: "a", StartedAt: time.Now().Add(-time.Hour)},
	}}
	h := NewRecordingHandler(&mockRecorder{id: "b", active: true}, st)

	rec := httptest.NewRecorder()
	h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/api/recordings?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Active   bool            `json:"active"`
		Current  string          `json:"current"`
		Sessions []store.Session `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Active)
	assert.Equal(t, "b", resp.Current)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "b", resp.Sessions[0].ID)
}

func TestRecordingSamples(t *testing.T) {
	st := &mockRecordingStore{samples: map[string][]store.Sample{
		"a":     {{Frame: 1, HeadTracked: true}},
		"empty": nil,
	}}
	h := NewRecordingHandler(&mockRecorder{}, st)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/recordings/{id}/samples", h.HandleSamples)

	tests := []struct {
		id       string
		want     int
		wantBody string
	}{
		{"a", http.StatusOK, ""},
		{"empty", http.StatusOK, "[]"},
		{"missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/"+tt.id+"/samples", nil))
			assert.Equal(t, tt.want, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRecordingStartStop(t *testing.T) {
	h := NewRecordingHandler(&mockRecorder{id: "s1"}, &mockRecordingStore{})

	steps := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{"stop idle", h.HandleStop, http.StatusConflict},
		{"start", h.HandleStart, http.StatusOK},
		{"start twice", h.HandleStart, http.StatusConflict},
		{"stop", h.HandleStop, http.StatusOK},
	}
	for _, s := range steps {
		rec := httptest.NewRecorder()
		s.handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, s.want, rec.Code, s.name)
	}
}
