package store

import (
	"context"
	"time"
)

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// Session describes one recording run.
type Session struct {
	ID           string     `json:"id"`
	RemoteSystem string     `json:"remote_system"`
	DataPort     int        `json:"data_port"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Samples      int        `json:"samples"`
}

// Sample is one recorded head/wand pose pair in tracker coordinates (feet).
type Sample struct {
	Frame       uint32     `json:"frame"`
	RecordedAt  time.Time  `json:"recorded_at"`
	HeadTracked bool       `json:"head_tracked"`
	Head        [3]float64 `json:"head"`
	HeadView    [3]float64 `json:"head_view"`
	WandTracked bool       `json:"wand_tracked"`
	Wand        [3]float64 `json:"wand"`
	WandView    [3]float64 `json:"wand_view"`
	Buttons     uint32     `json:"buttons"`
	Joystick    [2]float64 `json:"joystick"`
}

// MessageRecord is a persisted controller event message.
type MessageRecord struct {
	SessionID  string    `json:"session_id,omitempty"`
	Origin     string    `json:"origin"`
	Status     string    `json:"status"`
	Frame      uint32    `json:"frame"`
	ErrorID    uint32    `json:"error_id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// RecordingStore persists recording sessions, pose samples and controller messages.
type RecordingStore interface {
	CreateSession(ctx context.Context, s *Session) error
	EndSession(ctx context.Context, id string, at time.Time) error
	AppendSamples(ctx context.Context, sessionID string, samples []Sample) error
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	GetSamples(ctx context.Context, sessionID string, limit int) ([]Sample, error)
	SaveMessage(ctx context.Context, m *MessageRecord) error
	ListMessages(ctx context.Context, limit int) ([]MessageRecord, error)
	CloseDanglingSessions(ctx context.Context) (int64, error)
}
