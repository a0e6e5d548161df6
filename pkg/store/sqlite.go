package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"monolithgo/pkg/db"
)

// Store composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	StateStore
	RecordingStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("recording session not found")

func formatTime(t time.Time) string {
	return t.UTC().Format(db.TimeFormat)
}

// parseTime reads a timestamp column. Databases created with DATETIME columns come back from
// the driver as RFC 3339 text, so that layout is accepted too.
func parseTime(s string) time.Time {
	if t, err := time.Parse(db.TimeFormat, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// --- Recording ---

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recording_sessions (id, remote_system, data_port, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.RemoteSystem, sess.DataPort, formatTime(sess.StartedAt))
	return err
}

func (s *SQLiteStore) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE recording_sessions SET ended_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// AppendSamples writes a batch of samples in one transaction.
func (s *SQLiteStore) AppendSamples(ctx context.Context, sessionID string, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pose_samples (
		session_id, frame, recorded_at,
		head_tracked, head_x, head_y, head_z, head_view_x, head_view_y, head_view_z,
		wand_tracked, wand_x, wand_y, wand_z, wand_view_x, wand_view_y, wand_view_z,
		buttons, joystick_h, joystick_v
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range samples {
		p := &samples[i]
		if _, err := stmt.ExecContext(ctx, sessionID, p.Frame, formatTime(p.RecordedAt),
			p.HeadTracked, p.Head[0], p.Head[1], p.Head[2], p.HeadView[0], p.HeadView[1], p.HeadView[2],
			p.WandTracked, p.Wand[0], p.Wand[1], p.Wand[2], p.WandView[0], p.WandView[1], p.WandView[2],
			p.Buttons, p.Joystick[0], p.Joystick[1]); err != nil {
			return fmt.Errorf("insert sample %d: %w", p.Frame, err)
		}
	}
	return tx.Commit()
}

// ListSessions returns the most recent sessions first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, COALESCE(s.remote_system, ''), COALESCE(s.data_port, 0), s.started_at, s.ended_at,
			(SELECT count(*) FROM pose_samples p WHERE p.session_id = s.id)
		FROM recording_sessions s
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var started string
		var ended sql.NullString
		if err := rows.Scan(&sess.ID, &sess.RemoteSystem, &sess.DataPort, &started, &ended, &sess.Samples); err != nil {
			return nil, err
		}
		sess.StartedAt = parseTime(started)
		if ended.Valid {
			t := parseTime(ended.String)
			sess.EndedAt = &t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// GetSamples returns samples of a session in frame order.
func (s *SQLiteStore) GetSamples(ctx context.Context, sessionID string, limit int) ([]Sample, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM recording_sessions WHERE id = ?", sessionID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT frame, recorded_at,
		head_tracked, head_x, head_y, head_z, head_view_x, head_view_y, head_view_z,
		wand_tracked, wand_x, wand_y, wand_z, wand_view_x, wand_view_y, wand_view_z,
		buttons, joystick_h, joystick_v
		FROM pose_samples WHERE session_id = ? ORDER BY frame, id LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var p Sample
		var recorded string
		if err := rows.Scan(&p.Frame, &recorded,
			&p.HeadTracked, &p.Head[0], &p.Head[1], &p.Head[2], &p.HeadView[0], &p.HeadView[1], &p.HeadView[2],
			&p.WandTracked, &p.Wand[0], &p.Wand[1], &p.Wand[2], &p.WandView[0], &p.WandView[1], &p.WandView[2],
			&p.Buttons, &p.Joystick[0], &p.Joystick[1]); err != nil {
			return nil, err
		}
		p.RecordedAt = parseTime(recorded)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, m *MessageRecord) error {
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now()
	}
	var session any
	if m.SessionID != "" {
		session = m.SessionID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO control_messages (session_id, origin, status, frame, error_id, text, received_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session, m.Origin, m.Status, m.Frame, m.ErrorID, m.Text, formatTime(m.ReceivedAt))
	return err
}

// ListMessages returns the newest messages first.
func (s *SQLiteStore) ListMessages(ctx context.Context, limit int) ([]MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(session_id, ''), origin, status, frame, error_id, text, received_at
		FROM control_messages ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var m MessageRecord
		var received string
		if err := rows.Scan(&m.SessionID, &m.Origin, &m.Status, &m.Frame, &m.ErrorID, &m.Text, &received); err != nil {
			return nil, err
		}
		m.ReceivedAt = parseTime(received)
		out = append(out, m)
	}
	return out, rows.Err()
}

// CloseDanglingSessions ends sessions left open by an unclean shutdown at their last sample time.
func (s *SQLiteStore) CloseDanglingSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE recording_sessions
		SET ended_at = COALESCE((SELECT max(recorded_at) FROM pose_samples p WHERE p.session_id = recording_sessions.id), started_at)
		WHERE ended_at IS NULL`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, formatTime(time.Now()))
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
