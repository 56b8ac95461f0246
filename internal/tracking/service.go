package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2003abishek/safetracker/internal/db"
	"github.com/2003abishek/safetracker/internal/shared/geo"
	"github.com/2003abishek/safetracker/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var nowFn = time.Now

type Service struct {
	db  db.Querier
	hub *stream.Hub
}

func NewService(db db.Querier, hub *stream.Hub) *Service {
	return &Service{db: db, hub: hub}
}

// Create persists a new tracking session in the pending state with a
// 24-hour expiry window. The write either fully succeeds or fully fails.
func (s *Service) Create(ctx context.Context, input Session) (Session, error) {
	if input.RecipientLabel == "" {
		return Session{}, fmt.Errorf("%w: recipient label required", ErrValidation)
	}
	if input.SenderLabel == "" {
		input.SenderLabel = "Anonymous"
	}

	input.ID = uuid.NewString()
	input.Status = StatusPending
	input.CreatedAt = nowFn().UTC()
	input.ExpiresAt = input.CreatedAt.Add(SessionTTL)

	_, err := s.db.Exec(ctx, `
		INSERT INTO tracking_sessions (id, created_by, sender_label, recipient_label, message, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, input.ID, input.CreatedBy, input.SenderLabel, input.RecipientLabel, input.Message, input.Status, input.CreatedAt, input.ExpiresAt)
	if err != nil {
		return Session{}, err
	}
	return input, nil
}

// Get fetches a session by id. The returned status is the derived view:
// a session past its expiry window reads expired without the stored row
// ever being rewritten.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, created_by, sender_label, recipient_label, message, status, created_at, expires_at
		FROM tracking_sessions WHERE id=$1
	`, id)

	var sess Session
	err := row.Scan(&sess.ID, &sess.CreatedBy, &sess.SenderLabel, &sess.RecipientLabel, &sess.Message, &sess.Status, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if IsExpired(sess) {
		sess.Status = StatusExpired
	}
	return sess, nil
}

// IsExpired reports whether the session's sharing window has passed. It is
// a pure read-time predicate and never mutates stored state.
func IsExpired(sess Session) bool {
	return nowFn().After(sess.ExpiresAt)
}

// Append records one immutable location sample for the session. The first
// sample flips the session from pending to active; the status guard in the
// update keeps that transition monotonic. Samples for expired sessions are
// still accepted, expiry stays advisory.
func (s *Service) Append(ctx context.Context, sessionID string, input LocationUpdate) (LocationUpdate, error) {
	if err := validateCoordinates(input.Latitude, input.Longitude, input.Accuracy); err != nil {
		return LocationUpdate{}, err
	}

	var status string
	if err := s.db.QueryRow(ctx, `
		SELECT status FROM tracking_sessions WHERE id=$1
	`, sessionID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LocationUpdate{}, ErrNotFound
		}
		return LocationUpdate{}, err
	}

	input.SessionID = sessionID
	input.RecordedAt = nowFn().UTC()

	row := s.db.QueryRow(ctx, `
		INSERT INTO location_updates (session_id, latitude, longitude, accuracy, recorded_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, sessionID, input.Latitude, input.Longitude, input.Accuracy, input.RecordedAt)
	if err := row.Scan(&input.ID); err != nil {
		return LocationUpdate{}, err
	}

	if status == StatusPending {
		if _, err := s.db.Exec(ctx, `
			UPDATE tracking_sessions SET status=$2 WHERE id=$1 AND status=$3
		`, sessionID, StatusActive, StatusPending); err != nil {
			return LocationUpdate{}, err
		}
	}

	if s.hub != nil {
		payload, _ := json.Marshal(input)
		s.hub.Broadcast(sessionID, payload)
	}
	return input, nil
}

// Locations returns the session's full history in ascending record order.
// A session with no samples yields an empty slice, not an error.
func (s *Service) Locations(ctx context.Context, sessionID string) ([]LocationUpdate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, latitude, longitude, accuracy, recorded_at
		FROM location_updates WHERE session_id=$1
		ORDER BY recorded_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updates := []LocationUpdate{}
	for rows.Next() {
		var u LocationUpdate
		if err := rows.Scan(&u.ID, &u.SessionID, &u.Latitude, &u.Longitude, &u.Accuracy, &u.RecordedAt); err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// List returns the sender's sessions, newest first, with derived statuses.
func (s *Service) List(ctx context.Context, createdBy string) ([]Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, created_by, sender_label, recipient_label, message, status, created_at, expires_at
		FROM tracking_sessions WHERE created_by=$1
		ORDER BY created_at DESC
	`, createdBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.CreatedBy, &sess.SenderLabel, &sess.RecipientLabel, &sess.Message, &sess.Status, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
			return nil, err
		}
		if IsExpired(sess) {
			sess.Status = StatusExpired
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	locations, err := s.Locations(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{SessionID: sessionID, PointCount: len(locations)}
	if len(locations) == 0 {
		return sum, nil
	}

	sum.FirstAt = locations[0].RecordedAt
	sum.LastAt = locations[len(locations)-1].RecordedAt
	for i := 1; i < len(locations); i++ {
		prev, cur := locations[i-1], locations[i]
		sum.DistanceM += geo.HaversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude) * 1000
	}
	return sum, nil
}

func validateCoordinates(lat, lng float64, accuracy *float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrValidation, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrValidation, lng)
	}
	if accuracy != nil && *accuracy < 0 {
		return fmt.Errorf("%w: accuracy must be non-negative", ErrValidation)
	}
	return nil
}
