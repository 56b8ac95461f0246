package tracking

import "time"

const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusExpired = "expired"
)

// SessionTTL bounds every tracking session to a 24-hour sharing window.
const SessionTTL = 24 * time.Hour

type Session struct {
	ID             string    `json:"id"`
	CreatedBy      string    `json:"created_by,omitempty"`
	SenderLabel    string    `json:"sender_label"`
	RecipientLabel string    `json:"recipient_label"`
	Message        string    `json:"message,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type LocationUpdate struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"timestamp"`
}

type Summary struct {
	SessionID  string    `json:"session_id"`
	PointCount int       `json:"point_count"`
	DistanceM  float64   `json:"distance_m"`
	FirstAt    time.Time `json:"first_at,omitempty"`
	LastAt     time.Time `json:"last_at,omitempty"`
}
