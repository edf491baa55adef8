package session

import (
	"strings"
	"time"
)

const anonymousUser = "anonymous"

// CreateRequest is the body of POST /v1/voice/session. Both fields are
// optional.
type CreateRequest struct {
	UserID   string `json:"user_id"`
	Language string `json:"language"`
}

// WithDefaults fills blank fields. fallbackLanguage is the configured
// recognition language.
func (r CreateRequest) WithDefaults(fallbackLanguage string) CreateRequest {
	r.UserID = strings.TrimSpace(r.UserID)
	if r.UserID == "" {
		r.UserID = anonymousUser
	}
	r.Language = strings.TrimSpace(r.Language)
	if r.Language == "" {
		r.Language = fallbackLanguage
	}
	return r
}

// CreateResponse tells the client which session to attach its websocket to
// and how long it may stay silent before the session expires.
type CreateResponse struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	Status          Status    `json:"status"`
	Language        string    `json:"language"`
	State           string    `json:"state"`
	StartedAt       time.Time `json:"started_at"`
	InactivityTTLMS int64     `json:"inactivity_ttl_ms"`
	WebSocketPath   string    `json:"ws_path"`
}

func NewCreateResponse(s *Session, ttl time.Duration) CreateResponse {
	return CreateResponse{
		SessionID:       s.ID,
		UserID:          s.UserID,
		Status:          s.Status,
		Language:        s.Language,
		State:           s.State,
		StartedAt:       s.StartedAt,
		InactivityTTLMS: ttl.Milliseconds(),
		WebSocketPath:   "/v1/voice/session/ws?session_id=" + s.ID,
	}
}
