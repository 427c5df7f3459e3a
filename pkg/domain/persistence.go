package domain

import (
	"context"
	"time"
)

// ResetReason records why a session ended.
type ResetReason string

const (
	// ResetManual is a user-issued reset.
	ResetManual ResetReason = "manual"
	// ResetAuto is issued by the idle auto-reset timer.
	ResetAuto ResetReason = "auto"
)

// Session captures one finished run of throws and its final estimate.
type Session struct {
	ID        string      `json:"id"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
	Reason    ResetReason `json:"reason"`
	Throws    []Throw     `json:"throws"`
	Estimate  Estimate    `json:"estimate"`
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	cp := s
	cp.Throws = CloneThrows(s.Throws)
	cp.Estimate = s.Estimate.Clone()
	return cp
}

// SessionStore is the minimal abstraction over durable session archives.
type SessionStore interface {
	SaveSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, bool, error)
	// ListSessions returns sessions ordered by EndedAt descending; limit <= 0 means all.
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	Close() error
}
