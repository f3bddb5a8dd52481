// Package errorlog records failed write operations to the error_log table and
// the process log.
package errorlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adimyra/medilims/internal/platform/auth"
	"github.com/adimyra/medilims/internal/platform/middleware"
)

type Entry struct {
	ID        uuid.UUID `json:"id"`
	Method    string    `json:"method"`
	Error     string    `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Insert(ctx context.Context, e *Entry) error
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)
}

// Counter is satisfied by *telemetry.Metrics.
type Counter interface {
	WriteError(method string)
}

type Log struct {
	store   Store
	logger  zerolog.Logger
	counter Counter
}

func New(store Store, logger zerolog.Logger) *Log {
	return &Log{store: store, logger: logger.With().Str("component", "errorlog").Logger()}
}

func (l *Log) SetCounter(c Counter) {
	l.counter = c
}

// Record logs err against method. Persisting the entry is best effort: a
// store failure is logged and swallowed so the caller still gets its envelope.
func (l *Log) Record(ctx context.Context, method string, err error) {
	if err == nil {
		return
	}
	e := &Entry{
		ID:        uuid.New(),
		Method:    method,
		Error:     err.Error(),
		RequestID: middleware.RequestIDFromContext(ctx),
		UserID:    auth.UserIDFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}

	l.logger.Error().
		Err(err).
		Str("method", method).
		Str("request_id", e.RequestID).
		Str("user_id", e.UserID).
		Msg("write operation failed")

	if l.counter != nil {
		l.counter.WriteError(method)
	}
	if l.store == nil {
		return
	}
	if serr := l.store.Insert(ctx, e); serr != nil {
		l.logger.Warn().Err(serr).Str("method", method).Msg("persist error log entry")
	}
}

func (l *Log) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if l.store == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return l.store.ListRecent(ctx, limit)
}
