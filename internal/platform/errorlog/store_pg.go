package errorlog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adimyra/medilims/internal/platform/db"
)

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) Insert(ctx context.Context, e *Entry) error {
	// outside any caller transaction so the entry survives a rollback
	_, err := s.pool.Exec(ctx, `
		INSERT INTO error_log (id, method, error, request_id, user_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`,
		e.ID, e.Method, e.Error, e.RequestID, e.UserID, e.CreatedAt)
	return err
}

func (s *storePG) ListRecent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := db.Conn(ctx, s.pool).Query(ctx, `
		SELECT id, method, error, COALESCE(request_id, ''), COALESCE(user_id, ''), created_at
		FROM error_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Method, &e.Error, &e.RequestID, &e.UserID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
