package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
)

// TraceRepository implements ports.TraceRepository on a single counter row
type TraceRepository struct{}

// NewTraceRepository creates a new trace counter repository
func NewTraceRepository() *TraceRepository {
	return &TraceRepository{}
}

// NextValue advances the counter and returns the new value. The row lock
// taken by FOR UPDATE serializes concurrent allocations: a competing call
// blocks until this transaction commits, so no two callers ever observe
// the same current value. A missing row is the never-initialized state
// and counts as current value 0.
func (r *TraceRepository) NextValue(ctx context.Context, tx ports.DBTX) (int64, error) {
	var current int64
	err := tx.QueryRow(ctx, `SELECT value FROM trace_counter WHERE id = 1 FOR UPDATE`).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, `INSERT INTO trace_counter (id, value) VALUES (1, 0)`); err != nil {
			return 0, domain.WrapError(domain.ErrorCodeStorageUnavailable, "initialize trace counter", err)
		}
		current = 0
	case err != nil:
		return 0, domain.WrapError(domain.ErrorCodeStorageUnavailable, "read trace counter", err)
	}

	next := domain.NextTraceValue(current)

	if _, err := tx.Exec(ctx, `UPDATE trace_counter SET value = $1 WHERE id = 1`, next); err != nil {
		return 0, domain.WrapError(domain.ErrorCodeStorageUnavailable, "advance trace counter", err)
	}

	return next, nil
}
