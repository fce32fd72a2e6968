package trace

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
)

// Allocator issues the 6-digit correlation number tagged onto every
// authorization attempt. The counter's read-modify-write runs inside a
// single transaction so concurrent checkouts never see the same value.
type Allocator struct {
	db     ports.DBPort
	repo   ports.TraceRepository
	logger ports.Logger
}

// NewAllocator creates a new trace number allocator
func NewAllocator(db ports.DBPort, repo ports.TraceRepository, logger ports.Logger) *Allocator {
	return &Allocator{
		db:     db,
		repo:   repo,
		logger: logger,
	}
}

// Next returns the next trace number, zero-padded to six digits. The
// cycle is [000001, 999999]; 999999 wraps to 000001, never 000000. If the
// store is unavailable the call fails with STORAGE_UNAVAILABLE; callers
// must not fabricate a trace number.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	var value int64

	err := a.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		v, err := a.repo.NextValue(ctx, tx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		if domain.IsStorageUnavailable(err) {
			return "", err
		}
		return "", domain.WrapError(domain.ErrorCodeStorageUnavailable, "allocate trace number", err)
	}

	traceNumber := domain.FormatTraceNumber(value)

	a.logger.Debug("trace number allocated",
		ports.String("trace_number", traceNumber),
	)

	return traceNumber, nil
}
