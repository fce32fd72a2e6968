package ports

import (
	"context"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
)

// TraceRepository persists the cyclic trace counter. The counter row is
// the single serialization point shared by concurrent checkouts.
type TraceRepository interface {
	// NextValue advances the counter under a row lock and returns the new
	// value in [1, 999999]. Must be called inside a write transaction; the
	// lock is held only for the read-compute-write of the single row.
	NextValue(ctx context.Context, tx DBTX) (int64, error)
}

// OrderRepository persists the payment attempt fields of an order
type OrderRepository interface {
	Create(ctx context.Context, tx DBTX, order *domain.Order) error
	GetByID(ctx context.Context, tx DBTX, id string) (*domain.Order, error)

	// GetByIDForUpdate locks the order row for the duration of the
	// caller's transaction. Compensation paths use it so that two
	// concurrent void/reversal attempts cannot both pass the state guard.
	GetByIDForUpdate(ctx context.Context, tx DBTX, id string) (*domain.Order, error)

	// UpdateOutcome persists a state transition together with the raw
	// gateway payload and captured references in a single write. A state
	// change without its payload (or vice versa) is a correctness
	// violation the payment core must never produce.
	UpdateOutcome(ctx context.Context, tx DBTX, id string, state domain.PaymentState, raw *domain.GatewayPayload, retrievalRefNo, authIdResponse string) error
}
