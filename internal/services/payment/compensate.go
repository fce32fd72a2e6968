package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
	"github.com/nimble-gus/topcell2-sub002/pkg/observability"
)

// maxCompensationHold caps how long the order row lock and its pooled
// connection may be held across the compensation round trip. The general
// gateway timeout can run much longer; a compensation that slow is
// recorded as failed and lands in *_ERROR for manual follow-up instead
// of starving the pool.
const maxCompensationHold = 10 * time.Second

// Compensator issues reversal and voiding calls against the gateway and
// reconciles the order state. Both operations reuse the order's original
// trace number, retrieval reference, and untouched amount so the gateway
// can match them to the authorization they undo. One automatic attempt
// per failure event; a failed compensation lands in *_ERROR for manual
// follow-up.
type Compensator struct {
	db             ports.DBPort
	orders         ports.OrderRepository
	gateway        ports.CardGateway
	logger         ports.Logger
	gatewayTimeout time.Duration
}

// NewCompensator creates a new compensating transaction handler
func NewCompensator(db ports.DBPort, orders ports.OrderRepository, gateway ports.CardGateway, logger ports.Logger, gatewayTimeout time.Duration) *Compensator {
	return &Compensator{
		db:             db,
		orders:         orders,
		gateway:        gateway,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
	}
}

// Void cancels a known-successful authorization. Only orders currently
// APPROVED are eligible; anything else is rejected with ALREADY_TERMINAL
// and left untouched, which makes a repeated void harmless.
func (c *Compensator) Void(ctx context.Context, orderID string) (*domain.Order, error) {
	return c.compensate(ctx, orderID, "void",
		func(state domain.PaymentState) bool { return state.CanVoid() },
		c.gateway.Void,
		domain.EventVoidApproved, domain.EventVoidFailed,
	)
}

// ReverseAfterTimeout undoes a possibly-succeeded authorization whose
// outcome is unknown. Eligible while the order is APPROVED or still
// PENDING after an ambiguous gateway call; silence is never treated as
// safe.
func (c *Compensator) ReverseAfterTimeout(ctx context.Context, orderID string) (*domain.Order, error) {
	eligible := func(state domain.PaymentState) bool {
		return state.CanReverse() || state == domain.PaymentPending
	}
	return c.compensate(ctx, orderID, "reverse", eligible, c.gateway.Reverse,
		domain.EventReverseApproved, domain.EventReverseFailed)
}

type gatewayCall func(ctx context.Context, req *ports.CompensationRequest) (*ports.GatewayResult, error)

// compensate runs the shared guard-call-record sequence. The order row is
// locked for the whole sequence so two concurrent compensation attempts
// cannot both pass the state guard and double-send.
func (c *Compensator) compensate(
	ctx context.Context,
	orderID string,
	operation string,
	eligible func(domain.PaymentState) bool,
	call gatewayCall,
	approvedEvent, failedEvent domain.PaymentEvent,
) (*domain.Order, error) {
	var updated *domain.Order

	err := c.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		order, err := c.orders.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if !eligible(order.PaymentState) {
			return domain.ErrAlreadyTerminal.
				WithDetail("order_id", orderID).
				WithDetail("operation", operation).
				WithDetail("payment_state", string(order.PaymentState))
		}

		timeout := c.gatewayTimeout
		if timeout > maxCompensationHold {
			timeout = maxCompensationHold
		}
		gatewayCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := time.Now()
		result, callErr := call(gatewayCtx, &ports.CompensationRequest{
			OrderID:        order.ID,
			TraceNumber:    order.TraceNumber,
			Amount:         order.TotalAmount,
			RetrievalRefNo: order.RetrievalRefNo,
			AuthIdResponse: order.AuthIdResponse,
		})
		elapsed := time.Since(start)

		event := failedEvent
		var raw *domain.GatewayPayload

		switch {
		case callErr != nil:
			observability.RecordGatewayCall(operation, "timeout", elapsed)
			c.logger.Error("compensation call failed",
				ports.String("order_id", order.ID),
				ports.String("trace_number", order.TraceNumber),
				ports.String("operation", operation),
				ports.Err(callErr),
			)
		case result.Approved():
			observability.RecordGatewayCall(operation, "approved", elapsed)
			event = approvedEvent
			raw = result.Raw
		default:
			observability.RecordGatewayCall(operation, "declined", elapsed)
			raw = result.Raw
			c.logger.Error("compensation declined by gateway",
				ports.String("order_id", order.ID),
				ports.String("trace_number", order.TraceNumber),
				ports.String("operation", operation),
				ports.String("response_code", result.ResponseCode),
			)
		}

		next, err := domain.Transition(order.PaymentState, event)
		if err != nil {
			return err
		}

		if err := c.orders.UpdateOutcome(ctx, tx, order.ID, next, raw, "", ""); err != nil {
			return err
		}

		observability.RecordTransition(string(order.PaymentState), string(next))

		c.logger.Info("compensation recorded",
			ports.String("order_id", order.ID),
			ports.String("trace_number", order.TraceNumber),
			ports.String("operation", operation),
			ports.String("from", string(order.PaymentState)),
			ports.String("to", string(next)),
		)

		order.PaymentState = next
		if raw != nil {
			order.RawResponse = raw
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
