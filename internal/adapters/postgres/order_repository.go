package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
)

// OrderRepository implements ports.OrderRepository for PostgreSQL
type OrderRepository struct{}

// NewOrderRepository creates a new order repository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

// Create persists a new order with its assigned trace number
func (r *OrderRepository) Create(ctx context.Context, tx ports.DBTX, order *domain.Order) error {
	amount := pgtype.Numeric{}
	if err := amount.Scan(order.TotalAmount.String()); err != nil {
		return fmt.Errorf("convert amount: %w", err)
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, trace_number, payment_state, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())`,
		order.ID,
		nullText(order.CustomerID),
		order.TraceNumber,
		string(order.PaymentState),
		amount,
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageUnavailable, "create order", err)
	}

	return nil
}

// GetByID retrieves an order by its id
func (r *OrderRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.Order, error) {
	return r.getByID(ctx, tx, id, false)
}

// GetByIDForUpdate retrieves an order and locks its row until the
// caller's transaction ends
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id string) (*domain.Order, error) {
	return r.getByID(ctx, tx, id, true)
}

func (r *OrderRepository) getByID(ctx context.Context, tx ports.DBTX, id string, forUpdate bool) (*domain.Order, error) {
	var (
		order    domain.Order
		customer pgtype.Text
		refNo    pgtype.Text
		authID   pgtype.Text
		amount   pgtype.Numeric
		rawBytes []byte
		state    string
	)

	query := `
		SELECT id, customer_id, trace_number, payment_state, retrieval_ref_no,
		       auth_id_response, raw_gateway_response, total_amount, created_at, updated_at
		FROM orders WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	err := tx.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&customer,
		&order.TraceNumber,
		&state,
		&refNo,
		&authID,
		&rawBytes,
		&amount,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound.WithDetail("order_id", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStorageUnavailable, "get order by id", err)
	}

	order.CustomerID = customer.String
	order.PaymentState = domain.PaymentState(state)
	order.RetrievalRefNo = refNo.String
	order.AuthIdResponse = authID.String

	if len(rawBytes) > 0 {
		var raw domain.GatewayPayload
		if err := json.Unmarshal(rawBytes, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal raw gateway response: %w", err)
		}
		order.RawResponse = &raw
	}

	total, err := pgNumericToDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	order.TotalAmount = total

	return &order, nil
}

// UpdateOutcome persists a state transition together with the raw gateway
// payload and captured references. Single UPDATE so that state and payload
// can never be observed half-written.
func (r *OrderRepository) UpdateOutcome(ctx context.Context, tx ports.DBTX, id string, state domain.PaymentState, raw *domain.GatewayPayload, retrievalRefNo, authIdResponse string) error {
	var rawBytes []byte
	if raw != nil {
		var err error
		rawBytes, err = json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("marshal raw gateway response: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET payment_state = $2,
		    raw_gateway_response = COALESCE($3, raw_gateway_response),
		    retrieval_ref_no = COALESCE(NULLIF($4, ''), retrieval_ref_no),
		    auth_id_response = COALESCE(NULLIF($5, ''), auth_id_response),
		    updated_at = now()
		WHERE id = $1`,
		id, string(state), rawBytes, retrievalRefNo, authIdResponse,
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageUnavailable, "update order outcome", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound.WithDetail("order_id", id)
	}

	return nil
}
