package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
	"github.com/nimble-gus/topcell2-sub002/pkg/observability"
	"github.com/shopspring/decimal"
)

// TraceAllocator issues the correlation number for an authorization attempt
type TraceAllocator interface {
	Next(ctx context.Context) (string, error)
}

// ChallengeOrchestrator mediates the out-of-band step-up challenge
type ChallengeOrchestrator interface {
	Issue(orderID, traceNumber, referenceID, redirectURL string) *domain.Challenge
	Await(ctx context.Context, challenge *domain.Challenge) (*domain.ChallengeCompletion, error)
}

// CheckoutRequest starts a card payment for an order
type CheckoutRequest struct {
	OrderID        string
	CustomerID     string
	Amount         decimal.Decimal
	CardNumber     string
	ExpirationDate string
	CVV2           string
	CardholderName string
}

// CheckoutResult is what the storefront sees. StatusCode carries the
// Spanish-labeled production value collaborators expect.
type CheckoutResult struct {
	OrderID         string
	TraceNumber     string
	PaymentState    domain.PaymentState
	StatusCode      string
	Approved        bool
	StepUpRequired  bool
	StepUpURL       string
	StepUpReference string
	ResponseCode    string
	Message         string
}

// Service drives the payment lifecycle of an order: trace allocation,
// authorization, step-up suspension/resumption, and the handoff to the
// compensator on ambiguous outcomes.
type Service struct {
	db             ports.DBPort
	orders         ports.OrderRepository
	gateway        ports.CardGateway
	allocator      TraceAllocator
	stepup         ChallengeOrchestrator
	compensator    *Compensator
	logger         ports.Logger
	gatewayTimeout time.Duration
}

// NewService creates a new payment service
func NewService(
	db ports.DBPort,
	orders ports.OrderRepository,
	gateway ports.CardGateway,
	allocator TraceAllocator,
	stepup ChallengeOrchestrator,
	compensator *Compensator,
	logger ports.Logger,
	gatewayTimeout time.Duration,
) *Service {
	return &Service{
		db:             db,
		orders:         orders,
		gateway:        gateway,
		allocator:      allocator,
		stepup:         stepup,
		compensator:    compensator,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
	}
}

// Checkout runs the first authorization for an order. Allocation and
// order persistence happen before any external call; if either fails the
// checkout aborts and the gateway never hears about the attempt.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	traceNumber, err := s.allocator.Next(ctx)
	if err != nil {
		return nil, err
	}
	observability.RecordTraceAllocation()

	orderID := req.OrderID
	if orderID == "" {
		orderID = uuid.New().String()
	}

	order := &domain.Order{
		ID:           orderID,
		CustomerID:   req.CustomerID,
		TraceNumber:  traceNumber,
		PaymentState: domain.PaymentPending,
		TotalAmount:  req.Amount,
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.orders.Create(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout started",
		ports.String("order_id", orderID),
		ports.String("trace_number", traceNumber),
	)

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.gateway.Authorize(gatewayCtx, &ports.AuthorizeRequest{
		OrderID:        orderID,
		TraceNumber:    traceNumber,
		Amount:         req.Amount,
		CardNumber:     req.CardNumber,
		ExpirationDate: req.ExpirationDate,
		CVV2:           req.CVV2,
		CardholderName: req.CardholderName,
	})
	elapsed := time.Since(start)

	if err != nil {
		return s.handleAuthorizeError(ctx, order, "authorize", elapsed, err)
	}

	return s.handleAuthorizeResult(ctx, order, "authorize", elapsed, result)
}

// handleAuthorizeError classifies a failed gateway call. A timeout means
// the gateway may have approved, so a reversal with the same trace number
// is always attempted; anything else is final and the order declines.
func (s *Service) handleAuthorizeError(ctx context.Context, order *domain.Order, operation string, elapsed time.Duration, err error) (*CheckoutResult, error) {
	if domain.IsGatewayTimeout(err) {
		observability.RecordGatewayCall(operation, "timeout", elapsed)
		s.logger.Warn("gateway call timed out, attempting reversal",
			ports.String("order_id", order.ID),
			ports.String("trace_number", order.TraceNumber),
			ports.Err(err),
		)

		reversed, revErr := s.compensator.ReverseAfterTimeout(ctx, order.ID)
		if revErr != nil {
			return nil, revErr
		}
		return s.toResult(reversed, "", "El pago no pudo completarse. Intente de nuevo."), nil
	}

	observability.RecordGatewayCall(operation, "error", elapsed)

	state, applyErr := s.applyOutcome(ctx, order, domain.EventGatewayDeclined, nil, "", "")
	if applyErr != nil {
		return nil, applyErr
	}
	order.PaymentState = state

	return s.toResult(order, "", "Pago declinado"), nil
}

func (s *Service) handleAuthorizeResult(ctx context.Context, order *domain.Order, operation string, elapsed time.Duration, result *ports.GatewayResult) (*CheckoutResult, error) {
	observability.RecordGatewayCall(operation, string(result.Outcome), elapsed)

	switch result.Outcome {
	case ports.OutcomeApproved:
		state, err := s.applyOutcome(ctx, order, domain.EventGatewayApproved, result.Raw, result.RetrievalRefNo, result.AuthIdResponse)
		if err != nil {
			return nil, err
		}
		order.PaymentState = state
		order.RetrievalRefNo = result.RetrievalRefNo
		order.AuthIdResponse = result.AuthIdResponse
		return s.toResult(order, result.ResponseCode, result.ResponseMessage), nil

	case ports.OutcomeStepUp:
		challenge := s.stepup.Issue(order.ID, order.TraceNumber, result.StepUpReference, result.StepUpURL)

		// The checkout request returns immediately; resumption is driven
		// by the callback event, not by this HTTP context.
		go s.awaitStepUp(challenge)

		res := s.toResult(order, result.ResponseCode, "Se requiere verificación adicional")
		res.StepUpRequired = true
		res.StepUpURL = result.StepUpURL
		res.StepUpReference = result.StepUpReference
		return res, nil

	default:
		state, err := s.applyOutcome(ctx, order, domain.EventGatewayDeclined, result.Raw, "", "")
		if err != nil {
			return nil, err
		}
		order.PaymentState = state
		return s.toResult(order, result.ResponseCode, result.ResponseMessage), nil
	}
}

// awaitStepUp suspends until the challenge resolves. It runs detached
// from the checkout request: no lock, DB connection, or HTTP context is
// held across the wait.
func (s *Service) awaitStepUp(challenge *domain.Challenge) {
	ctx := context.Background()

	completion, err := s.stepup.Await(ctx, challenge)
	if err != nil {
		// Abandoned: the order stays PENDING. No funds were authorized,
		// so no compensation is needed.
		observability.RecordStepUp("abandoned")
		return
	}
	observability.RecordStepUp("completed")

	s.resumeAuthorization(ctx, challenge, completion)
}

// resumeAuthorization sends the continuation call with the same trace
// number as the first authorization
func (s *Service) resumeAuthorization(ctx context.Context, challenge *domain.Challenge, completion *domain.ChallengeCompletion) {
	var order *domain.Order
	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		o, err := s.orders.GetByID(ctx, tx, challenge.OrderID)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		s.logger.Error("step-up resume: load order failed",
			ports.String("order_id", challenge.OrderID),
			ports.Err(err),
		)
		return
	}

	if order.PaymentState != domain.PaymentPending {
		s.logger.Warn("step-up resume skipped: order no longer pending",
			ports.String("order_id", order.ID),
			ports.String("payment_state", string(order.PaymentState)),
		)
		return
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.gateway.ContinueAuthorize(gatewayCtx, &ports.ContinueRequest{
		OrderID:     order.ID,
		TraceNumber: order.TraceNumber,
		Amount:      order.TotalAmount,
		ReferenceID: challenge.ReferenceID,
		PaRes:       completion.PaRes,
	})
	elapsed := time.Since(start)

	if err != nil {
		if _, herr := s.handleAuthorizeError(ctx, order, "continue", elapsed, err); herr != nil {
			s.logger.Error("step-up continuation failed",
				ports.String("order_id", order.ID),
				ports.String("trace_number", order.TraceNumber),
				ports.Err(herr),
			)
		}
		return
	}

	if _, herr := s.handleAuthorizeResult(ctx, order, "continue", elapsed, result); herr != nil {
		s.logger.Error("step-up continuation outcome not recorded",
			ports.String("order_id", order.ID),
			ports.String("trace_number", order.TraceNumber),
			ports.Err(herr),
		)
	}
}

// GetOrder returns the order with its payment attempt fields, including
// the raw gateway payload for back-office reconciliation
func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order *domain.Order
	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		o, err := s.orders.GetByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// applyOutcome runs the state machine and persists the transition and the
// raw payload as one atomic write
func (s *Service) applyOutcome(ctx context.Context, order *domain.Order, event domain.PaymentEvent, raw *domain.GatewayPayload, retrievalRefNo, authIdResponse string) (domain.PaymentState, error) {
	next, err := domain.Transition(order.PaymentState, event)
	if err != nil {
		return order.PaymentState, err
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.orders.UpdateOutcome(ctx, tx, order.ID, next, raw, retrievalRefNo, authIdResponse)
	})
	if err != nil {
		return order.PaymentState, err
	}

	observability.RecordTransition(string(order.PaymentState), string(next))

	s.logger.Info("payment state transition",
		ports.String("order_id", order.ID),
		ports.String("trace_number", order.TraceNumber),
		ports.String("from", string(order.PaymentState)),
		ports.String("to", string(next)),
		ports.String("event", string(event)),
	)

	if raw != nil {
		order.RawResponse = raw
	}
	return next, nil
}

func (s *Service) toResult(order *domain.Order, responseCode, message string) *CheckoutResult {
	return &CheckoutResult{
		OrderID:      order.ID,
		TraceNumber:  order.TraceNumber,
		PaymentState: order.PaymentState,
		StatusCode:   order.PaymentState.StatusCode(),
		Approved:     order.PaymentState == domain.PaymentApproved,
		ResponseCode: responseCode,
		Message:      message,
	}
}

func validateCheckout(req CheckoutRequest) error {
	if req.OrderID != "" {
		if _, err := uuid.Parse(req.OrderID); err != nil {
			return domain.ErrValidationFailed.WithDetail("field", "order_id").WithDetail("order_id", req.OrderID)
		}
	}
	if !req.Amount.IsPositive() {
		return domain.ErrValidationAmountInvalid.WithDetail("amount", req.Amount.String())
	}
	if req.CardNumber == "" {
		return domain.ErrValidationMissingField.WithDetail("field", "card_number")
	}
	if req.ExpirationDate == "" {
		return domain.ErrValidationMissingField.WithDetail("field", "expiration_date")
	}
	return nil
}
