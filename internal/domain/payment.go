package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentState represents the current state of an order's payment attempt
type PaymentState string

const (
	PaymentPending       PaymentState = "PENDING"
	PaymentApproved      PaymentState = "APPROVED"
	PaymentDeclined      PaymentState = "DECLINED"
	PaymentVoided        PaymentState = "VOIDED"
	PaymentReversed      PaymentState = "REVERSED"
	PaymentVoidError     PaymentState = "VOID_ERROR"
	PaymentReversalError PaymentState = "REVERSAL_ERROR"
)

// PaymentEvent represents an input to the payment state machine
type PaymentEvent string

const (
	EventGatewayApproved PaymentEvent = "GATEWAY_APPROVED"
	EventGatewayDeclined PaymentEvent = "GATEWAY_DECLINED"
	EventVoidApproved    PaymentEvent = "VOID_APPROVED"
	EventVoidFailed      PaymentEvent = "VOID_FAILED"
	EventReverseApproved PaymentEvent = "REVERSE_APPROVED"
	EventReverseFailed   PaymentEvent = "REVERSE_FAILED"
)

type transitionKey struct {
	state PaymentState
	event PaymentEvent
}

// transitions is the full table. Anything not listed is rejected; callers
// must never coerce state outside of Transition.
var transitions = map[transitionKey]PaymentState{
	{PaymentPending, EventGatewayApproved}:  PaymentApproved,
	{PaymentPending, EventGatewayDeclined}:  PaymentDeclined,
	{PaymentApproved, EventVoidApproved}:    PaymentVoided,
	{PaymentApproved, EventVoidFailed}:      PaymentVoidError,
	{PaymentApproved, EventReverseApproved}: PaymentReversed,
	{PaymentApproved, EventReverseFailed}:   PaymentReversalError,

	// An authorize call that times out may have succeeded on the
	// gateway's side while the order is still PENDING locally. The
	// reversal issued for that ambiguous outcome records here.
	{PaymentPending, EventReverseApproved}: PaymentReversed,
	{PaymentPending, EventReverseFailed}:   PaymentReversalError,
}

// Transition applies event to current and returns the next state.
// Unknown pairs fail with PAYMENT_INVALID_TRANSITION.
func Transition(current PaymentState, event PaymentEvent) (PaymentState, error) {
	next, ok := transitions[transitionKey{current, event}]
	if !ok {
		return current, ErrInvalidTransition.
			WithDetail("current_state", string(current)).
			WithDetail("event", string(event))
	}
	return next, nil
}

// IsTerminal reports whether no further gateway activity is expected.
// *_ERROR states are terminal pending manual reconciliation.
func (s PaymentState) IsTerminal() bool {
	switch s {
	case PaymentDeclined, PaymentVoided, PaymentReversed, PaymentVoidError, PaymentReversalError:
		return true
	}
	return false
}

// CanVoid reports whether an explicit void is eligible
func (s PaymentState) CanVoid() bool {
	return s == PaymentApproved
}

// CanReverse reports whether a timeout/ambiguous-outcome reversal is eligible
func (s PaymentState) CanReverse() bool {
	return s == PaymentApproved
}

// StatusCode returns the Spanish-labeled production status retained for
// interface compatibility with storefront and back-office collaborators.
func (s PaymentState) StatusCode() string {
	switch s {
	case PaymentPending:
		return "PENDIENTE"
	case PaymentApproved:
		return "APROBADO"
	case PaymentDeclined:
		return "DECLINADO"
	case PaymentVoided:
		return "ANULADO"
	case PaymentReversed:
		return "REVERSADO"
	case PaymentVoidError:
		return "ERROR_ANULACION"
	case PaymentReversalError:
		return "ERROR_REVERSA"
	default:
		return string(s)
	}
}

// GatewayPayload is the structured raw gateway response retained for audit
// and voucher rendering. Stored as JSONB, never as untyped text.
type GatewayPayload struct {
	ResponseCode    string `json:"ResponseCode"`
	ResponseMessage string `json:"ResponseMessage,omitempty"`
	RetrievalRefNo  string `json:"RetrievalRefNo,omitempty"`
	AuthIdResponse  string `json:"AuthIdResponse,omitempty"`
	SystemsTraceNo  string `json:"SystemsTraceNo,omitempty"`
	VbVRedirectURL  string `json:"VbVRedirectURL,omitempty"`
	VbVReferenceID  string `json:"VbVReferenceID,omitempty"`
}

// Order carries the payment attempt for a storefront order. Catalog and
// cart fields live with the storefront; only the payment core's fields
// are modeled here.
type Order struct {
	ID             string
	CustomerID     string
	TraceNumber    string // 6-digit, immutable once assigned
	PaymentState   PaymentState
	RetrievalRefNo string
	AuthIdResponse string
	RawResponse    *GatewayPayload
	TotalAmount    decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
