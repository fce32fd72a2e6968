package ports

import (
	"context"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/shopspring/decimal"
)

// GatewayOutcome classifies a gateway response after response-code mapping
type GatewayOutcome string

const (
	// OutcomeApproved covers response codes "00" and "10" only
	OutcomeApproved GatewayOutcome = "approved"
	// OutcomeDeclined covers every other code, including a missing code.
	// Declines are final; no compensation follows a decline.
	OutcomeDeclined GatewayOutcome = "declined"
	// OutcomeStepUp means authorization is suspended until the cardholder
	// completes the step-up challenge out of band
	OutcomeStepUp GatewayOutcome = "step_up_required"
)

// AuthorizeRequest is the first authorization call for an order. Card
// fields pass through to the gateway and are never persisted.
type AuthorizeRequest struct {
	OrderID        string
	TraceNumber    string
	Amount         decimal.Decimal
	CardNumber     string
	ExpirationDate string // MMYY
	CVV2           string
	CardholderName string
}

// ContinueRequest resumes an authorization after step-up completion.
// It must carry the same trace number as the first call.
type ContinueRequest struct {
	OrderID     string
	TraceNumber string
	Amount      decimal.Decimal
	ReferenceID string
	PaRes       string
}

// CompensationRequest is shared by reversal and voiding. RetrievalRefNo is
// the identifier captured verbatim from the first approved response, and
// Amount is the untouched original authorization amount.
type CompensationRequest struct {
	OrderID        string
	TraceNumber    string
	Amount         decimal.Decimal
	RetrievalRefNo string
	AuthIdResponse string
}

// GatewayResult is the normalized gateway response. A decline is a result,
// not an error: only transport failures and timeouts surface as errors so
// that callers can tell a final "no" from an unknown outcome.
type GatewayResult struct {
	Outcome         GatewayOutcome
	ResponseCode    string
	ResponseMessage string
	RetrievalRefNo  string
	AuthIdResponse  string
	StepUpURL       string
	StepUpReference string
	Raw             *domain.GatewayPayload
}

// Approved reports whether the gateway accepted the operation
func (r *GatewayResult) Approved() bool {
	return r.Outcome == OutcomeApproved
}

// CardGateway is the outbound port to the card processor. Every call is
// tagged with the order's trace number for reconciliation.
type CardGateway interface {
	Authorize(ctx context.Context, req *AuthorizeRequest) (*GatewayResult, error)
	ContinueAuthorize(ctx context.Context, req *ContinueRequest) (*GatewayResult, error)
	Reverse(ctx context.Context, req *CompensationRequest) (*GatewayResult, error)
	Void(ctx context.Context, req *CompensationRequest) (*GatewayResult, error)
}
