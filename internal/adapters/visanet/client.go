package visanet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
)

// Credentials identify the merchant to the gateway
type Credentials struct {
	MerchantID string
	TerminalID string
	APIKey     string
}

// Client implements ports.CardGateway against the card processor's
// JSON-over-HTTPS API. Every request carries the order's SystemsTraceNo;
// the gateway uses it to recognize continuations, reversals, and voids of
// the same authorization attempt.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient ports.HTTPClient
	logger     ports.Logger
}

// NewClient creates a new gateway client with dependency injection
func NewClient(creds Credentials, baseURL string, httpClient ports.HTTPClient, logger ports.Logger) *Client {
	return &Client{
		creds:      creds,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewClientWithDefaults creates a new gateway client with a default HTTP client
func NewClientWithDefaults(creds Credentials, baseURL string, timeout time.Duration, logger ports.Logger) *Client {
	return &Client{
		creds:      creds,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// authorizeRequest is the wire format of the first authorization call
type authorizeRequest struct {
	MerchantID     string `json:"MerchantId"`
	TerminalID     string `json:"TerminalId"`
	SystemsTraceNo string `json:"SystemsTraceNo"`
	Amount         string `json:"TransactionAmount"`
	CardNumber     string `json:"CardNumber"`
	ExpirationDate string `json:"ExpirationDate"`
	CVV2           string `json:"CVV2,omitempty"`
	CardholderName string `json:"CardholderName,omitempty"`
}

// continueRequest resumes an authorization after step-up completion
type continueRequest struct {
	MerchantID     string `json:"MerchantId"`
	TerminalID     string `json:"TerminalId"`
	SystemsTraceNo string `json:"SystemsTraceNo"`
	Amount         string `json:"TransactionAmount"`
	VbVReferenceID string `json:"VbVReferenceID"`
	PaRes          string `json:"PaRes"`
}

// compensationRequest is the wire format shared by reversal and void
type compensationRequest struct {
	MerchantID     string `json:"MerchantId"`
	TerminalID     string `json:"TerminalId"`
	SystemsTraceNo string `json:"SystemsTraceNo"`
	Amount         string `json:"TransactionAmount"`
	RetrievalRefNo string `json:"RetrievalRefNo"`
	AuthIdResponse string `json:"AuthIdResponse,omitempty"`
}

// Authorize implements CardGateway.Authorize
func (c *Client) Authorize(ctx context.Context, req *ports.AuthorizeRequest) (*ports.GatewayResult, error) {
	if req.TraceNumber == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "trace_number")
	}
	if req.CardNumber == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "card_number")
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", req.Amount.String())
	}

	wireReq := authorizeRequest{
		MerchantID:     c.creds.MerchantID,
		TerminalID:     c.creds.TerminalID,
		SystemsTraceNo: req.TraceNumber,
		Amount:         req.Amount.StringFixed(2),
		CardNumber:     req.CardNumber,
		ExpirationDate: req.ExpirationDate,
		CVV2:           req.CVV2,
		CardholderName: req.CardholderName,
	}

	payload, err := c.post(ctx, "/authorize", req.TraceNumber, wireReq)
	if err != nil {
		return nil, err
	}

	return c.toResult(payload), nil
}

// ContinueAuthorize implements CardGateway.ContinueAuthorize. The trace
// number must be the one from the first authorization call so the gateway
// resumes the suspended attempt instead of opening a new one.
func (c *Client) ContinueAuthorize(ctx context.Context, req *ports.ContinueRequest) (*ports.GatewayResult, error) {
	if req.TraceNumber == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "trace_number")
	}
	if req.ReferenceID == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "reference_id")
	}

	wireReq := continueRequest{
		MerchantID:     c.creds.MerchantID,
		TerminalID:     c.creds.TerminalID,
		SystemsTraceNo: req.TraceNumber,
		Amount:         req.Amount.StringFixed(2),
		VbVReferenceID: req.ReferenceID,
		PaRes:          req.PaRes,
	}

	payload, err := c.post(ctx, "/authorize/complete", req.TraceNumber, wireReq)
	if err != nil {
		return nil, err
	}

	return c.toResult(payload), nil
}

// Reverse implements CardGateway.Reverse
func (c *Client) Reverse(ctx context.Context, req *ports.CompensationRequest) (*ports.GatewayResult, error) {
	return c.compensate(ctx, "/reverse", req)
}

// Void implements CardGateway.Void
func (c *Client) Void(ctx context.Context, req *ports.CompensationRequest) (*ports.GatewayResult, error) {
	return c.compensate(ctx, "/void", req)
}

func (c *Client) compensate(ctx context.Context, endpoint string, req *ports.CompensationRequest) (*ports.GatewayResult, error) {
	if req.TraceNumber == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "trace_number")
	}

	wireReq := compensationRequest{
		MerchantID:     c.creds.MerchantID,
		TerminalID:     c.creds.TerminalID,
		SystemsTraceNo: req.TraceNumber,
		Amount:         req.Amount.StringFixed(2),
		RetrievalRefNo: req.RetrievalRefNo,
		AuthIdResponse: req.AuthIdResponse,
	}

	payload, err := c.post(ctx, endpoint, req.TraceNumber, wireReq)
	if err != nil {
		return nil, err
	}

	return c.toResult(payload), nil
}

// toResult normalizes a parsed gateway payload into a GatewayResult
func (c *Client) toResult(payload *domain.GatewayPayload) *ports.GatewayResult {
	info := Classify(payload.ResponseCode)

	outcome := ports.OutcomeDeclined
	switch {
	case info.Approved:
		outcome = ports.OutcomeApproved
	case info.StepUp && payload.VbVReferenceID != "":
		outcome = ports.OutcomeStepUp
	}

	return &ports.GatewayResult{
		Outcome:         outcome,
		ResponseCode:    payload.ResponseCode,
		ResponseMessage: payload.ResponseMessage,
		RetrievalRefNo:  payload.RetrievalRefNo,
		AuthIdResponse:  payload.AuthIdResponse,
		StepUpURL:       payload.VbVRedirectURL,
		StepUpReference: payload.VbVReferenceID,
		Raw:             payload,
	}
}

// post sends one request to the gateway and parses the response. Network
// failures, client timeouts, and 5xx statuses all surface as
// GATEWAY_TIMEOUT: the gateway's true decision is unknown and the caller
// must compensate, never assume a decline.
func (c *Client) post(ctx context.Context, endpoint, traceNumber string, request interface{}) (*domain.GatewayPayload, error) {
	payloadBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	url := c.baseURL + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create gateway request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.creds.APIKey)

	start := time.Now()
	c.logger.Info("gateway request",
		ports.String("endpoint", endpoint),
		ports.String("trace_number", traceNumber),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, domain.WrapError(domain.ErrorCodeGatewayTimeout, "gateway call timed out", err).
				WithDetail("trace_number", traceNumber).
				WithDetail("endpoint", endpoint)
		}
		return nil, domain.WrapError(domain.ErrorCodeGatewayTimeout, "gateway unreachable", err).
			WithDetail("trace_number", traceNumber).
			WithDetail("endpoint", endpoint)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayTimeout, "read gateway response", err).
			WithDetail("trace_number", traceNumber)
	}

	if httpResp.StatusCode >= 500 {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayTimeout, "gateway returned server error").
			WithDetail("trace_number", traceNumber).
			WithDetail("http_status", httpResp.StatusCode)
	}
	if httpResp.StatusCode >= 400 {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayError, "gateway rejected request").
			WithDetail("trace_number", traceNumber).
			WithDetail("http_status", httpResp.StatusCode)
	}

	var payload domain.GatewayPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal gateway response: %w", err)
	}

	c.logger.Info("gateway response",
		ports.String("endpoint", endpoint),
		ports.String("trace_number", traceNumber),
		ports.String("response_code", payload.ResponseCode),
		ports.Duration("elapsed", time.Since(start)),
	)

	return &payload, nil
}

// isTimeout distinguishes deadline expiry from other transport failures
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
