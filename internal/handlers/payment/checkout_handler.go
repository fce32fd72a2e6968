package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	paymentService "github.com/nimble-gus/topcell2-sub002/internal/services/payment"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutService is the slice of the payment service the handler needs
type CheckoutService interface {
	Checkout(ctx context.Context, req paymentService.CheckoutRequest) (*paymentService.CheckoutResult, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// Voider cancels a confirmed authorization
type Voider interface {
	Void(ctx context.Context, orderID string) (*domain.Order, error)
}

// Handler serves the storefront checkout and back-office payment endpoints
type Handler struct {
	service     CheckoutService
	compensator Voider
	logger      *zap.Logger
}

// NewHandler creates a new payment handler
func NewHandler(service CheckoutService, compensator Voider, logger *zap.Logger) *Handler {
	return &Handler{
		service:     service,
		compensator: compensator,
		logger:      logger,
	}
}

// Routes mounts the payment endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
	r.Post("/orders/{orderID}/void", h.Void)
	r.Get("/orders/{orderID}", h.GetOrder)
}

type checkoutRequest struct {
	OrderID        string `json:"order_id"`
	CustomerID     string `json:"customer_id"`
	Amount         string `json:"amount"`
	CardNumber     string `json:"card_number"`
	ExpirationDate string `json:"expiration_date"`
	CVV2           string `json:"cvv2"`
	CardholderName string `json:"cardholder_name"`
}

type checkoutResponse struct {
	OrderID         string `json:"order_id"`
	TraceNumber     string `json:"trace_number"`
	Status          string `json:"status"`
	Approved        bool   `json:"approved"`
	StepUpRequired  bool   `json:"step_up_required,omitempty"`
	StepUpURL       string `json:"step_up_url,omitempty"`
	StepUpReference string `json:"step_up_reference,omitempty"`
	Message         string `json:"message,omitempty"`
}

// Checkout handles POST /api/v1/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "amount must be a decimal string")
		return
	}

	result, err := h.service.Checkout(r.Context(), paymentService.CheckoutRequest{
		OrderID:        req.OrderID,
		CustomerID:     req.CustomerID,
		Amount:         amount,
		CardNumber:     req.CardNumber,
		ExpirationDate: req.ExpirationDate,
		CVV2:           req.CVV2,
		CardholderName: req.CardholderName,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, checkoutResponse{
		OrderID:         result.OrderID,
		TraceNumber:     result.TraceNumber,
		Status:          result.StatusCode,
		Approved:        result.Approved,
		StepUpRequired:  result.StepUpRequired,
		StepUpURL:       result.StepUpURL,
		StepUpReference: result.StepUpReference,
		Message:         result.Message,
	})
}

type orderResponse struct {
	OrderID        string                 `json:"order_id"`
	TraceNumber    string                 `json:"trace_number"`
	Status         string                 `json:"status"`
	RetrievalRefNo string                 `json:"retrieval_ref_no,omitempty"`
	AuthIdResponse string                 `json:"auth_id_response,omitempty"`
	TotalAmount    string                 `json:"total_amount"`
	RawResponse    *domain.GatewayPayload `json:"raw_gateway_response,omitempty"`
}

// Void handles POST /api/v1/orders/{orderID}/void, the explicit cancellation
// of a confirmed authorization
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.compensator.Void(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// GetOrder handles GET /api/v1/orders/{orderID}. The raw gateway payload
// is included so the back office can reconcile *_ERROR states manually.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func toOrderResponse(order *domain.Order) orderResponse {
	return orderResponse{
		OrderID:        order.ID,
		TraceNumber:    order.TraceNumber,
		Status:         order.PaymentState.StatusCode(),
		RetrievalRefNo: order.RetrievalRefNo,
		AuthIdResponse: order.AuthIdResponse,
		TotalAmount:    order.TotalAmount.StringFixed(2),
		RawResponse:    order.RawResponse,
	}
}

// writeDomainError maps domain errors onto HTTP statuses. The storefront
// gets a generic failure it can retry on; the classified code travels in
// the body for the back office.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		h.logger.Error("unclassified error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Code {
	case domain.ErrorCodeValidationFailed,
		domain.ErrorCodeValidationMissingField,
		domain.ErrorCodeValidationAmountInvalid:
		status = http.StatusBadRequest
	case domain.ErrorCodeOrderNotFound:
		status = http.StatusNotFound
	case domain.ErrorCodeAlreadyTerminal,
		domain.ErrorCodeInvalidTransition:
		status = http.StatusConflict
	case domain.ErrorCodeStorageUnavailable:
		status = http.StatusServiceUnavailable
	case domain.ErrorCodeGatewayTimeout,
		domain.ErrorCodeGatewayError:
		status = http.StatusBadGateway
	}

	h.logger.Warn("request failed",
		zap.String("error_code", string(domainErr.Code)),
		zap.Error(err),
	)

	h.writeJSON(w, status, map[string]string{
		"error": "payment could not be completed",
		"code":  string(domainErr.Code),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("write response", zap.Error(err))
	}
}
