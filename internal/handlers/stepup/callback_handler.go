package stepup

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"go.uber.org/zap"
)

// ChallengeCompleter receives the out-of-band completion signal
type ChallengeCompleter interface {
	Complete(ev domain.ChallengeCompletion) error
}

// CallbackHandler receives the card network's step-up completion call.
// It always acknowledges with 200 so the calling component does not
// retry; the real resolution travels through the orchestrator's broker,
// never through this response body.
type CallbackHandler struct {
	orchestrator ChallengeCompleter
	logger       *zap.Logger
}

// NewCallbackHandler creates a new step-up callback handler
func NewCallbackHandler(orchestrator ChallengeCompleter, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// ServeHTTP handles POST and GET callbacks. Parameters arrive as query
// string or form body depending on how the card network redirects the
// cardholder's browser.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("step-up callback with unparseable form", zap.Error(err))
		h.ack(w)
		return
	}

	ev := domain.ChallengeCompletion{
		OrderID:     r.Form.Get("order_id"),
		ReferenceID: r.Form.Get("reference_id"),
		TraceNumber: r.Form.Get("trace_number"),
		PaRes:       r.Form.Get("pares"),
		ReceivedAt:  time.Now(),
	}

	if ev.OrderID == "" || ev.ReferenceID == "" {
		h.logger.Warn("step-up callback missing correlation parameters",
			zap.String("order_id", ev.OrderID),
			zap.String("reference_id", ev.ReferenceID),
		)
		h.ack(w)
		return
	}

	if err := h.orchestrator.Complete(ev); err != nil {
		// Late or unknown callback. Still a 200: the order's fate was
		// already decided by the abandon path.
		h.logger.Warn("step-up completion not delivered",
			zap.String("order_id", ev.OrderID),
			zap.String("reference_id", ev.ReferenceID),
			zap.Error(err),
		)
		h.ack(w)
		return
	}

	h.logger.Info("step-up completion delivered",
		zap.String("order_id", ev.OrderID),
		zap.String("reference_id", ev.ReferenceID),
	)
	h.ack(w)
}

func (h *CallbackHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
