package stepup

import (
	"context"
	"sync"
	"time"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
)

// issuedChallenge pairs a live challenge with its completion channel. The
// channel is created at issue time: the cardholder can finish the
// challenge the moment the redirect URL leaves the building, so a
// completion must have somewhere to land before any flow starts waiting.
type issuedChallenge struct {
	challenge *domain.Challenge
	ch        <-chan domain.ChallengeCompletion
}

// Orchestrator mediates the card network's step-up authentication
// challenge. It issues challenge references, suspends the authorization
// flow without holding locks or connections, and resumes it when the
// browser-side completion arrives through the callback endpoint.
type Orchestrator struct {
	broker *Broker
	window time.Duration
	logger ports.Logger

	mu         sync.Mutex
	challenges map[challengeKey]*issuedChallenge
}

// NewOrchestrator creates a step-up orchestrator. window bounds how long
// a challenge may stay unanswered before it is abandoned.
func NewOrchestrator(broker *Broker, window time.Duration, logger ports.Logger) *Orchestrator {
	return &Orchestrator{
		broker:     broker,
		window:     window,
		logger:     logger,
		challenges: make(map[challengeKey]*issuedChallenge),
	}
}

// Issue records a challenge for an order and returns the embeddable
// challenge resource for the cardholder's browser. The completion
// subscription is registered here, not in Await: a callback that arrives
// in the gap between issuing and waiting is buffered, never lost.
func (o *Orchestrator) Issue(orderID, traceNumber, referenceID, redirectURL string) *domain.Challenge {
	challenge := &domain.Challenge{
		OrderID:     orderID,
		TraceNumber: traceNumber,
		ReferenceID: referenceID,
		RedirectURL: redirectURL,
		State:       domain.ChallengeIssued,
		IssuedAt:    time.Now(),
	}

	ch := o.broker.Subscribe(orderID, referenceID)

	o.mu.Lock()
	o.challenges[challengeKey{orderID, referenceID}] = &issuedChallenge{
		challenge: challenge,
		ch:        ch,
	}
	o.mu.Unlock()

	o.logger.Info("step-up challenge issued",
		ports.String("order_id", orderID),
		ports.String("trace_number", traceNumber),
		ports.String("reference_id", referenceID),
	)

	return challenge
}

// Await suspends until the challenge completes, the window expires, or
// ctx is cancelled. On expiry the challenge moves to ABANDONED and the
// caller receives STEPUP_CHALLENGE_ABANDONED; no compensating call is
// needed because no funds were authorized yet.
func (o *Orchestrator) Await(ctx context.Context, challenge *domain.Challenge) (*domain.ChallengeCompletion, error) {
	o.mu.Lock()
	issued, ok := o.challenges[challengeKey{challenge.OrderID, challenge.ReferenceID}]
	o.mu.Unlock()

	if !ok {
		return nil, domain.ErrChallengeNotFound.
			WithDetail("order_id", challenge.OrderID).
			WithDetail("reference_id", challenge.ReferenceID)
	}

	timer := time.NewTimer(o.window)
	defer timer.Stop()

	select {
	case ev := <-issued.ch:
		o.setState(challenge, domain.ChallengeCompleted)
		o.logger.Info("step-up challenge completed",
			ports.String("order_id", challenge.OrderID),
			ports.String("reference_id", challenge.ReferenceID),
		)
		return &ev, nil

	case <-timer.C:
		o.broker.Unsubscribe(challenge.OrderID, challenge.ReferenceID)
		o.setState(challenge, domain.ChallengeAbandoned)
		o.logger.Warn("step-up challenge abandoned",
			ports.String("order_id", challenge.OrderID),
			ports.String("reference_id", challenge.ReferenceID),
			ports.Duration("window", o.window),
		)
		return nil, domain.ErrChallengeAbandoned.
			WithDetail("order_id", challenge.OrderID).
			WithDetail("reference_id", challenge.ReferenceID)

	case <-ctx.Done():
		o.broker.Unsubscribe(challenge.OrderID, challenge.ReferenceID)
		o.setState(challenge, domain.ChallengeAbandoned)
		return nil, domain.WrapError(domain.ErrorCodeChallengeAbandoned, "step-up wait cancelled", ctx.Err())
	}
}

// Complete handles the inbound completion signal from the callback
// endpoint and hands it to the subscription opened at issue time
func (o *Orchestrator) Complete(ev domain.ChallengeCompletion) error {
	o.mu.Lock()
	_, known := o.challenges[challengeKey{ev.OrderID, ev.ReferenceID}]
	o.mu.Unlock()

	if !known {
		return domain.ErrChallengeNotFound.
			WithDetail("order_id", ev.OrderID).
			WithDetail("reference_id", ev.ReferenceID)
	}

	if !o.broker.Publish(ev) {
		return domain.ErrChallengeAbandoned.
			WithDetail("order_id", ev.OrderID).
			WithDetail("reference_id", ev.ReferenceID)
	}

	return nil
}

// Lookup returns the recorded challenge, if any
func (o *Orchestrator) Lookup(orderID, referenceID string) (*domain.Challenge, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	issued, ok := o.challenges[challengeKey{orderID, referenceID}]
	if !ok {
		return nil, false
	}
	return issued.challenge, true
}

func (o *Orchestrator) setState(challenge *domain.Challenge, state domain.ChallengeState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	challenge.State = state
	if state == domain.ChallengeCompleted || state == domain.ChallengeAbandoned {
		// Terminal: drop from the registry so late callbacks get a 200
		// ack but no resumption
		delete(o.challenges, challengeKey{challenge.OrderID, challenge.ReferenceID})
	}
}
