package stepup

import (
	"sync"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
)

type challengeKey struct {
	orderID     string
	referenceID string
}

// Broker routes out-of-band challenge completions to the flow waiting on
// them. The callback handler publishes; the suspended checkout flow
// subscribes. Correlation is by (order id, reference id) because the HTTP
// context that issued the challenge may be long gone when the card
// network calls back.
type Broker struct {
	mu      sync.Mutex
	waiters map[challengeKey]chan domain.ChallengeCompletion
}

// NewBroker creates a new completion broker
func NewBroker() *Broker {
	return &Broker{
		waiters: make(map[challengeKey]chan domain.ChallengeCompletion),
	}
}

// Subscribe registers interest in the completion of a challenge. The
// returned channel is buffered so the publisher never blocks on a slow or
// departed subscriber.
func (b *Broker) Subscribe(orderID, referenceID string) <-chan domain.ChallengeCompletion {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := challengeKey{orderID, referenceID}
	ch := make(chan domain.ChallengeCompletion, 1)
	b.waiters[key] = ch
	return ch
}

// Publish delivers a completion to the waiting flow. Returns false when
// nothing is waiting, which happens when the window already expired or
// the card network retried a callback we already consumed.
func (b *Broker) Publish(ev domain.ChallengeCompletion) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := challengeKey{ev.OrderID, ev.ReferenceID}
	ch, ok := b.waiters[key]
	if !ok {
		return false
	}
	delete(b.waiters, key)
	ch <- ev
	return true
}

// Unsubscribe drops a waiter that gave up
func (b *Broker) Unsubscribe(orderID, referenceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.waiters, challengeKey{orderID, referenceID})
}
