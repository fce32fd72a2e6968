package stepup_test

import (
	"testing"
	"time"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/services/stepup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishDeliversToSubscriber(t *testing.T) {
	broker := stepup.NewBroker()

	ch := broker.Subscribe("order-1", "ref-1")

	ev := domain.ChallengeCompletion{
		OrderID:     "order-1",
		ReferenceID: "ref-1",
		TraceNumber: "000042",
		PaRes:       "eJxVUtt...",
		ReceivedAt:  time.Now(),
	}
	require.True(t, broker.Publish(ev))

	select {
	case got := <-ch:
		assert.Equal(t, "000042", got.TraceNumber)
		assert.Equal(t, "eJxVUtt...", got.PaRes)
	default:
		t.Fatal("completion not delivered")
	}
}

func TestBroker_PublishWithoutSubscriberReturnsFalse(t *testing.T) {
	broker := stepup.NewBroker()

	delivered := broker.Publish(domain.ChallengeCompletion{OrderID: "order-1", ReferenceID: "ref-1"})
	assert.False(t, delivered)
}

func TestBroker_PublishConsumesSubscription(t *testing.T) {
	broker := stepup.NewBroker()
	broker.Subscribe("order-1", "ref-1")

	ev := domain.ChallengeCompletion{OrderID: "order-1", ReferenceID: "ref-1"}
	assert.True(t, broker.Publish(ev))
	// A retried callback finds nothing waiting
	assert.False(t, broker.Publish(ev))
}

func TestBroker_KeysAreIndependent(t *testing.T) {
	broker := stepup.NewBroker()
	broker.Subscribe("order-1", "ref-1")

	assert.False(t, broker.Publish(domain.ChallengeCompletion{OrderID: "order-1", ReferenceID: "ref-other"}))
	assert.False(t, broker.Publish(domain.ChallengeCompletion{OrderID: "order-other", ReferenceID: "ref-1"}))
	assert.True(t, broker.Publish(domain.ChallengeCompletion{OrderID: "order-1", ReferenceID: "ref-1"}))
}

func TestBroker_UnsubscribeDropsWaiter(t *testing.T) {
	broker := stepup.NewBroker()
	broker.Subscribe("order-1", "ref-1")
	broker.Unsubscribe("order-1", "ref-1")

	assert.False(t, broker.Publish(domain.ChallengeCompletion{OrderID: "order-1", ReferenceID: "ref-1"}))
}
