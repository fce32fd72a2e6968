package domain

import "time"

// ChallengeState represents the lifecycle of a step-up authentication challenge
type ChallengeState string

const (
	ChallengeNotRequired ChallengeState = "NOT_REQUIRED"
	ChallengeIssued      ChallengeState = "CHALLENGE_ISSUED"
	ChallengeCompleted   ChallengeState = "CHALLENGE_COMPLETED"
	ChallengeAbandoned   ChallengeState = "ABANDONED"
)

// Challenge ties a step-up authentication round to an order, its trace
// number, and the gateway-issued reference id. RedirectURL is the
// embeddable resource handed to the cardholder's browser.
type Challenge struct {
	OrderID     string
	TraceNumber string
	ReferenceID string
	RedirectURL string
	State       ChallengeState
	IssuedAt    time.Time
}

// ChallengeCompletion is the out-of-band signal posted by the card network
// once the cardholder finishes (or fails) the challenge. Correlated by
// order id and reference id, never by the original request/response pair.
type ChallengeCompletion struct {
	OrderID     string
	ReferenceID string
	TraceNumber string
	PaRes       string // authentication proof echoed to the gateway continuation call
	ReceivedAt  time.Time
}
