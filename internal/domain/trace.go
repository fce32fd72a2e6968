package domain

import "fmt"

// TraceCounterMax is the last counter value before the cycle wraps back
// to 1. The gateway's SystemsTraceNo field holds six decimal digits and
// 000000 is not a valid trace number.
const TraceCounterMax = 999999

// NextTraceValue computes the successor of a counter value. 999999 wraps
// to 1, never 0; a never-initialized counter (0) also yields 1.
func NextTraceValue(current int64) int64 {
	next := current + 1
	if next > TraceCounterMax {
		next = 1
	}
	return next
}

// FormatTraceNumber renders a counter value as the 6-digit zero-padded
// string the gateway expects
func FormatTraceNumber(value int64) string {
	return fmt.Sprintf("%06d", value)
}
