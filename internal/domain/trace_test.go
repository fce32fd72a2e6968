package domain_test

import (
	"testing"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNextTraceValue(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		want    int64
	}{
		{"uninitialized counter starts at 1", 0, 1},
		{"normal increment", 41, 42},
		{"one before max", 999998, 999999},
		{"max wraps to 1, never 0", 999999, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NextTraceValue(tt.current))
		})
	}
}

func TestNextTraceValue_WrapSequence(t *testing.T) {
	// Counter at 999998: the next three allocations are 999999, 1, 2
	current := int64(999998)
	var got []string
	for i := 0; i < 3; i++ {
		current = domain.NextTraceValue(current)
		got = append(got, domain.FormatTraceNumber(current))
	}
	assert.Equal(t, []string{"999999", "000001", "000002"}, got)
}

func TestFormatTraceNumber(t *testing.T) {
	assert.Equal(t, "000001", domain.FormatTraceNumber(1))
	assert.Equal(t, "004217", domain.FormatTraceNumber(4217))
	assert.Equal(t, "999999", domain.FormatTraceNumber(999999))
}
