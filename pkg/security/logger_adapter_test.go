package security_test

import (
	"testing"

	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
	"github.com/nimble-gus/topcell2-sub002/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskPAN(t *testing.T) {
	tests := []struct {
		name string
		pan  string
		want string
	}{
		{"full card number", "4111111111111111", "************1111"},
		{"short value fully masked", "123", "***"},
		{"four digits fully masked", "1234", "****"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, security.MaskPAN(tt.pan))
		})
	}
}

func TestZapLoggerAdapter_MasksCardFields(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	logger := security.NewZapLogger(zap.New(core))

	logger.Info("authorize request",
		ports.String("order_id", "order-1"),
		ports.String("card_number", "4111111111111111"),
		ports.String("cvv2", "123"),
		ports.String("expiration_date", "1227"),
	)

	entries := observed.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "order-1", fields["order_id"])
	assert.Equal(t, "************1111", fields["card_number"])
	assert.Equal(t, "***", fields["cvv2"])
	assert.Equal(t, "****", fields["expiration_date"])
}

func TestZapLoggerAdapter_MasksNonStringSensitiveValues(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	logger := security.NewZapLogger(zap.New(core))

	logger.Warn("odd payload", ports.Int("card_number", 4111111111111111))

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "****", entries[0].ContextMap()["card_number"])
}

func TestZapLoggerAdapter_LevelsPassThrough(t *testing.T) {
	core, observed := observer.New(zap.DebugLevel)
	logger := security.NewZapLogger(zap.New(core))

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	require.Len(t, observed.All(), 4)
	assert.Equal(t, zap.DebugLevel, observed.All()[0].Level)
	assert.Equal(t, zap.ErrorLevel, observed.All()[3].Level)
}
