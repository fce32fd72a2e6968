package security

import (
	"strings"

	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
	"go.uber.org/zap"
)

// sensitiveKeys are log field keys whose values are masked before they
// reach any sink. Card data never lands in logs or storage.
var sensitiveKeys = map[string]bool{
	"card_number":     true,
	"cvv2":            true,
	"expiration_date": true,
}

// ZapLoggerAdapter adapts zap.Logger to the Logger port and masks
// sensitive card fields
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

// NewZapLogger creates a new ZapLoggerAdapter
func NewZapLogger(logger *zap.Logger) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{logger: logger}
}

// Info logs an info message
func (z *ZapLoggerAdapter) Info(msg string, fields ...ports.Field) {
	z.logger.Info(msg, convertFields(fields)...)
}

// Error logs an error message
func (z *ZapLoggerAdapter) Error(msg string, fields ...ports.Field) {
	z.logger.Error(msg, convertFields(fields)...)
}

// Warn logs a warning message
func (z *ZapLoggerAdapter) Warn(msg string, fields ...ports.Field) {
	z.logger.Warn(msg, convertFields(fields)...)
}

// Debug logs a debug message
func (z *ZapLoggerAdapter) Debug(msg string, fields ...ports.Field) {
	z.logger.Debug(msg, convertFields(fields)...)
}

// convertFields converts port fields to zap fields, masking card data
func convertFields(fields []ports.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		if sensitiveKeys[f.Key] {
			if s, ok := f.Value.(string); ok {
				zapFields[i] = zap.String(f.Key, MaskPAN(s))
				continue
			}
			zapFields[i] = zap.String(f.Key, "****")
			continue
		}
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return zapFields
}

// MaskPAN masks a card number down to its last four digits
func MaskPAN(pan string) string {
	if len(pan) <= 4 {
		return strings.Repeat("*", len(pan))
	}
	return strings.Repeat("*", len(pan)-4) + pan[len(pan)-4:]
}
