package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_ErrorString(t *testing.T) {
	err := domain.NewDomainError(domain.ErrorCodeOrderNotFound, "order not found")
	assert.Equal(t, "ORDER_NOT_FOUND: order not found", err.Error())

	wrapped := domain.WrapError(domain.ErrorCodeStorageUnavailable, "read counter", errors.New("conn refused"))
	assert.Equal(t, "STORAGE_UNAVAILABLE: read counter: conn refused", wrapped.Error())
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("broken pipe")
	err := domain.WrapError(domain.ErrorCodeGatewayTimeout, "post authorize", cause)

	assert.True(t, errors.Is(err, cause))

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.ErrorCodeGatewayTimeout, domainErr.Code)
}

func TestDomainError_SurvivesWrapping(t *testing.T) {
	inner := domain.NewDomainError(domain.ErrorCodeAlreadyTerminal, "not eligible")
	outer := fmt.Errorf("void order 42: %w", inner)

	assert.True(t, domain.IsDomainError(outer, domain.ErrorCodeAlreadyTerminal))
	assert.Equal(t, domain.ErrorCodeAlreadyTerminal, domain.GetErrorCode(outer))
}

func TestGetErrorCode_NonDomainError(t *testing.T) {
	assert.Equal(t, domain.ErrorCode(""), domain.GetErrorCode(errors.New("plain")))
	assert.Equal(t, domain.ErrorCode(""), domain.GetErrorCode(nil))
}

func TestErrorClassifiers(t *testing.T) {
	timeout := domain.WrapError(domain.ErrorCodeGatewayTimeout, "authorize", errors.New("deadline exceeded"))
	declined := domain.NewDomainError(domain.ErrorCodeGatewayDeclined, "declined")
	storage := domain.NewDomainError(domain.ErrorCodeStorageUnavailable, "db down")
	missing := domain.NewDomainError(domain.ErrorCodeValidationMissingField, "field missing")

	assert.True(t, domain.IsGatewayTimeout(timeout))
	assert.False(t, domain.IsGatewayTimeout(declined), "a decline is final, never a timeout")

	assert.True(t, domain.IsStorageUnavailable(storage))
	assert.False(t, domain.IsStorageUnavailable(timeout))

	assert.True(t, domain.IsValidationError(missing))
	assert.False(t, domain.IsValidationError(storage))
}

func TestWithDetail(t *testing.T) {
	err := domain.NewDomainError(domain.ErrorCodeInvalidTransition, "not allowed").
		WithDetail("current_state", "DECLINADO").
		WithDetail("event", "VOID_APPROVED")

	assert.Equal(t, "DECLINADO", err.Details["current_state"])
	assert.Equal(t, "VOID_APPROVED", err.Details["event"])
}

func TestWithDetail_DoesNotMutateShared(t *testing.T) {
	first := domain.ErrGatewayTimedOut.WithDetail("order_id", "order-1")
	second := domain.ErrGatewayTimedOut.WithDetail("order_id", "order-2")

	assert.Empty(t, domain.ErrGatewayTimedOut.Details, "shared instance must stay untouched")
	assert.Equal(t, "order-1", first.Details["order_id"])
	assert.Equal(t, "order-2", second.Details["order_id"])
}
