package stepup_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/handlers/stepup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockChallengeCompleter mocks the orchestrator's completion entry point
type MockChallengeCompleter struct {
	mock.Mock
}

func (m *MockChallengeCompleter) Complete(ev domain.ChallengeCompletion) error {
	args := m.Called(ev)
	return args.Error(0)
}

func postCallback(handler http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callbacks/stepup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCallbackHandler_DeliversCompletion(t *testing.T) {
	completer := new(MockChallengeCompleter)
	handler := stepup.NewCallbackHandler(completer, zap.NewNop())

	var got domain.ChallengeCompletion
	completer.On("Complete", mock.AnythingOfType("domain.ChallengeCompletion")).
		Run(func(args mock.Arguments) {
			got = args.Get(0).(domain.ChallengeCompletion)
		}).
		Return(nil).Once()

	rec := postCallback(handler, url.Values{
		"order_id":     {"order-1"},
		"reference_id": {"ref-789"},
		"trace_number": {"000123"},
		"pares":        {"eJxVUtt..."},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	assert.Equal(t, "order-1", got.OrderID)
	assert.Equal(t, "ref-789", got.ReferenceID)
	assert.Equal(t, "000123", got.TraceNumber)
	assert.Equal(t, "eJxVUtt...", got.PaRes)
	assert.False(t, got.ReceivedAt.IsZero())

	completer.AssertExpectations(t)
}

func TestCallbackHandler_GetWithQueryParams(t *testing.T) {
	completer := new(MockChallengeCompleter)
	handler := stepup.NewCallbackHandler(completer, zap.NewNop())

	completer.On("Complete", mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/callbacks/stepup?order_id=order-1&reference_id=ref-789&pares=abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	completer.AssertExpectations(t)
}

func TestCallbackHandler_MissingParamsStillAcks(t *testing.T) {
	completer := new(MockChallengeCompleter)
	handler := stepup.NewCallbackHandler(completer, zap.NewNop())

	rec := postCallback(handler, url.Values{"pares": {"abc"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	completer.AssertNotCalled(t, "Complete")
}

func TestCallbackHandler_LateCallbackStillAcks(t *testing.T) {
	completer := new(MockChallengeCompleter)
	handler := stepup.NewCallbackHandler(completer, zap.NewNop())

	completer.On("Complete", mock.Anything).
		Return(domain.ErrChallengeNotFound).Once()

	rec := postCallback(handler, url.Values{
		"order_id":     {"order-1"},
		"reference_id": {"ref-789"},
	})

	// The browser must never see an error page for an already-decided order
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}

func TestCallbackHandler_RejectsOtherMethods(t *testing.T) {
	completer := new(MockChallengeCompleter)
	handler := stepup.NewCallbackHandler(completer, zap.NewNop())

	req := httptest.NewRequest(http.MethodDelete, "/callbacks/stepup", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	completer.AssertNotCalled(t, "Complete")
}
