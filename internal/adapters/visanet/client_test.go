package visanet_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/nimble-gus/topcell2-sub002/internal/adapters/visanet"
	"github.com/nimble-gus/topcell2-sub002/internal/domain"
	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
	"github.com/nimble-gus/topcell2-sub002/test/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = visanet.Credentials{
	MerchantID: "MERCH001",
	TerminalID: "TERM01",
	APIKey:     "test-key",
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func authorizeRequest() *ports.AuthorizeRequest {
	return &ports.AuthorizeRequest{
		OrderID:        "order-1",
		TraceNumber:    "000123",
		Amount:         decimal.NewFromFloat(499.99),
		CardNumber:     "4111111111111111",
		ExpirationDate: "1227",
		CVV2:           "123",
		CardholderName: "MARIA LOPEZ",
	}
}

func TestClient_Authorize_Approved(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{
			"ResponseCode": "00",
			"ResponseMessage": "APPROVAL",
			"RetrievalRefNo": "432100054321",
			"AuthIdResponse": "A12345",
			"SystemsTraceNo": "000123"
		}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.Authorize(context.Background(), authorizeRequest())
	require.NoError(t, err)

	assert.Equal(t, ports.OutcomeApproved, result.Outcome)
	assert.True(t, result.Approved())
	assert.Equal(t, "00", result.ResponseCode)
	assert.Equal(t, "432100054321", result.RetrievalRefNo)
	assert.Equal(t, "A12345", result.AuthIdResponse)
	require.NotNil(t, result.Raw)
	assert.Equal(t, "000123", result.Raw.SystemsTraceNo)
}

func TestClient_Authorize_AlternateApprovalCode(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"ResponseCode": "10", "RetrievalRefNo": "999900012345"}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.Authorize(context.Background(), authorizeRequest())
	require.NoError(t, err)
	assert.True(t, result.Approved())
}

func TestClient_Authorize_Declined(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"ResponseCode": "51", "ResponseMessage": "INSUFF FUNDS"}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.Authorize(context.Background(), authorizeRequest())

	// A decline is a result, not an error
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeDeclined, result.Outcome)
	assert.False(t, result.Approved())
	assert.Equal(t, "51", result.ResponseCode)
}

func TestClient_Authorize_MissingResponseCodeIsDecline(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"ResponseMessage": "weird payload"}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.Authorize(context.Background(), authorizeRequest())
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeDeclined, result.Outcome)
}

func TestClient_Authorize_StepUpRequired(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{
			"ResponseCode": "3D",
			"VbVRedirectURL": "https://acs.bank.test/challenge",
			"VbVReferenceID": "ref-789"
		}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.Authorize(context.Background(), authorizeRequest())
	require.NoError(t, err)

	assert.Equal(t, ports.OutcomeStepUp, result.Outcome)
	assert.Equal(t, "https://acs.bank.test/challenge", result.StepUpURL)
	assert.Equal(t, "ref-789", result.StepUpReference)
}

func TestClient_Authorize_StepUpWithoutReferenceIsDecline(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"ResponseCode": "3D"}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.Authorize(context.Background(), authorizeRequest())
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeDeclined, result.Outcome)
}

func TestClient_Authorize_NetworkErrorIsTimeout(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.Authorize(context.Background(), authorizeRequest())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domain.IsGatewayTimeout(err), "unknown outcome must classify as timeout, got %v", err)
}

func TestClient_Authorize_DeadlineExceededIsTimeout(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	_, err := client.Authorize(context.Background(), authorizeRequest())
	require.Error(t, err)
	assert.True(t, domain.IsGatewayTimeout(err))
}

func TestClient_Authorize_ServerErrorIsTimeout(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(503, `upstream unavailable`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	_, err := client.Authorize(context.Background(), authorizeRequest())
	require.Error(t, err)
	assert.True(t, domain.IsGatewayTimeout(err), "5xx leaves the outcome unknown")
}

func TestClient_Authorize_ClientErrorIsGatewayError(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"error":"bad credentials"}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	_, err := client.Authorize(context.Background(), authorizeRequest())
	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeGatewayError, domain.GetErrorCode(err))
	assert.False(t, domain.IsGatewayTimeout(err), "4xx is a definite rejection, not an unknown outcome")
}

func TestClient_Authorize_RequestWireFormat(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(nil)
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	_, err := client.Authorize(context.Background(), authorizeRequest())
	require.NoError(t, err)
	require.Len(t, httpClient.Calls, 1)

	sent := httpClient.Calls[0]
	assert.Equal(t, "https://gateway.test/authorize", sent.URL.String())
	assert.Equal(t, "Bearer test-key", sent.Header.Get("Authorization"))
	assert.Equal(t, "application/json", sent.Header.Get("Content-Type"))

	body, err := io.ReadAll(sent.Body)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &wire))
	assert.Equal(t, "MERCH001", wire["MerchantId"])
	assert.Equal(t, "TERM01", wire["TerminalId"])
	assert.Equal(t, "000123", wire["SystemsTraceNo"])
	assert.Equal(t, "499.99", wire["TransactionAmount"])
	assert.Equal(t, "4111111111111111", wire["CardNumber"])
}

func TestClient_Authorize_ValidatesInput(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(nil)
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	req := authorizeRequest()
	req.TraceNumber = ""
	_, err := client.Authorize(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))

	req = authorizeRequest()
	req.Amount = decimal.Zero
	_, err = client.Authorize(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))

	// Nothing reached the gateway
	assert.Empty(t, httpClient.Calls)
}

func TestClient_ContinueAuthorize_ReusesTraceNumber(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"ResponseCode": "00", "RetrievalRefNo": "888800011111"}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.ContinueAuthorize(context.Background(), &ports.ContinueRequest{
		OrderID:     "order-1",
		TraceNumber: "000123",
		Amount:      decimal.NewFromFloat(499.99),
		ReferenceID: "ref-789",
		PaRes:       "eJxVUtt...",
	})
	require.NoError(t, err)
	assert.True(t, result.Approved())

	require.Len(t, httpClient.Calls, 1)
	sent := httpClient.Calls[0]
	assert.Equal(t, "https://gateway.test/authorize/complete", sent.URL.String())

	body, _ := io.ReadAll(sent.Body)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &wire))
	assert.Equal(t, "000123", wire["SystemsTraceNo"], "continuation must carry the original trace number")
	assert.Equal(t, "ref-789", wire["VbVReferenceID"])
}

func TestClient_Reverse_WireFormat(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"ResponseCode": "00"}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.Reverse(context.Background(), &ports.CompensationRequest{
		OrderID:        "order-1",
		TraceNumber:    "000123",
		Amount:         decimal.NewFromFloat(499.99),
		RetrievalRefNo: "432100054321",
		AuthIdResponse: "A12345",
	})
	require.NoError(t, err)
	assert.True(t, result.Approved())

	require.Len(t, httpClient.Calls, 1)
	sent := httpClient.Calls[0]
	assert.Equal(t, "https://gateway.test/reverse", sent.URL.String())

	body, _ := io.ReadAll(sent.Body)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &wire))
	assert.Equal(t, "000123", wire["SystemsTraceNo"])
	assert.Equal(t, "432100054321", wire["RetrievalRefNo"])
	assert.Equal(t, "499.99", wire["TransactionAmount"], "compensation must carry the untouched original amount")
}

func TestClient_Void_DeclinedByGateway(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"ResponseCode": "12", "ResponseMessage": "INVALID TRANS"}`), nil
	})
	client := visanet.NewClient(testCreds, "https://gateway.test", httpClient, mocks.NewMockLogger())

	result, err := client.Void(context.Background(), &ports.CompensationRequest{
		TraceNumber:    "000123",
		Amount:         decimal.NewFromFloat(10),
		RetrievalRefNo: "432100054321",
	})
	require.NoError(t, err)
	assert.False(t, result.Approved())
	assert.Equal(t, "12", result.ResponseCode)
}
