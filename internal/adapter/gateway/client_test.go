package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"ticketing-payments/config"
	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/internal/service"
	"ticketing-payments/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHTTPClient struct {
	lastReq *http.Request
	status  int
	body    string
	err     error
}

func (c *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &http.Response{
		StatusCode: c.status,
		Body:       io.NopCloser(strings.NewReader(c.body)),
	}, nil
}

func testConfig() config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:        "https://gateway.example.com",
		IntegrationID:  "1234",
		IntegrationKey: "integration-key",
		ReturnURL:      "https://tickets.example.com/return",
		ResultURL:      "https://tickets.example.com/webhook",
	}
}

func newTestClient(stub *stubHTTPClient) *Client {
	return NewClient(testConfig(), service.NewSHA512SignatureVerifier(), stub, zerolog.Nop())
}

func initReq() ports.GatewayInitiateRequest {
	return ports.GatewayInitiateRequest{
		Reference:     "conf-2026-1",
		Amount:        decimal.NewFromFloat(25.5),
		Currency:      "USD",
		CustomerEmail: "dana@example.com",
		Description:   "Ticket for Conference 2026",
	}
}

func TestClient_InitiateRedirect(t *testing.T) {
	stub := &stubHTTPClient{
		status: http.StatusOK,
		body:   "status=Ok&browserurl=https%3A%2F%2Fgateway.example.com%2Fpay%2Fabc&pollurl=https%3A%2F%2Fgateway.example.com%2Fpoll%2Fabc",
	}
	c := newTestClient(stub)

	handles, err := c.InitiateRedirect(context.Background(), initReq())
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/poll/abc", handles.PollHandle)
	assert.Equal(t, "https://gateway.example.com/pay/abc", handles.RedirectURL)

	require.NotNil(t, stub.lastReq)
	assert.Equal(t, "https://gateway.example.com/interface/initiatetransaction", stub.lastReq.URL.String())
	assert.Equal(t, "application/x-www-form-urlencoded", stub.lastReq.Header.Get("Content-Type"))

	body, err := io.ReadAll(stub.lastReq.Body)
	require.NoError(t, err)
	form, err := url.ParseQuery(string(body))
	require.NoError(t, err)
	assert.Equal(t, "1234", form.Get("id"))
	assert.Equal(t, "conf-2026-1", form.Get("reference"))
	assert.Equal(t, "25.50", form.Get("amount"))
	assert.NotEmpty(t, form.Get("hash"))

	// Outbound payload is signed with the integration key.
	fields := map[string]string{}
	for k := range form {
		fields[k] = form.Get(k)
	}
	v := service.NewSHA512SignatureVerifier()
	assert.True(t, v.Verify(fields, form.Get("hash"), "integration-key"))
}

func TestClient_InitiateMobile(t *testing.T) {
	stub := &stubHTTPClient{
		status: http.StatusOK,
		body:   "status=Ok&pollurl=https%3A%2F%2Fgateway.example.com%2Fpoll%2Fxyz&instructions=Confirm+on+your+handset",
	}
	c := newTestClient(stub)

	handles, err := c.InitiateMobile(context.Background(), initReq(), "0771234567", "ecocash")
	require.NoError(t, err)
	assert.Equal(t, "Confirm on your handset", handles.Instructions)
	assert.Empty(t, handles.RedirectURL)

	assert.Equal(t, "https://gateway.example.com/interface/remotetransaction", stub.lastReq.URL.String())
	body, _ := io.ReadAll(stub.lastReq.Body)
	form, _ := url.ParseQuery(string(body))
	assert.Equal(t, "0771234567", form.Get("phone"))
	assert.Equal(t, "ecocash", form.Get("method"))
}

func TestClient_InitiateRejected(t *testing.T) {
	stub := &stubHTTPClient{
		status: http.StatusOK,
		body:   "status=Error&error=invalid+integration+id",
	}
	c := newTestClient(stub)

	_, err := c.InitiateRedirect(context.Background(), initReq())
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "GW_001", appErr.Code)
	assert.Contains(t, appErr.Message, "invalid integration id")
}

func TestClient_InitiateTransportError(t *testing.T) {
	stub := &stubHTTPClient{err: errors.New("connection refused")}
	c := newTestClient(stub)

	_, err := c.InitiateRedirect(context.Background(), initReq())
	require.Error(t, err)
	var appErr *apperror.AppError
	assert.False(t, errors.As(err, &appErr), "transport errors stay plain for callers to degrade")
}

func TestClient_InitiateMissingPollURL(t *testing.T) {
	stub := &stubHTTPClient{status: http.StatusOK, body: "status=Ok"}
	c := newTestClient(stub)

	_, err := c.InitiateRedirect(context.Background(), initReq())
	require.Error(t, err)
}

func TestClient_Poll(t *testing.T) {
	stub := &stubHTTPClient{
		status: http.StatusOK,
		body:   "reference=conf-2026-1&status=Awaiting+Delivery&amount=25.50",
	}
	c := newTestClient(stub)

	rec := &domain.PaymentRecord{
		Reference:  "conf-2026-1",
		PollHandle: "https://gateway.example.com/poll/abc",
	}
	st, err := c.Poll(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusWaitingDelivery, st.Status)
	assert.Equal(t, "conf-2026-1", st.Raw["reference"])
	assert.Equal(t, "https://gateway.example.com/poll/abc", stub.lastReq.URL.String())
}

func TestClient_PollUnknownVocabularyIsPending(t *testing.T) {
	stub := &stubHTTPClient{status: http.StatusOK, body: "status=Sent"}
	c := newTestClient(stub)

	st, err := c.Poll(context.Background(), &domain.PaymentRecord{PollHandle: "https://g/poll"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, st.Status)
}

func TestClient_PollErrors(t *testing.T) {
	c := newTestClient(&stubHTTPClient{status: http.StatusOK})
	_, err := c.Poll(context.Background(), &domain.PaymentRecord{Reference: "r"})
	require.Error(t, err, "no poll URL")

	c = newTestClient(&stubHTTPClient{err: errors.New("timeout")})
	_, err = c.Poll(context.Background(), &domain.PaymentRecord{PollHandle: "https://g/poll"})
	require.Error(t, err)

	c = newTestClient(&stubHTTPClient{status: http.StatusBadGateway, body: ""})
	_, err = c.Poll(context.Background(), &domain.PaymentRecord{PollHandle: "https://g/poll"})
	require.Error(t, err)
}
