package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ticketing-payments/config"
	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	initiatePath = "/interface/initiatetransaction"
	remotePath   = "/interface/remotetransaction"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.Gateway against the live payment processor. The
// wire format is form-encoded both ways; every outbound payload carries the
// integration id and a hash over the sorted fields plus the integration key.
type Client struct {
	cfg        config.GatewayConfig
	verifier   ports.SignatureVerifier
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a production gateway client.
func NewClient(cfg config.GatewayConfig, verifier ports.SignatureVerifier, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:        cfg,
		verifier:   verifier,
		httpClient: httpClient,
		log:        log,
	}
}

// InitiateRedirect opens a browser-redirect payment with the gateway.
func (c *Client) InitiateRedirect(ctx context.Context, req ports.GatewayInitiateRequest) (*ports.GatewayHandles, error) {
	fields := c.baseFields(req)

	resp, err := c.post(ctx, c.cfg.BaseURL+initiatePath, fields)
	if err != nil {
		return nil, err
	}
	return handlesFromResponse(resp)
}

// InitiateMobile opens a mobile-money push payment. phone and method travel
// in the same signed payload as the redirect flow.
func (c *Client) InitiateMobile(ctx context.Context, req ports.GatewayInitiateRequest, phone, method string) (*ports.GatewayHandles, error) {
	fields := c.baseFields(req)
	fields["phone"] = phone
	fields["method"] = method

	resp, err := c.post(ctx, c.cfg.BaseURL+remotePath, fields)
	if err != nil {
		return nil, err
	}
	return handlesFromResponse(resp)
}

// Poll fetches the payment's current state from its poll URL. The response
// is form-encoded; an unrecognised status vocabulary maps to pending.
func (c *Client) Poll(ctx context.Context, rec *domain.PaymentRecord) (*ports.GatewayStatus, error) {
	if rec.PollHandle == "" {
		return nil, fmt.Errorf("payment %s has no poll URL", rec.Reference)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, rec.PollHandle, nil)
	if err != nil {
		return nil, fmt.Errorf("building poll request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("polling gateway: %w", err)
	}
	defer resp.Body.Close()

	fields, err := decodeFormBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway poll returned status %d", resp.StatusCode)
	}

	return &ports.GatewayStatus{
		Status: domain.ParseGatewayStatus(fields["status"]),
		Raw:    fields,
	}, nil
}

// baseFields assembles the common signed payload for both initiate flows.
func (c *Client) baseFields(req ports.GatewayInitiateRequest) map[string]string {
	return map[string]string{
		"id":             c.cfg.IntegrationID,
		"reference":      req.Reference,
		"amount":         req.Amount.StringFixed(2),
		"additionalinfo": req.Description,
		"authemail":      req.CustomerEmail,
		"returnurl":      c.cfg.ReturnURL,
		"resulturl":      c.cfg.ResultURL,
		"status":         "Message",
	}
}

// post signs fields, sends them form-encoded and decodes the form-encoded
// reply. Transport trouble comes back as a plain error so callers can
// degrade it; a readable gateway refusal becomes a GW_001.
func (c *Client) post(ctx context.Context, endpoint string, fields map[string]string) (map[string]string, error) {
	fields["hash"] = c.verifier.Sign(fields, c.cfg.IntegrationKey)

	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	decoded, err := decodeFormBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return decoded, nil
}

// handlesFromResponse interprets an initiate reply. status=Ok carries the
// poll URL and either a browser URL or payment instructions; status=Error
// carries a human-readable refusal.
func handlesFromResponse(fields map[string]string) (*ports.GatewayHandles, error) {
	status := strings.ToLower(fields["status"])
	if status == "error" {
		reason := fields["error"]
		if reason == "" {
			reason = "no reason given"
		}
		return nil, apperror.ErrGatewayRejected(reason)
	}
	if status != "ok" {
		return nil, fmt.Errorf("unexpected gateway response status %q", fields["status"])
	}

	pollURL := fields["pollurl"]
	if pollURL == "" {
		return nil, fmt.Errorf("gateway response carries no poll URL")
	}

	return &ports.GatewayHandles{
		PollHandle:   pollURL,
		RedirectURL:  fields["browserurl"],
		Instructions: fields["instructions"],
	}, nil
}

// decodeFormBody parses a form-encoded response body into a field map.
func decodeFormBody(body io.Reader) (map[string]string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil {
		return nil, err
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(values))
	for k := range values {
		fields[k] = values.Get(k)
	}
	return fields, nil
}
