// Package telephony is a thin client for the telephony provider's REST API
// (Twilio-compatible). It deliberately forwards the upstream status code and
// body untouched so callers can pass them through to the browser.
package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.twilio.com"

// Client places outbound calls through the provider's account-scoped API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	logger     *log.Logger
}

// NewClient builds a Client. baseURL may be empty to use the production API.
func NewClient(baseURL, accountSID, authToken string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		logger:     logger,
	}
}

// CallRequest describes one outbound call. MarkupURL must point at an
// endpoint returning call markup; the provider fetches it once the call is
// answered.
type CallRequest struct {
	To                string
	From              string
	MarkupURL         string
	StatusCallbackURL string
	StatusEvents      []string
}

// CallResponse is the upstream reply, preserved verbatim.
type CallResponse struct {
	StatusCode int
	Body       []byte
	IsJSON     bool
}

// OK reports whether the upstream returned a 2xx status.
func (r *CallResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CreateCall issues the form-encoded call-creation request and returns the
// provider's response as-is. A non-2xx upstream status is not an error.
func (c *Client) CreateCall(ctx context.Context, in CallRequest) (*CallResponse, error) {
	form := url.Values{}
	form.Set("To", in.To)
	form.Set("From", in.From)
	form.Set("Url", in.MarkupURL)
	if in.StatusCallbackURL != "" {
		form.Set("StatusCallback", in.StatusCallbackURL)
		if len(in.StatusEvents) > 0 {
			form.Set("StatusCallbackEvent", strings.Join(in.StatusEvents, " "))
		}
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read call response: %w", err)
	}

	if !(resp.StatusCode >= 200 && resp.StatusCode < 300) {
		c.logger.Printf("telephony: create call to=%s status=%d", in.To, resp.StatusCode)
	}
	return &CallResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
		IsJSON:     json.Valid(body),
	}, nil
}
