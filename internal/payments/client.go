// Package payments is a thin client for the hosted-checkout payment provider
// (Stripe-compatible v1 REST API, form-encoded requests).
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.stripe.com"

// Client talks to the payment provider's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	logger     *log.Logger
}

// NewClient builds a Client. baseURL may be empty to use the production API.
func NewClient(baseURL, secretKey string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		logger:     logger,
	}
}

// LineItem is one hosted-checkout line. UnitAmount is in minor currency
// units (cents).
type LineItem struct {
	Name       string
	Image      string
	Currency   string
	UnitAmount int64
	Quantity   int64
}

// SessionParams describes a hosted checkout session to create.
type SessionParams struct {
	// CustomerID reuses an existing provider customer. When empty,
	// CustomerEmail is sent and the provider creates a customer.
	CustomerID       string
	CustomerEmail    string
	LineItems        []LineItem
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
	Metadata         map[string]string
}

// Session is the subset of the provider's checkout session this service
// reads back.
type Session struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	PaymentStatus   string `json:"payment_status"`
	PaymentIntentID string `json:"payment_intent"`
	CustomerID      string `json:"customer"`
}

type apiError struct {
	Err struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FindCustomerByEmail returns the id of the first provider customer matching
// the email, or "" when none exists.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/customers?email=%s&limit=1", c.baseURL, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("list customers: %w", err)
	}
	if len(out.Data) == 0 {
		return "", nil
	}
	return out.Data[0].ID, nil
}

// CreateCheckoutSession creates a hosted checkout session in payment mode.
func (c *Client) CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)

	if p.CustomerID != "" {
		form.Set("customer", p.CustomerID)
	} else {
		form.Set("customer_email", p.CustomerEmail)
		form.Set("customer_creation", "always")
	}

	for i, item := range p.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", strings.ToLower(item.Currency))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.Image != "" {
			form.Set(prefix+"[price_data][product_data][images][0]", item.Image)
		}
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.FormatInt(item.Quantity, 10))
	}

	for i, country := range p.AllowedCountries {
		form.Set(fmt.Sprintf("shipping_address_collection[allowed_countries][%d]", i), country)
	}
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var s Session
	if err := c.do(req, &s); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &s, nil
}

// RetrieveCheckoutSession fetches the current state of a checkout session.
func (c *Client) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*Session, error) {
	endpoint := c.baseURL + "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var s Session
	if err := c.do(req, &s); err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return &s, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Err.Message != "" {
			return fmt.Errorf("provider status %d: %s", resp.StatusCode, apiErr.Err.Message)
		}
		c.logger.Printf("payments: %s %s status=%d", req.Method, req.URL.Path, resp.StatusCode)
		return fmt.Errorf("provider status %d", resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}
