package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestFindCustomerByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/customers" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("email") != "a@b.test" || r.URL.Query().Get("limit") != "1" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("unexpected auth %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"data":[{"id":"cus_42"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", nil)
	id, err := client.FindCustomerByEmail(context.Background(), "a@b.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "cus_42" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestFindCustomerByEmailNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", nil)
	id, err := client.FindCustomerByEmail(context.Background(), "missing@b.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}

func TestCreateCheckoutSessionForm(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		r.ParseForm()
		gotForm = r.PostForm
		w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", nil)
	session, err := client.CreateCheckoutSession(context.Background(), SessionParams{
		CustomerEmail: "a@b.test",
		LineItems: []LineItem{
			{Name: "Widget", Image: "https://img.example/w.png", Currency: "USD", UnitAmount: 1000, Quantity: 2},
			{Name: "Tax", Currency: "USD", UnitAmount: 200, Quantity: 1},
		},
		SuccessURL:       "https://front.example/payment-success?session_id={CHECKOUT_SESSION_ID}&order_id=ord-1",
		CancelURL:        "https://front.example/cart?cancelled=true",
		AllowedCountries: []string{"US", "CA"},
		Metadata:         map[string]string{"order_id": "ord-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "cs_1" || session.URL != "https://pay.example/cs_1" {
		t.Fatalf("unexpected session %+v", session)
	}

	checks := map[string]string{
		"mode":              "payment",
		"customer_email":    "a@b.test",
		"customer_creation": "always",
		"line_items[0][price_data][currency]":              "usd",
		"line_items[0][price_data][product_data][name]":    "Widget",
		"line_items[0][price_data][product_data][images][0]": "https://img.example/w.png",
		"line_items[0][price_data][unit_amount]":           "1000",
		"line_items[0][quantity]":                          "2",
		"line_items[1][price_data][product_data][name]":    "Tax",
		"shipping_address_collection[allowed_countries][0]": "US",
		"shipping_address_collection[allowed_countries][1]": "CA",
		"metadata[order_id]": "ord-1",
	}
	for key, want := range checks {
		if got := gotForm.Get(key); got != want {
			t.Errorf("form[%q] = %q, want %q", key, got, want)
		}
	}
	if _, ok := gotForm["line_items[1][price_data][product_data][images][0]"]; ok {
		t.Errorf("image sent for imageless line: %v", gotForm)
	}
}

func TestCreateCheckoutSessionReusesCustomer(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		w.Write([]byte(`{"id":"cs_1","url":"u"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", nil)
	_, err := client.CreateCheckoutSession(context.Background(), SessionParams{
		CustomerID:    "cus_42",
		CustomerEmail: "a@b.test",
		SuccessURL:    "s",
		CancelURL:     "c",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotForm.Get("customer") != "cus_42" {
		t.Fatalf("expected customer reuse, got %v", gotForm)
	}
	if _, ok := gotForm["customer_email"]; ok {
		t.Fatalf("customer_email must be omitted when reusing, got %v", gotForm)
	}
}

func TestRetrieveCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions/cs_1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"id":"cs_1","payment_status":"paid","payment_intent":"pi_1","customer":"cus_42"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", nil)
	session, err := client.RetrieveCheckoutSession(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.PaymentStatus != "paid" || session.PaymentIntentID != "pi_1" || session.CustomerID != "cus_42" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", nil)
	_, err := client.RetrieveCheckoutSession(context.Background(), "cs_1")
	if err == nil || !strings.Contains(err.Error(), "Your card was declined.") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}
