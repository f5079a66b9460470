package httpserver

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voiceshop/internal/domain"
	productrepo "voiceshop/internal/repository/product"
	"voiceshop/internal/service/calls"
	"voiceshop/internal/service/checkout"
	"voiceshop/internal/telephony"

	"github.com/gin-gonic/gin"
)

type stubTelephony struct {
	resp  *telephony.CallResponse
	err   error
	calls int
}

func (s *stubTelephony) CreateCall(_ context.Context, _ telephony.CallRequest) (*telephony.CallResponse, error) {
	s.calls++
	return s.resp, s.err
}

type stubAgent struct {
	signedURL string
	err       error
}

func (s *stubAgent) SignedConversationURL(_ context.Context, _ string) (string, error) {
	return s.signedURL, s.err
}

func (s *stubAgent) StreamURL() string {
	return "wss://agent.example/v1/convai/stream"
}

type stubProducts struct {
	products []domain.Product
	err      error
}

func (s *stubProducts) ListActive(_ context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubProducts) GetByID(_ context.Context, _ string) (*domain.Product, error) {
	return nil, domain.ErrNotFound
}

var _ productrepo.Repository = (*stubProducts)(nil)

func callsConfig() calls.Config {
	return calls.Config{
		AccountSID:    "AC123",
		AuthToken:     "token",
		FromNumber:    "+15550001111",
		PublicBaseURL: "https://shop.example",
		AgentAPIKey:   "key",
		AgentID:       "agent-1",
	}
}

func newTestRouter(t *testing.T, tel *stubTelephony, agent *stubAgent, cfg calls.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard, "", 0)
	deps := Deps{
		Calls:    calls.New(cfg, tel, agent, logger),
		Checkout: checkout.New(nil, nil, nil, "", logger),
		Products: &stubProducts{},
	}
	return buildRouter(logger, nil, deps)
}

func TestTriggerCallInvalidNumber(t *testing.T) {
	tel := &stubTelephony{}
	router := newTestRouter(t, tel, &stubAgent{}, callsConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/trigger-call", strings.NewReader(`{"toPhoneNumber":"12345"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body)
	}
	if tel.calls != 0 {
		t.Fatalf("expected no upstream call, got %d", tel.calls)
	}
}

func TestTriggerCallMissingNumber(t *testing.T) {
	router := newTestRouter(t, &stubTelephony{}, &stubAgent{}, callsConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/trigger-call", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Missing toPhoneNumber" {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestTriggerCallMissingConfig(t *testing.T) {
	cfg := callsConfig()
	cfg.AuthToken = ""
	tel := &stubTelephony{}
	router := newTestRouter(t, tel, &stubAgent{}, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/trigger-call", strings.NewReader(`{"toPhoneNumber":"+15551234567"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if tel.calls != 0 {
		t.Fatalf("expected no upstream call, got %d", tel.calls)
	}
	if !strings.Contains(rec.Body.String(), "Missing required environment variables") {
		t.Fatalf("unexpected body %s", rec.Body)
	}
}

func TestTriggerCallForwardsUpstreamJSON(t *testing.T) {
	tel := &stubTelephony{resp: &telephony.CallResponse{
		StatusCode: 201,
		Body:       []byte(`{"sid":"CA123","status":"queued"}`),
		IsJSON:     true,
	}}
	router := newTestRouter(t, tel, &stubAgent{}, callsConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/trigger-call", strings.NewReader(`{"toPhoneNumber":"+15551234567"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for upstream 2xx, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"sid":"CA123"`) {
		t.Fatalf("upstream body not forwarded: %s", rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestTriggerCallForwardsUpstreamError(t *testing.T) {
	tel := &stubTelephony{resp: &telephony.CallResponse{
		StatusCode: 401,
		Body:       []byte(`{"code":20003,"message":"Authenticate"}`),
		IsJSON:     true,
	}}
	router := newTestRouter(t, tel, &stubAgent{}, callsConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/trigger-call", strings.NewReader(`{"toPhoneNumber":"+15551234567"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected upstream status forwarded, got %d", rec.Code)
	}
}

func TestTriggerCallUpstreamCrash(t *testing.T) {
	tel := &stubTelephony{err: errors.New("connection refused")}
	router := newTestRouter(t, tel, &stubAgent{}, callsConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/trigger-call", strings.NewReader(`{"toPhoneNumber":"+15551234567"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Function crashed") {
		t.Fatalf("unexpected body %s", rec.Body)
	}
}

func TestTriggerCallHealthBypass(t *testing.T) {
	tel := &stubTelephony{}
	cfg := callsConfig()
	cfg.AgentAPIKey = ""
	router := newTestRouter(t, tel, &stubAgent{}, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/trigger-call", nil)
	req.Header.Set("X-Health-Check", "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if tel.calls != 0 {
		t.Fatalf("health probe must not place a call, got %d", tel.calls)
	}

	var body struct {
		OK         bool            `json:"ok"`
		EnvPresent map[string]bool `json:"envPresent"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.OK || body.EnvPresent["ELEVENLABS_API_KEY"] || !body.EnvPresent["TWILIO_ACCOUNT_SID"] {
		t.Fatalf("unexpected health body %+v", body)
	}
}

func TestTriggerCallWrongMethod(t *testing.T) {
	router := newTestRouter(t, &stubTelephony{}, &stubAgent{}, callsConfig())

	req := httptest.NewRequest(http.MethodDelete, "/api/trigger-call", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestTriggerCallPreflight(t *testing.T) {
	router := newTestRouter(t, &stubTelephony{}, &stubAgent{}, callsConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/trigger-call", nil)
	req.Header.Set("Origin", "https://front.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 preflight, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty preflight body, got %s", rec.Body)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected permissive origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCallMarkupAlwaysXML(t *testing.T) {
	cases := []struct {
		name       string
		cfg        calls.Config
		agent      *stubAgent
		wantStatus int
	}{
		{"signed", callsConfig(), &stubAgent{signedURL: "wss://agent.example/conv?sig=1"}, http.StatusOK},
		{"fallback", callsConfig(), &stubAgent{err: errors.New("down")}, http.StatusOK},
		{"no credentials", func() calls.Config { c := callsConfig(); c.AgentID = ""; return c }(), &stubAgent{}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		router := newTestRouter(t, &stubTelephony{}, tc.agent, tc.cfg)
		for _, method := range []string{http.MethodGet, http.MethodPost} {
			req := httptest.NewRequest(method, "/api/call-markup", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("%s %s: expected %d, got %d", tc.name, method, tc.wantStatus, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
				t.Fatalf("%s: unexpected content type %q", tc.name, ct)
			}
			var doc struct {
				XMLName xml.Name `xml:"Response"`
			}
			if err := xml.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
				t.Fatalf("%s: body not parseable XML: %v\n%s", tc.name, err, rec.Body)
			}
		}
	}
}

func TestStatusCallbackAcknowledges(t *testing.T) {
	router := newTestRouter(t, &stubTelephony{}, &stubAgent{}, callsConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/status-callback", strings.NewReader("CallSid=CA1&CallStatus=ringing"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected body %s", rec.Body)
	}
}

func TestStatusCallbackReachable(t *testing.T) {
	router := newTestRouter(t, &stubTelephony{}, &stubAgent{}, callsConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/status-callback", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
