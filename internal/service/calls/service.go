// Package calls orchestrates the outbound-call flow: trigger requests from
// the browser, call-markup webhooks from the telephony provider, and
// status-callback webhooks. The previously separate handler variants are
// collapsed into one implementation parameterized by Config.
package calls

import (
	"context"
	"errors"
	"io"
	"log"
	"regexp"
	"strings"

	"voiceshop/internal/telephony"
)

// phonePattern is the accepted E.164 shape: + followed by 8-15 digits.
var phonePattern = regexp.MustCompile(`^\+\d{8,15}$`)

// ValidPhoneNumber reports whether s is an acceptable destination number.
func ValidPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

var (
	// ErrInvalidPhone means the destination number failed validation.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrMissingConfig means required deployment configuration is absent.
	ErrMissingConfig = errors.New("missing required environment variables")
)

// Config enumerates the deployment settings the call flow depends on.
type Config struct {
	AccountSID    string
	AuthToken     string
	FromNumber    string
	PublicBaseURL string
	AgentAPIKey   string
	AgentID       string

	// WithStatusCallback subscribes the provider to call progress events
	// delivered to /api/status-callback.
	WithStatusCallback bool
}

type telephonyClient interface {
	CreateCall(ctx context.Context, in telephony.CallRequest) (*telephony.CallResponse, error)
}

type agentClient interface {
	SignedConversationURL(ctx context.Context, agentID string) (string, error)
	StreamURL() string
}

// Service implements the call-trigger and webhook flows.
type Service struct {
	cfg       Config
	telephony telephonyClient
	agent     agentClient
	logger    *log.Logger
}

// New builds a Service.
func New(cfg Config, tel telephonyClient, agent agentClient, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{cfg: cfg, telephony: tel, agent: agent, logger: logger}
}

// EnvReport lists which required settings are present, for the settings UI's
// deployment health probe.
func (s *Service) EnvReport() map[string]bool {
	return map[string]bool{
		"PUBLIC_BASE_URL":     s.cfg.PublicBaseURL != "",
		"TWILIO_ACCOUNT_SID":  s.cfg.AccountSID != "",
		"TWILIO_AUTH_TOKEN":   s.cfg.AuthToken != "",
		"TWILIO_FROM_NUMBER":  s.cfg.FromNumber != "",
		"ELEVENLABS_API_KEY":  s.cfg.AgentAPIKey != "",
		"ELEVENLABS_AGENT_ID": s.cfg.AgentID != "",
	}
}

// TriggerInput is a call-trigger request. BusinessName and Notes are
// accepted for the browser's call log but not forwarded upstream.
type TriggerInput struct {
	ToPhoneNumber string
	BusinessName  string
	Notes         string
}

// TriggerCall validates the input and configuration, then places one
// outbound call. The provider's response passes through untouched.
func (s *Service) TriggerCall(ctx context.Context, in TriggerInput) (*telephony.CallResponse, error) {
	if !ValidPhoneNumber(in.ToPhoneNumber) {
		return nil, ErrInvalidPhone
	}
	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" || s.cfg.FromNumber == "" || s.cfg.PublicBaseURL == "" {
		return nil, ErrMissingConfig
	}

	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	req := telephony.CallRequest{
		To:        in.ToPhoneNumber,
		From:      s.cfg.FromNumber,
		MarkupURL: base + "/api/call-markup",
	}
	if s.cfg.WithStatusCallback {
		req.StatusCallbackURL = base + "/api/status-callback"
		req.StatusEvents = []string{"initiated", "ringing", "answered", "completed"}
	}

	resp, err := s.telephony.CreateCall(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("calls: triggered to=%s business=%q status=%d", in.ToPhoneNumber, in.BusinessName, resp.StatusCode)
	return resp, nil
}
