// Package voiceagent is a thin client for the conversational voice-agent
// provider (ElevenLabs-compatible). It issues short-lived signed session
// URLs for an agent and exposes the media-stream endpoint the telephony
// provider connects to.
package voiceagent

import (
	"bytes"
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

const defaultAPIBase = "https://api.elevenlabs.io"

// Client talks to the voice-agent REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *log.Logger
}

// NewClient builds a Client. baseURL may be empty to use the production API.
func NewClient(baseURL, apiKey string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

// SignedConversationURL creates a conversation for the agent and returns the
// signed websocket URL authorizing a single session.
func (c *Client) SignedConversationURL(ctx context.Context, agentID string) (string, error) {
	payload, err := json.Marshal(map[string]string{"agent_id": agentID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/convai/conversation", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Printf("voiceagent: conversation status=%d body=%s", resp.StatusCode, body)
		return "", fmt.Errorf("create conversation: status %d", resp.StatusCode)
	}

	var out struct {
		ConversationSignature string `json:"conversation_signature"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode conversation: %w", err)
	}
	if out.ConversationSignature == "" {
		return "", fmt.Errorf("create conversation: empty signature")
	}

	return fmt.Sprintf("%s/v1/convai/conversation?agent_id=%s&conversation_signature=%s",
		c.wsBase(), url.QueryEscape(agentID), url.QueryEscape(out.ConversationSignature)), nil
}

// StreamURL is the websocket endpoint the telephony provider opens a media
// stream to. Per-agent, not per-session; used directly in degraded mode.
func (c *Client) StreamURL() string {
	return c.wsBase() + "/v1/convai/stream"
}

func (c *Client) wsBase() string {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://")
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://")
	default:
		return c.baseURL
	}
}
