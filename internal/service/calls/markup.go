package calls

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"
)

// Markup documents mirror the telephony provider's TwiML vocabulary, enough
// for <Say> and media streams. encoding/xml handles escaping of reserved
// characters in attribute values and character data.
type markupResponse struct {
	XMLName xml.Name       `xml:"Response"`
	Say     *markupSay     `xml:"Say,omitempty"`
	Connect *markupConnect `xml:"Connect,omitempty"`
}

type markupSay struct {
	Text string `xml:",chardata"`
}

type markupConnect struct {
	Stream markupStream `xml:"Stream"`
}

type markupStream struct {
	URL        string            `xml:"url,attr"`
	Parameters []markupParameter `xml:"Parameter,omitempty"`
}

type markupParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// genericErrorMarkup is the last-resort body when even marshalling fails.
// The provider requires a parseable XML document on every response.
const genericErrorMarkup = xml.Header + `<Response><Say>Application error. Goodbye.</Say></Response>`

// GenericErrorMarkup is the document handlers fall back to when the markup
// flow fails unexpectedly.
func GenericErrorMarkup() []byte {
	return []byte(genericErrorMarkup)
}

// CallMarkup builds the XML document returned to the telephony provider once
// a call is answered. It never fails visibly: every path yields a parseable
// document with an appropriate status code.
func (s *Service) CallMarkup(ctx context.Context) (body []byte, status int) {
	if s.cfg.AgentID == "" || s.cfg.AgentAPIKey == "" {
		return renderMarkup(markupResponse{Say: &markupSay{Text: "Server missing agent credentials."}}), http.StatusInternalServerError
	}

	stream := markupStream{
		URL:        s.agent.StreamURL(),
		Parameters: []markupParameter{{Name: "agent_id", Value: s.cfg.AgentID}},
	}

	signedURL, err := s.agent.SignedConversationURL(ctx, s.cfg.AgentID)
	if err != nil {
		// Degraded mode: the per-agent stream endpoint still works without
		// session-level authorization.
		s.logger.Printf("calls: signed url unavailable, falling back: %v", err)
	} else {
		stream.Parameters = append(stream.Parameters, markupParameter{Name: "signed_url", Value: signedURL})
	}

	return renderMarkup(markupResponse{Connect: &markupConnect{Stream: stream}}), http.StatusOK
}

func renderMarkup(doc markupResponse) []byte {
	out, err := xml.Marshal(doc)
	if err != nil {
		return []byte(genericErrorMarkup)
	}
	return append([]byte(xml.Header), out...)
}

// NormalizeStatusPayload flattens a status-callback body into string pairs.
// The provider posts form-encoded data by default, but JSON is accepted too;
// anything unparseable is kept under "raw".
func NormalizeStatusPayload(contentType string, body []byte) map[string]string {
	if len(body) == 0 {
		return map[string]string{}
	}

	if strings.Contains(contentType, "application/json") {
		var decoded map[string]interface{}
		if err := json.Unmarshal(body, &decoded); err == nil {
			out := make(map[string]string, len(decoded))
			for k, v := range decoded {
				switch val := v.(type) {
				case string:
					out[k] = val
				default:
					raw, _ := json.Marshal(val)
					out[k] = string(raw)
				}
			}
			return out
		}
		return map[string]string{"raw": string(body)}
	}

	values, err := url.ParseQuery(string(body))
	if err != nil || len(values) == 0 {
		return map[string]string{"raw": string(body)}
	}
	out := make(map[string]string, len(values))
	for k := range values {
		out[k] = values.Get(k)
	}
	return out
}
