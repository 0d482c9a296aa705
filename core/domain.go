package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeAPIKey   AuthMode = "api_key"
	AuthModeWebAuthn AuthMode = "webauthn"
	AuthModePasskey  AuthMode = "passkey"
)

// ParseAuthMode normalises the accepted spellings of an auth mode. Unknown
// values are returned as-is so the dispatcher can report them.
func ParseAuthMode(value string) AuthMode {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "api_key", "apikey", "":
		return AuthModeAPIKey
	case "webauthn", "web_authn":
		return AuthModeWebAuthn
	case "passkey", "pass_key":
		return AuthModePasskey
	default:
		return AuthMode(normalized)
	}
}

func (m AuthMode) String() string { return string(m) }

// ClientSigned reports whether the mode expects a caller-supplied signature.
func (m AuthMode) ClientSigned() bool {
	return m == AuthModeWebAuthn || m == AuthModePasskey
}

// ActivityRequest is the outbound request body. TimestampMs is a decimal
// string on the wire.
type ActivityRequest struct {
	Type           string         `json:"type"`
	TimestampMs    string         `json:"timestampMs"`
	OrganizationID string         `json:"organizationId"`
	Parameters     map[string]any `json:"parameters"`
}

func NewActivityRequest(activityType ActivityType, organizationID string, parameters map[string]any, now time.Time) ActivityRequest {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return ActivityRequest{
		Type:           string(activityType),
		TimestampMs:    strconv.FormatInt(now.UnixMilli(), 10),
		OrganizationID: organizationID,
		Parameters:     parameters,
	}
}

func (r ActivityRequest) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

type DispatchRequest struct {
	ActivityType    ActivityType
	Parameters      map[string]any
	OrganizationID  string
	AuthMode        AuthMode
	ClientSignature string
}

// OutboundRequest is the fully built request handed to the transport. Body
// holds the exact bytes that were stamped.
type OutboundRequest struct {
	Method   string
	URL      string
	Endpoint string
	Headers  map[string]string
	Body     []byte
	Activity ActivityRequest
	Signed   bool
}

// Payload is the transport-specific request produced by BuildPayload.
type Payload struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// TransportResult mirrors the remote outcome: OK with Data, or a status code
// with the raw error body.
type TransportResult struct {
	OK         bool
	Data       json.RawMessage
	StatusCode int
	ErrorBody  string
}

// ActivityID extracts activity.id from a successful response, if any.
func (r TransportResult) ActivityID() string {
	if !r.OK || len(r.Data) == 0 {
		return ""
	}
	var envelope struct {
		Activity struct {
			ID string `json:"id"`
		} `json:"activity"`
	}
	if err := json.Unmarshal(r.Data, &envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.Activity.ID)
}
