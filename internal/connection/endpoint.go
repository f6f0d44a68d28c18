package connection

import "strings"

const redacted = "REDACTED"

// Endpoint describes what to connect to. It is treated as immutable once
// handed to a Supervisor.
type Endpoint struct {
	BaseURL     string   // e.g. wss://example.social/api/v1/streaming
	Stream      string   // e.g. user, public, public:local, hashtag
	Params      []string // Raw "key=value" strings appended verbatim
	AccessToken string   // Empty when unauthenticated
}

// URL builds the full streaming URL: stream first, then the access token if
// present, then the extra params in order.
func (e Endpoint) URL() string {
	return e.build(e.AccessToken)
}

// RedactedURL is URL with the access token masked, for logging.
func (e Endpoint) RedactedURL() string {
	if e.AccessToken == "" {
		return e.build("")
	}
	return e.build(redacted)
}

func (e Endpoint) build(token string) string {
	params := make([]string, 0, len(e.Params)+2)
	params = append(params, "stream="+e.Stream)
	if token != "" {
		params = append(params, "access_token="+token)
	}
	params = append(params, e.Params...)
	return e.BaseURL + "?" + strings.Join(params, "&")
}

// clone returns a copy that shares no memory with e.
func (e Endpoint) clone() Endpoint {
	if e.Params != nil {
		e.Params = append([]string(nil), e.Params...)
	}
	return e
}
