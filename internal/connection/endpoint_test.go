package connection

import "testing"

func TestEndpoint_URL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		want     string
	}{
		{
			name:     "stream and token",
			endpoint: Endpoint{BaseURL: "wss://x/api", Stream: "user", AccessToken: "tok"},
			want:     "wss://x/api?stream=user&access_token=tok",
		},
		{
			name:     "stream, token and extra params",
			endpoint: Endpoint{BaseURL: "wss://x/api", Stream: "user", Params: []string{"foo=bar"}, AccessToken: "tok"},
			want:     "wss://x/api?stream=user&access_token=tok&foo=bar",
		},
		{
			name:     "no token",
			endpoint: Endpoint{BaseURL: "wss://x/api", Stream: "public"},
			want:     "wss://x/api?stream=public",
		},
		{
			name:     "params kept verbatim and in order",
			endpoint: Endpoint{BaseURL: "wss://x/api", Stream: "hashtag", Params: []string{"tag=go", "b=2", "a=1"}},
			want:     "wss://x/api?stream=hashtag&tag=go&b=2&a=1",
		},
		{
			name:     "empty params slice",
			endpoint: Endpoint{BaseURL: "wss://x/api", Stream: "user", Params: []string{}, AccessToken: "tok"},
			want:     "wss://x/api?stream=user&access_token=tok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.endpoint.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEndpoint_RedactedURL(t *testing.T) {
	e := Endpoint{BaseURL: "wss://x/api", Stream: "user", Params: []string{"foo=bar"}, AccessToken: "secret"}

	want := "wss://x/api?stream=user&access_token=REDACTED&foo=bar"
	if got := e.RedactedURL(); got != want {
		t.Errorf("RedactedURL() = %q, want %q", got, want)
	}

	anon := Endpoint{BaseURL: "wss://x/api", Stream: "public"}
	if got := anon.RedactedURL(); got != anon.URL() {
		t.Errorf("RedactedURL() = %q, want %q", got, anon.URL())
	}
}

func TestEndpoint_CloneIsIndependent(t *testing.T) {
	params := []string{"foo=bar"}
	s := NewSupervisor(Endpoint{BaseURL: "wss://x/api", Stream: "user", Params: params})

	params[0] = "changed=1"

	if got := s.Endpoint().URL(); got != "wss://x/api?stream=user&foo=bar" {
		t.Errorf("URL() = %q, supervisor endpoint changed after construction", got)
	}
}
