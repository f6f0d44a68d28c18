package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rickgao/fedistream/internal/model"
)

// StreamingPath is appended to the streaming_api base URL.
const StreamingPath = "/api/v1/streaming"

// ErrNoStreamingURL means the instance did not advertise a streaming URL.
var ErrNoStreamingURL = errors.New("instance has no streaming_api url")

// Instance is the subset of GET /api/v1/instance used for discovery.
type Instance struct {
	URI     string       `json:"uri"`
	Title   string       `json:"title"`
	Version string       `json:"version"`
	URLs    InstanceURLs `json:"urls"`
}

// InstanceURLs lists the instance's service URLs.
type InstanceURLs struct {
	StreamingAPI string `json:"streaming_api"`
}

// GetInstance returns the instance description.
func (c *Client) GetInstance(ctx context.Context) (*Instance, error) {
	var inst Instance
	if err := c.get(ctx, "/api/v1/instance", nil, &inst); err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return &inst, nil
}

// StreamingURL discovers the streaming endpoint base URL, e.g.
// wss://streaming.example.social/api/v1/streaming.
func (c *Client) StreamingURL(ctx context.Context) (string, error) {
	inst, err := c.GetInstance(ctx)
	if err != nil {
		return "", err
	}
	if inst.URLs.StreamingAPI == "" {
		return "", ErrNoStreamingURL
	}

	c.logger.Debug("discovered streaming url",
		"instance", inst.URI,
		"version", inst.Version,
		"streaming_api", inst.URLs.StreamingAPI,
	)
	return strings.TrimRight(inst.URLs.StreamingAPI, "/") + StreamingPath, nil
}

// VerifyCredentials returns the account the access token belongs to.
func (c *Client) VerifyCredentials(ctx context.Context) (*model.Account, error) {
	var acct model.Account
	if err := c.get(ctx, "/api/v1/accounts/verify_credentials", nil, &acct); err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	return &acct, nil
}

// StreamingHealth checks the streaming server. Mastodon answers "OK";
// servers without the endpoint return 404, which is reported as an error.
func (c *Client) StreamingHealth(ctx context.Context) error {
	body, err := c.doRequest(ctx, http.MethodGet, StreamingPath+"/health", nil)
	if err != nil {
		return fmt.Errorf("streaming health: %w", err)
	}
	if strings.TrimSpace(string(body)) != "OK" {
		return fmt.Errorf("streaming health: unexpected response %q", body)
	}
	return nil
}
