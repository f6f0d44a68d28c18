// Package api provides a minimal Mastodon REST client used before a stream
// is opened.
//
// Endpoints:
//   - GET /api/v1/instance: streaming URL discovery (urls.streaming_api)
//   - GET /api/v1/accounts/verify_credentials: access token check
//   - GET /api/v1/streaming/health: streaming server liveness
package api
