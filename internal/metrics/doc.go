// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - WebSocket session outcomes, reconnects and active sessions per stream
//   - Frame rates by kind and event rates by type
//   - Decode failures by reason
//   - Best-effort control frame send failures
//   - Sink write errors
package metrics
