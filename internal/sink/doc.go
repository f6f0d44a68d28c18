// Package sink implements event consumers for streaming sessions.
//
// Sinks:
//   - Log: one slog record per event
//   - Console: JSON lines on an io.Writer
//   - Postgres: append-only event table (PostgreSQL)
//   - Redis: pub/sub channel
//
// Every sink runs synchronously on the session's read goroutine. A slow
// sink delays reading the next frame; nothing is buffered in between.
// Heartbeats are never persisted or published.
package sink
