// Package connection implements the streaming connection lifecycle.
//
// A Session performs one physical connection attempt:
//   - Dials the WebSocket endpoint (handshake failures are retryable)
//   - Reads frames with a per-read timeout, replying to pings with pongs
//   - Decodes each frame and hands the event to the Sink, in arrival order
//   - Ends with an Outcome: a clean stop (close code 1000) or a retryable failure
//
// A Supervisor owns the retry policy and runs Sessions back to back until a
// clean stop. Only one Session is active per Supervisor at any time.
package connection
