// Package router decodes raw streaming frames into typed events.
//
// Decoding is two-phase: a text frame is first parsed as an envelope
// ({"event": tag, "payload": string}) and then dispatched on the tag. The
// payload stays an opaque string until the tag is known, so a malformed
// entity never prevents classifying which kind of event failed.
//
// Ping and pong control frames decode to Heartbeat without inspecting data.
package router
