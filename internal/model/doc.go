// Package model defines the entity types carried by streaming events.
//
// Types mirror the JSON entities a Mastodon-compatible server (Pleroma, Akkoma,
// Mastodon) embeds in streaming payloads.
//
// Conventions:
//   - IDs: string, opaque, never parsed as numbers
//   - Timestamps: time.Time decoded from RFC 3339
//   - Optional references: pointers (nil when absent)
package model
