// fedistream subscribes to Mastodon/Pleroma streaming endpoints and
// forwards decoded events to logs, PostgreSQL and Redis.
//
// Usage:
//
//	fedistream listen --config configs/fedistream.yaml
//	fedistream tail --url wss://example.social/api/v1/streaming --stream public
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fedistream",
		Short: "Stream events from Mastodon-compatible servers",
		Long: `fedistream holds long-lived WebSocket subscriptions to the streaming API
of Pleroma and Mastodon servers, decodes status updates, notifications,
conversations and deletions, and hands them to configured sinks.

Dropped connections are re-established automatically. A stream stops
only when the server closes it normally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		listenCmd(),
		tailCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. format is "text" or "json".
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
