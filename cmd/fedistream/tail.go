package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rickgao/fedistream/internal/config"
	"github.com/rickgao/fedistream/internal/connection"
	"github.com/rickgao/fedistream/internal/sink"
)

type tailOptions struct {
	url        string
	instance   string
	stream     string
	token      string
	params     []string
	indent     bool
	heartbeats bool
	logLevel   string
}

func tailCmd() *cobra.Command {
	opts := tailOptions{}

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print events from a single stream",
		Long: `Tail connects to one stream and prints each decoded event as a JSON line
on stdout. Logs go to stderr.

The access token defaults to $FEDISTREAM_TOKEN.`,
		Example: `  fedistream tail --url wss://example.social/api/v1/streaming --stream public:local
  fedistream tail --instance https://example.social --stream hashtag --param tag=golang`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "streaming endpoint base URL (ws:// or wss://)")
	cmd.Flags().StringVar(&opts.instance, "instance", "", "instance URL (https://) to discover the streaming endpoint from")
	cmd.Flags().StringVar(&opts.stream, "stream", "user", "stream name")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("FEDISTREAM_TOKEN"), "access token")
	cmd.Flags().StringArrayVar(&opts.params, "param", nil, "extra key=value query parameter (repeatable)")
	cmd.Flags().BoolVar(&opts.indent, "indent", false, "pretty-print events")
	cmd.Flags().BoolVar(&opts.heartbeats, "heartbeats", false, "print heartbeats")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	cmd.MarkFlagsOneRequired("url", "instance")
	cmd.MarkFlagsMutuallyExclusive("url", "instance")

	return cmd
}

func runTail(cmd *cobra.Command, opts tailOptions) error {
	level, err := config.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), level, "text")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseURL, err := resolveServer(ctx, config.ServerConfig{
		BaseURL:     opts.url,
		InstanceURL: opts.instance,
		AccessToken: opts.token,
	}, logger)
	if err != nil {
		return err
	}

	var consoleOpts []sink.ConsoleOption
	if opts.indent {
		consoleOpts = append(consoleOpts, sink.WithIndent())
	}
	if opts.heartbeats {
		consoleOpts = append(consoleOpts, sink.WithHeartbeats())
	}

	endpoint := connection.Endpoint{
		BaseURL:     baseURL,
		Stream:      opts.stream,
		Params:      opts.params,
		AccessToken: opts.token,
	}
	sup := connection.NewSupervisor(endpoint, connection.WithLogger(logger))

	logger.Info("tailing stream", "url", endpoint.RedactedURL())

	err = sup.Listen(ctx, sink.NewConsole(cmd.OutOrStdout(), opts.stream, consoleOpts...))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tail %s: %w", opts.stream, err)
	}
	return nil
}
