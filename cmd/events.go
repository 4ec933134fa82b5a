/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/petalmail/apiserver/config"
	"github.com/petalmail/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with application events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print events from the configured events channel until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, err := mq.Open(ctx, cfg.Events, logger)
		if err != nil {
			return fmt.Errorf("open events backend: %w", err)
		}
		defer func() { _ = backend.Close() }()

		err = tailEvents(ctx, backend, cfg.Events.Channel, cmd.OutOrStdout())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func tailEvents(ctx context.Context, backend mq.Backend, channel string, out io.Writer) error {
	return backend.Subscribe(ctx, channel, func(ctx context.Context, msg mq.Message) error {
		_, err := fmt.Fprintf(out, "%s %s\n", msg.Attributes["event"], msg.Data)
		return err
	})
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
