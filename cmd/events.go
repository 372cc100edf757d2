/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quizmind/apiserver/config"
	"github.com/quizmind/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

var eventsChannel string

// eventsCmd groups commands that talk to the configured message broker.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect events published by the server",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print events from a channel until interrupted",
	Long: `Subscribes to a channel on the broker selected by MQ_BACKEND and prints
every message body on its own line. Usage:

	quizmind events tail --channel quiz.generated
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.MQ.Backend == "" {
			return errors.New("MQ_BACKEND is not set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer broker.Close()

		out := cmd.OutOrStdout()
		err = broker.Subscribe(ctx, eventsChannel, func(ctx context.Context, msg mq.Message) error {
			_, err := fmt.Fprintf(out, "%s\n", msg.Data)
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)

	eventsTailCmd.Flags().StringVarP(&eventsChannel, "channel", "c", mq.ChannelQuizGenerated, "channel to subscribe to")
}
