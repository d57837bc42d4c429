package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream lifecycle events from NATS",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Watching needs the event bus, not the database.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		only, _ := cmd.Flags().GetString("component")
		natsURL := cfg.NATSURL
		if u, _ := cmd.Flags().GetString("nats-url"); u != "" {
			natsURL = u
		}
		if natsURL == "" {
			return fmt.Errorf("no event bus configured (--nats-url or PANELKIT_NATS_URL)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats: disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Warn("nats: reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		return watchEvents(ctx, sub, topic, only, cmd.OutOrStdout())
	},
}

// watchEvents prints every envelope received on topic until ctx is done or
// the subscription closes. A non-empty only keeps one component's events.
func watchEvents(ctx context.Context, sub events.Subscriber, topic, only string, out io.Writer) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			var env events.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				logger.Warn("skipping malformed event", "err", err)
				continue
			}
			if only != "" && env.Component != only {
				continue
			}
			if jsonOutput {
				fmt.Fprintln(out, string(data))
			} else {
				fmt.Fprintln(out, formatEnvelope(env))
			}
		}
	}
}

func formatEnvelope(env events.Envelope) string {
	line := fmt.Sprintf("%s %s %s", ui.RenderMuted(env.Time.Local().Format("15:04:05")), ui.RenderAccent(env.Topic), env.Component)
	if env.Actor != "" {
		line += " by " + env.Actor
	}
	if len(env.Payload) > 0 && string(env.Payload) != "{}" && string(env.Payload) != "null" {
		line += " " + string(env.Payload)
	}
	return line
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "NATS subject to watch (wildcards allowed)")
	watchCmd.Flags().String("component", "", "only show events of this component")
	watchCmd.Flags().String("nats-url", "", "NATS server URL (default $PANELKIT_NATS_URL)")
}
