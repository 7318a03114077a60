package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	"payment-gateway/internal/config"
	"payment-gateway/internal/observability"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)

	var kafkaBrokers string
	var topic string

	var rootCmd = &cobra.Command{Use: "payments-tool"}
	rootCmd.PersistentFlags().StringVar(&kafkaBrokers, "brokers", "localhost:9092", "Kafka broker addresses")
	rootCmd.PersistentFlags().StringVar(&topic, "topic", "payments.processed", "Payments topic name")

	var viewCmd = &cobra.Command{
		Use:   "view",
		Short: "View recent payment events on the topic",
		Run: func(cmd *cobra.Command, _ []string) {
			limit, _ := cmd.Flags().GetInt("limit")
			logger.Info("viewing payment events", "topic", topic, "limit", limit)

			brokers := strings.Split(kafkaBrokers, ",")
			client, err := kgo.NewClient(
				kgo.SeedBrokers(brokers...),
				kgo.ConsumerGroup("payments-tool-viewer"),
				kgo.ConsumeTopics(topic),
				kgo.FetchMaxWait(5*time.Second),
				// Read from the beginning of the topic.
				kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
			)
			if err != nil {
				logger.Error("failed to create consumer", "error", err)
				os.Exit(1)
			}
			defer client.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

			fmt.Fprintln(w, "OFFSET\tPAYMENT_ID\tEVENT")
			fmt.Fprintln(w, "------\t----------\t-----")

			msgCount := 0
			ctx := context.Background()

			for msgCount < limit {
				fetches := client.PollFetches(ctx)
				if fetches.IsClientClosed() {
					break
				}
				if len(fetches.Records()) == 0 {
					logger.Info("no more events on the topic")
					break
				}

				fetches.EachRecord(func(record *kgo.Record) {
					if msgCount >= limit {
						return
					}
					fmt.Fprintf(w, "%d\t%s\t%s\n", record.Offset, string(record.Key), string(record.Value))
					msgCount++
				})
			}
			if err := w.Flush(); err != nil {
				logger.Error("failed to flush writer", "error", err)
			}
		},
	}
	viewCmd.Flags().Int("limit", 10, "Number of events to view")

	rootCmd.AddCommand(viewCmd)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
