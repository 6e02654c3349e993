// gatewirectl is a diagnostics CLI for a running gateway: it connects, runs
// one probe, prints, and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantrail/gatewire"
	"github.com/quantrail/gatewire/internal/logging"
	"github.com/quantrail/gatewire/internal/observability"
)

var (
	configPath string
	waitFor    time.Duration
)

func main() {
	logging.ConfigureRuntime()
	logger := observability.InitLogger("gatewirectl")

	root := &cobra.Command{
		Use:           "gatewirectl",
		Short:         "Gateway session diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "session config (TOML)")
	root.PersistentFlags().DurationVar(&waitFor, "wait", 10*time.Second, "per-probe wait budget")

	root.AddCommand(timeCmd(), positionsCmd(), ticksCmd())

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("probe failed")
		os.Exit(1)
	}
}

func withClient(fn func(ctx context.Context, c *gatewire.Client) error) error {
	cfg, err := loadSessionConfig(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	client, err := gatewire.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	meta := client.Meta()
	fmt.Printf("connected: server v%d, accounts %v, next order id %d\n",
		meta.ServerVersion, meta.ManagedAccounts, meta.NextOrderID)
	return fn(ctx, client)
}

func timeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "time",
		Short: "Ask the gateway clock",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *gatewire.Client) error {
				t, err := c.ServerTime(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("server time: %s\n", t.Format(time.RFC3339))
				return nil
			})
		},
	}
}

func positionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Dump the position stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *gatewire.Client) error {
				sub, err := c.Positions()
				if err != nil {
					return err
				}
				defer sub.Cancel()
				for {
					r, err := sub.NextCtx(ctx)
					if errors.Is(err, io.EOF) {
						return nil
					}
					if err != nil {
						return err
					}
					if r.Kind == gatewire.InPositionEnd {
						fmt.Println("-- end of positions --")
						return nil
					}
					rd := r.Reader()
					_ = rd.Skip() // version
					account, _ := rd.String()
					fmt.Printf("position: account=%s raw=%q\n", account, r.Payload)
				}
			})
		},
	}
}

func ticksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ticks SYMBOL",
		Short: "Stream a few market data ticks for SYMBOL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *gatewire.Client) error {
				reqID := c.NextRequestID()
				sub, err := c.MarketData(reqID, args[0], "STK", "SMART", "USD")
				if err != nil {
					return err
				}
				defer sub.Cancel()
				for i := 0; i < 10; i++ {
					r, err := sub.NextCtx(ctx)
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						return err
					}
					fmt.Printf("tick: kind=%d raw=%q\n", r.Kind, r.Payload)
				}
				return nil
			})
		},
	}
}
