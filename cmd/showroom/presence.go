package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/showroom/internal/presence"
)

func newPresenceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:       "presence [on|off]",
		Short:     "Show or set the operator presence flag",
		Long:      "Without an argument, prints whether an operator is available. With on or off, writes the flag once; a console keeps it fresh with heartbeats.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			state := ""
			if len(args) == 1 {
				state = args[0]
			}
			return runPresence(cmd, configPath, state)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "showroom.yaml", "path to Showroom config file")
	return cmd
}

func runPresence(cmd *cobra.Command, configPath, state string) error {
	cfg, gormDB, err := connectFromConfig(cmd, configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	feed, closeFeed, err := openFeed(ctx, cfg.Feed)
	if err != nil {
		return err
	}
	defer closeFeed()

	tracker, err := presence.NewTracker(presence.TrackerOpts{
		Store:             presence.NewGormStore(gormDB, feed),
		Feed:              feed,
		HeartbeatInterval: cfg.HeartbeatInterval(),
		Freshness:         cfg.FreshnessWindow(),
	})
	if err != nil {
		return err
	}

	if state != "" {
		tracker.SetPresence(ctx, state == "on")
	}

	st := tracker.Current(ctx)
	out := cmd.OutOrStdout()
	word := "away"
	if st.Available {
		word = "available"
	}
	beat := "never"
	if age := formatAge(st.UpdatedAt, time.Now()); age != "never" {
		beat = age + " ago"
	}
	fmt.Fprintf(out, "Operator: %s (flag %s, last heartbeat %s)\n", word, onOff(st.Online), beat)
	if st.Online && !st.Available {
		fmt.Fprintf(out, "The flag is on but stale: no heartbeat within %s.\n", cfg.FreshnessWindow())
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
