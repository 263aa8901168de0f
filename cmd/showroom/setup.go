package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/zulandar/showroom/internal/chatlog"
	"github.com/zulandar/showroom/internal/config"
	"github.com/zulandar/showroom/internal/db"
	"github.com/zulandar/showroom/internal/docstore"
	"github.com/zulandar/showroom/internal/lead"
	"github.com/zulandar/showroom/internal/notify"
	"github.com/zulandar/showroom/internal/notify/discord"
	"github.com/zulandar/showroom/internal/notify/slack"
	"github.com/zulandar/showroom/internal/presence"
	"github.com/zulandar/showroom/internal/widget"
	"gorm.io/gorm"
)

// loadConfig reads .env (if any) and then the YAML config, so secrets in
// .env take part in the environment overrides.
func loadConfig(configPath string) (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// connectFromConfig loads the config, routes logs to the command's stderr
// and opens the configured store.
func connectFromConfig(cmd *cobra.Command, configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	setupLogging(cfg.LogLevel, cmd.ErrOrStderr())

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// setupLogging sets the global zerolog level and routes the global logger
// to a console writer on out.
func setupLogging(level string, out io.Writer) {
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly})
}

func parseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// stack is the set of wired core components shared by serve, demo and chat.
type stack struct {
	feed     docstore.Feed
	log      *chatlog.Log
	presence *presence.Tracker
	leads    *lead.Archiver
	widgets  *widget.Registry
	notifier notify.Notifier
	digest   *notify.Digest // nil when no digest is scheduled
	closers  []func() error
}

// Close releases the feed connection, if any.
func (s *stack) Close() {
	// Let background alerts finish before the feed and notifiers go away.
	if s.widgets != nil {
		s.widgets.Wait()
	}
	if s.leads != nil {
		s.leads.Wait()
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

// buildStack wires the core components over gormDB according to cfg.
func buildStack(ctx context.Context, cfg *config.Config, gormDB *gorm.DB) (*stack, error) {
	s := &stack{}

	feed, closeFeed, err := openFeed(ctx, cfg.Feed)
	if err != nil {
		return nil, err
	}
	s.feed = feed
	s.closers = append(s.closers, closeFeed)

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.notifier = notifier

	if s.log, err = chatlog.New(chatlog.Opts{
		DB:           gormDB,
		Feed:         s.feed,
		Poll:         cfg.PollInterval(),
		MaxTextRunes: cfg.Chat.MaxTextRunes,
	}); err != nil {
		s.Close()
		return nil, err
	}

	if s.presence, err = presence.NewTracker(presence.TrackerOpts{
		Store:             presence.NewGormStore(gormDB, s.feed),
		Feed:              s.feed,
		HeartbeatInterval: cfg.HeartbeatInterval(),
		Freshness:         cfg.FreshnessWindow(),
		Poll:              cfg.PollInterval(),
		Recheck:           time.Duration(cfg.Presence.RecheckSec) * time.Second,
	}); err != nil {
		s.Close()
		return nil, err
	}

	if s.leads, err = lead.New(lead.Opts{DB: gormDB, Feed: s.feed, Notifier: notifier}); err != nil {
		s.Close()
		return nil, err
	}

	if s.widgets, err = widget.NewRegistry(widget.Opts{
		Log:             s.log,
		Presence:        s.presence,
		Archiver:        s.leads,
		Notifier:        notifier,
		Locales:         cfg.Chat.Locales,
		DefaultLocale:   cfg.Chat.DefaultLocale,
		MaxTextRunes:    cfg.Chat.MaxTextRunes,
		PrefillMaxRunes: cfg.Chat.PrefillMaxRunes,
		IdleTimeout:     cfg.IdleTimeout(),
	}); err != nil {
		s.Close()
		return nil, err
	}

	if cfg.Notify.DigestCron != "" {
		if s.digest, err = notify.NewDigest(notify.DigestOpts{
			DB:       gormDB,
			Notifier: notifier,
			Cron:     cfg.Notify.DigestCron,
		}); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// buildNotifier fans alerts out to every configured destination.
func buildNotifier(cfg config.NotifyConfig) (notify.Notifier, error) {
	var multi notify.Multi
	if cfg.Slack.BotToken != "" {
		n, err := slack.New(slack.Opts{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID})
		if err != nil {
			return nil, err
		}
		multi = append(multi, n)
	}
	if cfg.Discord.BotToken != "" {
		n, err := discord.New(discord.Opts{BotToken: cfg.Discord.BotToken, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		multi = append(multi, n)
	}
	if len(multi) == 0 {
		return notify.Nop{}, nil
	}
	return multi, nil
}

// openFeed returns the Redis change feed when one is configured, so
// writes made here reach subscribers of other processes; otherwise an
// in-process feed.
func openFeed(ctx context.Context, cfg config.FeedConfig) (docstore.Feed, func() error, error) {
	if cfg.RedisAddr == "" {
		return docstore.NewMemoryFeed(), func() error { return nil }, nil
	}
	rf, err := docstore.NewRedisFeed(ctx, docstore.RedisFeedOpts{
		Addr:    cfg.RedisAddr,
		Channel: cfg.Channel,
	})
	if err != nil {
		return nil, nil, err
	}
	return rf, rf.Close, nil
}
