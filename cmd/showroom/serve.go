package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/zulandar/showroom/internal/config"
	"github.com/zulandar/showroom/internal/db"
	"github.com/zulandar/showroom/internal/server"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		Long:  "Serves the visitor widget API, the operator console API and their live event streams.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "showroom.yaml", "path to Showroom config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(cmd, configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedPresence(gormDB); err != nil {
		return err
	}
	return serve(cmd, cfg, gormDB)
}

func newDemoCmd() *cobra.Command {
	var (
		port     int
		password string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Start the chat server on a throwaway in-memory store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, port, password)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	cmd.Flags().StringVar(&password, "password", "demo", "operator console password")
	return cmd
}

func runDemo(cmd *cobra.Command, port int, password string) error {
	cfg, err := demoConfig(port, password)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel, cmd.ErrOrStderr())

	gormDB, err := db.OpenMemory()
	if err != nil {
		return err
	}
	if err := db.SeedPresence(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Demo store is in memory; operator login %s / %s\n", cfg.Server.AdminUser, password)
	return serve(cmd, cfg, gormDB)
}

// demoConfig builds a validated config for the demo command.
func demoConfig(port int, password string) (*config.Config, error) {
	raw := map[string]any{
		"site":   "demo",
		"server": map[string]any{"port": port, "admin_password": password},
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("demo config: %w", err)
	}
	return config.Parse(data)
}

// serve runs the server and its background loops until SIGINT or SIGTERM.
func serve(cmd *cobra.Command, cfg *config.Config, gormDB *gorm.DB) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	st, err := buildStack(ctx, cfg, gormDB)
	if err != nil {
		return err
	}
	defer st.Close()

	go st.widgets.Run(ctx)
	if st.digest != nil {
		log.Info().Str("cron", cfg.Notify.DigestCron).Msg("lead digest scheduled")
		go st.digest.Run(ctx)
	}

	srv, err := server.New(server.Opts{
		Log:            st.log,
		Presence:       st.presence,
		Widgets:        st.widgets,
		Leads:          st.leads,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminUser:      cfg.Server.AdminUser,
		AdminPassword:  cfg.Server.AdminPassword,
		Out:            cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
