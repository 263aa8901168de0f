// Package server exposes the visitor widget and the operator console over
// HTTP, with server-sent event streams for live updates.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/zulandar/showroom/internal/chatlog"
	"github.com/zulandar/showroom/internal/console"
	"github.com/zulandar/showroom/internal/lead"
	"github.com/zulandar/showroom/internal/presence"
	"github.com/zulandar/showroom/internal/widget"
)

// defaultKeepAlive is the SSE comment interval that keeps proxies from
// closing idle streams.
const defaultKeepAlive = 15 * time.Second

// Opts holds configuration for the HTTP server.
type Opts struct {
	Log      *chatlog.Log
	Presence *presence.Tracker
	Widgets  *widget.Registry
	Leads    *lead.Archiver

	Port           int
	AllowedOrigins []string // marketing site origins allowed to call the visitor API
	AdminUser      string
	AdminPassword  string
	KeepAlive      time.Duration
	Out            io.Writer
}

// Server holds the wired components behind the routes.
type Server struct {
	log       *chatlog.Log
	presence  *presence.Tracker
	widgets   *widget.Registry
	leads     *lead.Archiver
	console   *console.Console // shared by the operator action routes
	keepAlive time.Duration
	opts      Opts
}

// New validates opts and creates a Server.
func New(opts Opts) (*Server, error) {
	if opts.Log == nil || opts.Presence == nil || opts.Widgets == nil || opts.Leads == nil {
		return nil, fmt.Errorf("server: log, presence, widgets and leads are required")
	}
	if opts.AdminPassword == "" {
		return nil, fmt.Errorf("server: admin password is required")
	}
	if opts.AdminUser == "" {
		opts.AdminUser = "admin"
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	s := &Server{
		log:       opts.Log,
		presence:  opts.Presence,
		widgets:   opts.Widgets,
		leads:     opts.Leads,
		keepAlive: opts.KeepAlive,
		opts:      opts,
	}
	if s.keepAlive <= 0 {
		s.keepAlive = defaultKeepAlive
	}
	con, err := s.newConsole()
	if err != nil {
		return nil, err
	}
	s.console = con
	return s, nil
}

func (s *Server) newConsole() (*console.Console, error) {
	return console.New(console.Opts{Log: s.log, Heartbeat: s.presence, Archiver: s.leads})
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)

	if len(s.opts.AllowedOrigins) == 0 {
		return router
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(router)
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	addr := fmt.Sprintf(":%d", s.opts.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if s.opts.Out != nil {
		fmt.Fprintf(s.opts.Out, "Showroom listening on http://localhost:%d\n", s.opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
