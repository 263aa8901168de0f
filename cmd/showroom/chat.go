package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/zulandar/showroom/internal/chatlog"
	"github.com/zulandar/showroom/internal/identity"
	"github.com/zulandar/showroom/internal/models"
)

func newChatCmd() *cobra.Command {
	var (
		configPath  string
		sessionFile string
		locale      string
		pathname    string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat as a visitor from the terminal",
		Long: "Mounts a visitor widget against the configured store and relays lines from stdin. " +
			"The session id is kept in a file, so later runs continue the same conversation. " +
			"Type /quit or send EOF to leave.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath, sessionFile, locale, pathname)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "showroom.yaml", "path to Showroom config file")
	cmd.Flags().StringVar(&sessionFile, "session-file", defaultSessionFile(), "file that keeps the visitor session id")
	cmd.Flags().StringVar(&locale, "lang", "en", "visitor locale")
	cmd.Flags().StringVar(&pathname, "page", "/", "page path reported with each message")
	return cmd
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".showroom-session.json"
	}
	return filepath.Join(dir, "showroom", "session.json")
}

func runChat(cmd *cobra.Command, configPath, sessionFile, locale, pathname string) error {
	cfg, gormDB, err := connectFromConfig(cmd, configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := buildStack(ctx, cfg, gormDB)
	if err != nil {
		return err
	}
	defer st.Close()

	storage := identity.NewFileStorage(sessionFile)
	sid := identity.GetOrCreateSessionID(storage)
	if sid == "" {
		return fmt.Errorf("chat: cannot keep a session id in %s", sessionFile)
	}

	w, err := st.widgets.Mount(ctx, sid, locale, pathname, storage)
	if err != nil {
		return err
	}
	defer st.widgets.Unmount(w.ID)

	out := cmd.OutOrStdout()
	status := "offline"
	if w.Online {
		status = "online"
	}
	fmt.Fprintf(out, "Session %s (%s, operator %s)\n", sid, w.Locale, status)

	p := &transcriptPrinter{out: out}
	subCtx, stopSub := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msgs := range st.log.Subscribe(subCtx, chatlog.Filter{SessionID: sid}) {
			p.print(msgs)
		}
	}()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			break
		}
		if line == "" {
			continue
		}
		w.Send(ctx, line, pathname)
	}

	stopSub()
	<-done
	// Catch up on whatever the subscription had not delivered yet.
	msgs, err := st.log.Snapshot(ctx, chatlog.Filter{SessionID: sid})
	if err != nil {
		return err
	}
	p.print(msgs)
	return scanner.Err()
}

// transcriptPrinter writes bot messages not printed before. Visitor
// messages are the user's own input and are not echoed.
type transcriptPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	lastID uint
}

func (p *transcriptPrinter) print(msgs []models.ChatMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if m.ID <= p.lastID {
			continue
		}
		p.lastID = m.ID
		if m.From == models.RoleVisitor {
			continue
		}
		fmt.Fprintf(p.out, "%s> %s\n", m.From, m.Text)
	}
}
