package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/zulandar/showroom/internal/chatlog"
	"github.com/zulandar/showroom/internal/identity"
	"github.com/zulandar/showroom/internal/models"
	"github.com/zulandar/showroom/internal/presence"
)

// messageJSON is a chat message as sent to browsers, with the timestamp in
// epoch milliseconds.
type messageJSON struct {
	ID        uint   `json:"id"`
	SessionID string `json:"sessionId"`
	From      string `json:"from"`
	Text      string `json:"text"`
	Pathname  string `json:"pathname"`
	CreatedAt int64  `json:"createdAt"`
	Read      bool   `json:"read"`
}

func messageViews(msgs []models.ChatMessage) []messageJSON {
	out := make([]messageJSON, len(msgs))
	for i, m := range msgs {
		out[i] = messageJSON{
			ID:        m.ID,
			SessionID: m.SessionID,
			From:      m.From,
			Text:      m.Text,
			Pathname:  m.Pathname,
			CreatedAt: m.CreatedAtMillis(),
			Read:      m.Read,
		}
	}
	return out
}

type presenceJSON struct {
	Online    bool  `json:"online"`
	UpdatedAt int64 `json:"updatedAt"`
	Available bool  `json:"available"`
}

func presenceView(s presence.Status) presenceJSON {
	return presenceJSON{Online: s.Online, UpdatedAt: s.UpdatedAt.UnixMilli(), Available: s.Available}
}

func startSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	c.Writer.Flush()
}

// handleVisitorStream streams the caller's session transcript and the
// operator presence.
func (s *Server) handleVisitorStream(c *gin.Context) {
	sessionID, ok := identity.NewCookieStorage(c.Writer, c.Request).Get(identity.SessionKey)
	if !ok || !identity.ValidSessionID(sessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no chat session; mount the widget first"})
		return
	}

	ctx := c.Request.Context()
	msgs := s.log.Subscribe(ctx, chatlog.Filter{SessionID: sessionID})
	status := s.presence.Watch(ctx)
	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	startSSE(c)
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
		case snap, ok := <-msgs:
			if !ok {
				return
			}
			writeSSE(c.Writer, "messages", messageViews(snap))
		case st, ok := <-status:
			if !ok {
				return
			}
			writeSSE(c.Writer, "presence", presenceView(st))
		}
		c.Writer.Flush()
	}
}

// handleInboxStream is one open operator console: it keeps the operator
// marked online for as long as the stream is connected.
func (s *Server) handleInboxStream(c *gin.Context) {
	con, err := s.newConsole()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	con.Open(ctx)
	defer con.Shutdown()
	log.Info().Str("component", "server").Str("remote", c.ClientIP()).Msg("operator console connected")

	inbox := con.Watch(ctx)
	status := s.presence.Watch(ctx)
	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	startSSE(c)
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("component", "server").Str("remote", c.ClientIP()).Msg("operator console disconnected")
			return
		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
		case in, ok := <-inbox:
			if !ok {
				return
			}
			writeSSE(c.Writer, "inbox", in)
		case st, ok := <-status:
			if !ok {
				return
			}
			writeSSE(c.Writer, "presence", presenceView(st))
		}
		c.Writer.Flush()
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
