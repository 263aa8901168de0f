package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/showroom/internal/identity"
	"github.com/zulandar/showroom/internal/lead"
	"github.com/zulandar/showroom/internal/widget"
)

// registerRoutes sets up all routes on the Gin router.
func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	chat := router.Group("/api/chat", limitBody(maxVisitorBody))
	chat.POST("/mount", s.handleMount)
	chat.POST("/:widget/send", s.handleSend)
	chat.POST("/:widget/prefill", s.handlePrefill)
	chat.GET("/stream", s.handleVisitorStream)

	admin := router.Group("/api/admin", gin.BasicAuth(gin.Accounts{s.opts.AdminUser: s.opts.AdminPassword}))
	admin.GET("/inbox/stream", s.handleInboxStream)
	admin.POST("/presence", s.handleSetPresence)
	admin.GET("/sessions/:id", s.handleTranscript)
	admin.POST("/sessions/:id/select", s.handleSelect)
	admin.POST("/sessions/:id/reply", s.handleReply)
	admin.DELETE("/sessions/:id", s.handleCloseSession)
	admin.GET("/leads", s.handleLeads)
}

// maxVisitorBody caps visitor request bodies. Messages are trimmed to a few
// thousand runes anyway.
const maxVisitorBody = 16 << 10

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

type mountRequest struct {
	Locale   string `json:"locale"`
	Pathname string `json:"pathname"`
}

type mountResponse struct {
	WidgetID  string `json:"widgetId"`
	SessionID string `json:"sessionId"`
	Locale    string `json:"locale"`
	Online    bool   `json:"online"`
	Welcomed  bool   `json:"welcomed"`
}

func (s *Server) handleMount(c *gin.Context) {
	var req mountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(bindStatus(err), gin.H{"error": err.Error()})
		return
	}

	storage := identity.NewCookieStorage(c.Writer, c.Request)
	sessionID := identity.GetOrCreateSessionID(storage)
	w, err := s.widgets.Mount(c.Request.Context(), sessionID, req.Locale, req.Pathname, storage)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mountResponse{
		WidgetID:  w.ID,
		SessionID: w.SessionID,
		Locale:    w.Locale,
		Online:    w.Online,
		Welcomed:  w.Welcomed,
	})
}

func bindStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// visitorWidget resolves the :widget param and checks it belongs to the
// caller's session.
func (s *Server) visitorWidget(c *gin.Context) (*widget.Widget, bool) {
	w, ok := s.widgets.Get(c.Param("widget"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not mounted"})
		return nil, false
	}
	sessionID, _ := identity.NewCookieStorage(c.Writer, c.Request).Get(identity.SessionKey)
	if !identity.ValidSessionID(sessionID) || sessionID != w.SessionID {
		c.JSON(http.StatusForbidden, gin.H{"error": "widget belongs to another session"})
		return nil, false
	}
	return w, true
}

type sendRequest struct {
	Text     string `json:"text"`
	Pathname string `json:"pathname"`
}

func (s *Server) handleSend(c *gin.Context) {
	w, ok := s.visitorWidget(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(bindStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, w.Send(c.Request.Context(), req.Text, req.Pathname))
}

type prefillRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePrefill(c *gin.Context) {
	w, ok := s.visitorWidget(c)
	if !ok {
		return
	}
	var req prefillRequest
	// The event text is optional; an empty body just opens the widget.
	if err := c.ShouldBindJSON(&req); err != nil && bindStatus(err) == http.StatusRequestEntityTooLarge {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, w.Prefill(req.Text))
}

type presenceRequest struct {
	Online bool `json:"online"`
}

func (s *Server) handleSetPresence(c *gin.Context) {
	var req presenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.presence.SetPresence(c.Request.Context(), req.Online)
	c.JSON(http.StatusOK, presenceView(s.presence.Current(c.Request.Context())))
}

func (s *Server) handleTranscript(c *gin.Context) {
	msgs, err := s.console.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": c.Param("id"), "messages": messageViews(msgs)})
}

func (s *Server) handleSelect(c *gin.Context) {
	n := s.console.Select(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

type replyRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleReply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := s.console.ReplyTo(c.Request.Context(), c.Param("id"), req.Text)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) handleCloseSession(c *gin.Context) {
	archive, _ := strconv.ParseBool(c.DefaultQuery("archive", "false"))
	n := s.console.CloseSession(c.Request.Context(), c.Param("id"), archive)
	c.JSON(http.StatusOK, gin.H{"deleted": n, "archived": archive})
}

func (s *Server) handleLeads(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	leads, err := s.leads.List(c.Request.Context(), lead.ListFilter{Source: c.Query("source"), Limit: limit})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}
