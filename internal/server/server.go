// Package server exposes the NeoTrace API: the chat proxy the assistant
// client talks to, and the feedback endpoint.
package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"neotrace/internal/backend"
	"neotrace/internal/cache"
	"neotrace/internal/session"
	"neotrace/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// maxMessageLen bounds a single question. Longer input gets an explicit
// refusal with a 2xx status so the client shows it instead of retrying.
const maxMessageLen = 4000

const systemPrompt = `You are the NeoTrace assistant, a friendly cybersecurity tutor embedded in an educational security platform. Answer questions about phishing, password safety, the platform's scanning tools (URL Scanner, Phone Lookup, Image Analyzer, Email Analyzer), security certifications and careers. Keep answers concise and practical. Format answers with the platform's Markdown subset: bold, italic, inline code, fenced code, "> " tip lines, #/##/### headings, bullet and numbered lists.`

// Server holds the API handlers and their dependencies.
type Server struct {
	backend backend.Client
	store   *store.Store
	cache   sync.Map
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
}

// New creates a Server.
func New(b backend.Client, st *store.Store, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Server {
	return &Server{
		backend: b,
		store:   st,
		logger:  logger,
		tracer:  tracer,
		meter:   meter,
	}
}

// Router builds the gin engine. frontendURL, when set, becomes the only
// allowed CORS origin; empty means a permissive development setup.
func (s *Server) Router(frontendURL string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if frontendURL != "" {
		corsCfg.AllowOrigins = []string{frontendURL}
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	{
		api.POST("/chatbot", s.handleChat)
		api.POST("/feedback", s.handleFeedback)
		api.GET("/feedback/recent", s.handleRecentFeedback)
		api.GET("/health", s.handleHealth)
	}
	return r
}

type chatRequest struct {
	Message string                 `json:"message"`
	History []session.HistoryEntry `json:"history"`
	Context string                 `json:"context"`
}

func (s *Server) handleChat(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "chatbot_request")
	defer span.End()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("malformed chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if len(req.Message) > maxMessageLen {
		// Explicit refusal, delivered as a reply rather than a failure.
		c.JSON(http.StatusOK, gin.H{"error": "That message is too long for me. Could you shorten it to the essentials?"})
		return
	}

	// Clamp the window server-side as well; clients are not trusted to.
	history := session.Window(req.History)

	key := cache.Key(history, req.Message+"\x00"+req.Context)
	if val, ok := s.cache.Load(key); ok {
		cached := val.(cache.CachedReply)
		if !cached.Expired() {
			s.logger.Info("cache hit", "key", key[:16])
			c.JSON(http.StatusOK, gin.H{"reply": cached.Reply})
			return
		}
		s.cache.Delete(key)
	}

	system := systemPrompt
	if req.Context != "" {
		system += "\n\nThe user is currently looking at: " + req.Context
	}

	turns := append(history, session.HistoryEntry{Role: session.RoleUser, Content: req.Message})

	start := time.Now()
	reply, err := s.backend.Chat(ctx, system, turns)
	if err != nil {
		s.logger.Error("upstream LLM call failed", "backend", s.backend.Name(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant temporarily unavailable"})
		return
	}
	s.logger.Info("chat reply delivered", "backend", s.backend.Name(), "duration_ms", time.Since(start).Milliseconds(), "history_len", len(history))

	s.cache.Store(key, cache.CachedReply{Reply: reply, Timestamp: time.Now()})
	if counter, cerr := s.meter.Int64Counter("chatbot.requests"); cerr == nil {
		counter.Add(ctx, 1)
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Message string `json:"message"`
	Page    string `json:"page"`
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Rating < 0 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 0 and 5"})
		return
	}
	if req.Rating == 0 && req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating or message is required"})
		return
	}

	id, err := s.store.SaveFeedback(c.Request.Context(), req.Rating, req.Message, req.Page)
	if err != nil {
		s.logger.Error("failed to save feedback", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}
	s.logger.Info("feedback received", "id", id, "rating", req.Rating, "page", req.Page)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleRecentFeedback(c *gin.Context) {
	records, err := s.store.RecentFeedback(c.Request.Context(), 50)
	if err != nil {
		s.logger.Error("failed to load feedback", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load feedback"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": records})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": s.backend.Name()})
}
