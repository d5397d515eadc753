package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"eventhub/internal/auth"
	"eventhub/internal/ratelimit"
	"eventhub/internal/realtime"
	"eventhub/internal/service"
)

const requestIDHeader = "X-Request-ID"

type Config struct {
	CORSOrigin     string
	RequestTimeout time.Duration
	// WriteTimeout bounds a single socket write; PongWait is how long a
	// silent socket is kept before it is considered gone.
	WriteTimeout time.Duration
	PongWait     time.Duration
	Logger       logrus.FieldLogger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth    service.AuthService
	events  service.EventService
	rsvps   service.RSVPService
	tokens  *auth.TokenManager
	hub     *realtime.Hub
	limiter ratelimit.Limiter

	upgrader websocket.Upgrader
	cfg      Config
}

func NewHandler(
	authSvc service.AuthService,
	events service.EventService,
	rsvps service.RSVPService,
	tokens *auth.TokenManager,
	hub *realtime.Hub,
	limiter ratelimit.Limiter,
	cfg Config,
) *Handler {
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(0, time.Minute)
	}

	h := &Handler{
		auth:    authSvc,
		events:  events,
		rsvps:   rsvps,
		tokens:  tokens,
		hub:     hub,
		limiter: limiter,
		cfg:     cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID(), h.requestLogger(), corsMiddleware(h.cfg.CORSOrigin))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, envelope{Success: true, Message: "Event Management API"})
	})
	router.GET("/ws", h.serveWebSocket)

	api := router.Group("/api", timeoutMiddleware(h.cfg.RequestTimeout))
	{
		api.GET("/health", h.health)

		authGroup := api.Group("/auth")
		authGroup.POST("/signup", h.signup)
		authGroup.POST("/login", h.login)
		authGroup.GET("/profile", h.authenticate(), h.profile)

		api.GET("/events", h.listEvents)
		api.GET("/events/:id", h.getEvent)
		api.POST("/events", h.authenticate(), h.requireRoles(allowedEventCreators...), h.createEvent)
		api.PUT("/events/:id", h.authenticate(), h.updateEvent)
		api.DELETE("/events/:id", h.authenticate(), h.deleteEvent)

		// gin requires one wildcard name per path segment, so event RSVP routes reuse :id.
		api.GET("/events/:id/rsvps", h.listEventRSVPs)
		api.POST("/events/:id/rsvp", h.authenticate(), h.upsertRSVP)

		api.GET("/rsvps/my", h.authenticate(), h.listMyRSVPs)
		api.DELETE("/rsvps/:id", h.authenticate(), h.deleteRSVP)
	}
}

func (h *Handler) health(c *gin.Context) {
	clients := 0
	if h.hub != nil {
		clients = h.hub.Len()
	}
	ok(c, gin.H{"status": "ok", "clients": clients})
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+requestIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := h.cfg.Logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"request_id": c.GetString(requestIDKey),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request handled")
	}
}

// timeoutMiddleware bounds the request context. Storage calls observe it.
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
