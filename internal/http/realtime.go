package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) serveWebSocket(c *gin.Context) {
	if h.hub == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, envelope{Success: false, Error: "realtime channel disabled"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.cfg.Logger.WithField("request_id", c.GetString(requestIDKey)).Warnf("websocket upgrade: %v", err)
		return
	}
	h.hub.ServeWebSocket(conn, h.cfg.WriteTimeout, h.cfg.PongWait)
}

// checkOrigin admits browsers from the configured CORS origin. Clients that
// send no Origin header are not browsers and are let through.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.cfg.CORSOrigin == "*" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	allowed, err := url.Parse(h.cfg.CORSOrigin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, allowed.Scheme) && strings.EqualFold(u.Host, allowed.Host)
}
