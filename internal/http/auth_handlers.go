package http

import (
	"github.com/gin-gonic/gin"

	"eventhub/internal/domain"
	"eventhub/internal/ratelimit"
	"eventhub/internal/service"
)

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	res, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, res)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	allowed, err := h.limiter.Allow(c.Request.Context(), ratelimit.Key(c.ClientIP(), req.Email))
	if err != nil {
		h.cfg.Logger.WithField("request_id", c.GetString(requestIDKey)).Warnf("login throttle unavailable: %v", err)
	} else if !allowed {
		h.fail(c, errTooManyAttempts)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, res)
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.auth.Profile(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, user)
}
