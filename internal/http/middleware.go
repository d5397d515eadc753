package http

import (
	"github.com/gin-gonic/gin"

	"eventhub/internal/auth"
	"eventhub/internal/domain"
)

var allowedEventCreators = []domain.Role{domain.RoleOrganizer, domain.RoleAdmin}

// authenticate rejects requests without a valid bearer token and stores the
// caller's identity on the context.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ParseBearer(c.GetHeader("Authorization"))
		if err != nil {
			h.fail(c, err)
			return
		}
		identity, err := h.tokens.Authenticate(token)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func (h *Handler) requireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.Authorize(identityFrom(c), roles...); err != nil {
			h.fail(c, err)
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) auth.Identity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(auth.Identity)
	return identity
}
