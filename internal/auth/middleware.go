package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aerowatch/dashboard-portal/settings-backend/pkg/api"
)

const subjectKey = "auth.subject"

// RequirePrincipal extracts the authenticated subject id set by the identity
// gateway (X-User-ID header) and rejects requests that carry none.
// Authentication itself happens upstream; every handler receives an explicit
// principal instead of a hardcoded user id.
func RequirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Fail("authentication required"))
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Fail("invalid principal"))
			return
		}
		c.Set(subjectKey, id)
		c.Next()
	}
}

// Subject returns the authenticated user id for the current request.
func Subject(c *gin.Context) uuid.UUID {
	v, ok := c.Get(subjectKey)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}
