package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
	"github.com/noah-isme/malla-api/pkg/logger"
	"github.com/noah-isme/malla-api/pkg/response"
)

// ContextClaimsKey is the gin context key storing the session token claims.
const ContextClaimsKey = "sessionClaims"

type tokenValidator interface {
	Validate(token string) (*models.SessionClaims, error)
}

type sessionLookup interface {
	Get(ctx context.Context, id string) (models.SessionView, error)
}

// Session requires a bearer session token and a live session behind it.
// The session id is stored under logger.SessionKey.
func Session(tokens tokenValidator, sessions sessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session token is required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if _, err := sessions.Get(c.Request.Context(), claims.SessionID); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(logger.SessionKey, claims.SessionID)
		c.Next()
	}
}

// SessionID returns the id resolved by Session, or "" outside protected routes.
func SessionID(c *gin.Context) string {
	return c.GetString(logger.SessionKey)
}
