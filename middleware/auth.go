// middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentathing/models"
	"rentathing/utils"
)

// JWTAuthMiddleware validates the bearer token and stores the caller's
// session in the context under utils.SessionKey. The token itself is kept on
// the session and forwarded to the marketplace API.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		sess, err := utils.SessionFromToken(tokenString)
		if err != nil {
			utils.GetLogger().Debug("rejected bearer token", zap.String("ip", getClientIP(c)), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token"})
			return
		}

		c.Set(utils.SessionKey, sess)
		c.Next()
	}
}

// SessionFrom returns the session placed by JWTAuthMiddleware.
func SessionFrom(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(utils.SessionKey)
	if !ok {
		return models.Session{}, false
	}
	sess, ok := v.(models.Session)
	return sess, ok
}
