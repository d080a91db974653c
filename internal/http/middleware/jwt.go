package middleware

import (
	"net/http"
	"strings"

	"dataspot/internal/service"

	"github.com/gin-gonic/gin"
)

// JWT validates the bearer token minted by the auth service and puts the
// authenticated user id into the gin context as "user_id". Websocket
// upgrades may carry the token as a "token" query parameter instead, since
// browsers cannot set headers on websocket handshakes.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		} else if q := c.Query("token"); q != "" {
			token = q
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
