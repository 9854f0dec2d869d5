package middleware

import (
	"errors"
	"strings"

	"satvault/internal/auth"
	"satvault/internal/httpx"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthRequired validates the bearer token and injects the verified
// principal (uid, email) into the request context. Tenant identity is never
// taken from the request body.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httpx.FailErr(c, httpx.ErrUnauthorized("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httpx.FailErr(c, httpx.ErrUnauthorized("invalid authorization header format"))
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				httpx.FailErr(c, httpx.ErrTokenExpired("token expired"))
			} else {
				httpx.FailErr(c, httpx.ErrInvalidToken("invalid token"))
			}
			c.Abort()
			return
		}

		c.Set("uid", claims.UID)
		c.Set("email", claims.Email)

		c.Next()
	}
}
