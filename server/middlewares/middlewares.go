package middlewares

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/socialmux/socialmux/utils/flag"
)

const devSecret = "socialmux-dev-secret"

// TokenTTL bounds how long an issued token stays valid.
const TokenTTL = 7 * 24 * time.Hour

func jwtSecret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte(devSecret)
}

// JWT validates the caller's token and replaces it with a "sub" header
// holding the user id, which is all downstream handlers ever read. Tokens
// arrive as "Authorization: Bearer <token>", or as a "token" query parameter
// for endpoints that cannot set headers (the signal stream). With
// -bypass_auth the incoming "sub" header is trusted as-is.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		if flag.ByPassAuth {
			c.Next()
			return
		}

		// A stale sub header must never survive into a handler.
		c.Request.Header.Del("sub")

		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated: missing token"})
			c.Abort()
			return
		}

		sub, err := ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated: invalid token"})
			c.Abort()
			return
		}

		c.Request.Header.Del("Authorization")
		c.Request.Header.Set("sub", sub)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

// ValidateToken parses and verifies a token, returning the user id it was
// issued for.
func ValidateToken(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// GenerateToken issues a signed token for the given user id.
func GenerateToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret())
}
