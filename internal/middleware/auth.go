package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/wander-backend-go/pkg/response"
)

const (
	// AuthModeJWT expects "Authorization: Bearer <token>"
	AuthModeJWT = "jwt"
	// AuthModeHeader trusts X-User-ID from an upstream proxy
	AuthModeHeader = "header"

	userIDKey    = "userID"
	userIDHeader = "X-User-ID"
)

// ErrInvalidToken is returned for a token that parses but carries no user
var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the user a bearer token was issued to
type Claims struct {
	UserID string `json:"user_id"`

	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for userID valid for ttl
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateToken parses tokenString and returns its claims
func ValidateToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Auth resolves the calling user and stores it on the context
func Auth(mode, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID string
		switch mode {
		case AuthModeHeader:
			userID = strings.TrimSpace(c.GetHeader(userIDHeader))
		default:
			raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
			if !ok {
				response.Unauthorized(c, "Missing bearer token")
				c.Abort()
				return
			}
			claims, err := ValidateToken(secret, strings.TrimSpace(raw))
			if err != nil {
				response.Unauthorized(c, "Invalid token")
				c.Abort()
				return
			}
			userID = claims.UserID
		}

		if userID == "" {
			response.Unauthorized(c, "Missing user")
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the user resolved by Auth, or "" when unauthenticated
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
