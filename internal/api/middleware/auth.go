package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/propboard/propboard/pkg/utils"
)

// AuthRequired validates the Bearer token and puts the user ID into the
// request context. Requests without a valid token are rejected.
func AuthRequired(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseToken(c, jwtSecret)
		if err != nil {
			utils.SendUnauthorized(c, err.Error())
			c.Abort()
			return
		}

		userID, err := subjectID(claims)
		if err != nil {
			utils.SendUnauthorized(c, err.Error())
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// OptionalAuth sets the user ID when a valid token is present but lets
// anonymous requests through.
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := parseToken(c, jwtSecret); err == nil {
			if userID, err := subjectID(claims); err == nil {
				c.Set("user_id", userID)
			}
		}
		c.Next()
	}
}

// subjectID reads the sub claim as a numeric user ID. Numeric JSON claims
// decode as float64; string subjects are parsed.
func subjectID(claims jwt.MapClaims) (uint, error) {
	switch sub := claims["sub"].(type) {
	case float64:
		return uint(sub), nil
	case string:
		id, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid subject claim")
		}
		return uint(id), nil
	default:
		return 0, fmt.Errorf("missing subject claim")
	}
}

func parseToken(c *gin.Context, jwtSecret string) (jwt.MapClaims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, fmt.Errorf("authorization header required")
	}

	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header {
		return nil, fmt.Errorf("authorization header must use Bearer scheme")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// UserID extracts the authenticated user ID set by AuthRequired.
func UserID(c *gin.Context) (uint, bool) {
	val, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := val.(uint)
	return id, ok && id != 0
}
