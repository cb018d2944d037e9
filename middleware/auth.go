package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"quizbank-backend/logger"
)

// EditorContextKey holds the token subject of an authorized editor
const EditorContextKey = "editor"

// RequireEditor admits requests carrying an HS256 bearer token whose claims
// grant admin or editor rights. An empty secret disables the check
func RequireEditor(secret string, log *logger.Logger) gin.HandlerFunc {
	if secret == "" {
		if log != nil {
			log.Warn("AUTH_JWT_SECRET not set, import endpoints are unauthenticated")
		}
		return func(c *gin.Context) { c.Next() }
	}
	key := []byte(secret)

	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			if log != nil {
				log.Debug("rejected token", "error", err)
			}
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}

		if !canEdit(claims) {
			abortAuth(c, http.StatusForbidden, "forbidden", "editor role required")
			return
		}
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			c.Set(EditorContextKey, sub)
		}
		c.Next()
	}
}

func canEdit(claims jwt.MapClaims) bool {
	for _, flag := range []string{"admin", "editor"} {
		if v, ok := claims[flag].(bool); ok && v {
			return true
		}
	}
	role, _ := claims["role"].(string)
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin", "editor":
		return true
	}
	return false
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

func abortAuth(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

// EditorFrom returns the editor subject set by RequireEditor, if any
func EditorFrom(c *gin.Context) (string, error) {
	v, ok := c.Get(EditorContextKey)
	if !ok {
		return "", errors.New("no editor in context")
	}
	s, _ := v.(string)
	return s, nil
}

// IssueEditorToken signs an HS256 token that RequireEditor accepts
func IssueEditorToken(secret, subject, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("AUTH_JWT_SECRET not set")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
