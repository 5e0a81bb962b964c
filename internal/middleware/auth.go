package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"retail-backend/internal/model"
	"retail-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const scopeKey = "scope"

var (
	errMissingToken = errors.New("authorization is missing")
	errBadClaims    = errors.New("invalid token claims")
)

// Authenticator turns bearer tokens issued by the session service into a
// model.Scope. Tokens carry sub (user id), role and, for store managers,
// store_id.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// ParseToken validates an HMAC signed token and extracts the caller scope.
func (a *Authenticator) ParseToken(tokenString string) (model.Scope, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Scope{}, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Scope{}, errBadClaims
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return model.Scope{}, fmt.Errorf("%w: sub", errBadClaims)
	}
	role, _ := claims["role"].(string)
	if role != model.RoleOwner && role != model.RoleStoreManager {
		return model.Scope{}, fmt.Errorf("%w: role", errBadClaims)
	}

	scope := model.Scope{UserID: userID, Role: role}
	if raw, _ := claims["store_id"].(string); raw != "" {
		storeID, err := uuid.Parse(raw)
		if err != nil {
			return model.Scope{}, fmt.Errorf("%w: store_id", errBadClaims)
		}
		scope.StoreID = &storeID
	}
	return scope, nil
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
			return cookie, nil
		}
		return "", errMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization format, expected 'Bearer <token>'")
	}
	return parts[1], nil
}

// RequireAuth rejects requests without a valid token and stores the caller
// scope on the context.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}
		scope, err := a.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}
		c.Set(scopeKey, scope)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := ScopeFrom(c)
		for _, role := range allowedRoles {
			if scope.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// ScopeFrom returns the scope stored by RequireAuth, or an empty scope that
// can access nothing.
func ScopeFrom(c *gin.Context) model.Scope {
	if v, ok := c.Get(scopeKey); ok {
		if scope, ok := v.(model.Scope); ok {
			return scope
		}
	}
	return model.Scope{}
}

// WithScope stores scope on the context. Tests use it in place of RequireAuth.
func WithScope(scope model.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(scopeKey, scope)
		c.Next()
	}
}
