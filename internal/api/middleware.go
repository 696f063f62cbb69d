package api

import (
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/service"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContextCallerKey holds the service.Caller of an authenticated request.
const ContextCallerKey = "caller"

// jwtClaims mirrors the payload signed by the auth service.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

var (
	errTokenExpired = errors.New("token has expired")
	errTokenInvalid = errors.New("invalid token")
)

// parseToken verifies an HS256 token and returns the identity it carries.
func parseToken(tokenString, jwtSecret string) (service.Caller, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return service.Caller{}, errTokenExpired
		}
		return service.Caller{}, errTokenInvalid
	}
	// Tokens without an expiry are refused rather than treated as eternal
	if !token.Valid || claims.ExpiresAt == nil || !claims.Role.Valid() {
		return service.Caller{}, errTokenInvalid
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return service.Caller{}, errTokenInvalid
	}
	return service.Caller{UserID: userID, Role: claims.Role}, nil
}

// AuthMiddleware requires a valid "Bearer <token>" header and stores the
// caller in the context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}
		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		caller, err := parseToken(tokenString, jwtSecret)
		if errors.Is(err, errTokenExpired) {
			abortWithError(c, http.StatusUnauthorized, "Token has expired")
			return
		}
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		c.Set(ContextCallerKey, caller)
		c.Next()
	}
}

// abortWithError writes the error envelope and stops the handler chain.
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "error": message})
}

// RoleMiddleware only lets the given roles through. It must run after
// AuthMiddleware. Which side of a relationship the caller is on is still
// checked by the service layer.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		for _, allowed := range allowedRoles {
			if caller.Role == allowed {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, fmt.Sprintf("Access denied: Role '%s' does not have permission", caller.Role))
	}
}

// callerFromContext returns the identity set by AuthMiddleware. On failure it
// has already written the response.
func callerFromContext(c *gin.Context) (service.Caller, bool) {
	raw, exists := c.Get(ContextCallerKey)
	caller, ok := raw.(service.Caller)
	if !exists || !ok || caller.UserID == primitive.NilObjectID {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return service.Caller{}, false
	}
	return caller, true
}
