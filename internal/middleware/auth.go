package middleware

import (
	"errors"
	"net/http"
	"strings"

	"legaldocs/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin      = "admin"
	RoleLawyer     = "lawyer"
	RoleTranslator = "translator"
	RoleReviewer   = "reviewer"
)

// Context keys set by the auth middleware.
const (
	ActorIDKey  = "actorID"
	UserRoleKey = "userRole"
)

// Auth verifies HS256 bearer tokens issued elsewhere. The token carries the
// actor id in "sub" and a single role in "role".
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// Authenticate accepts any valid token.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return a.RequireRole()
}

// RequireRole validates the JWT token and checks the role claim against
// allowedRoles. With no roles given, any authenticated caller passes.
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		claims, err := a.parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		actorID, _ := claims["sub"].(string)
		userRole, ok := claims["role"].(string)
		if !ok || userRole == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		}

		if len(allowedRoles) > 0 && !contains(allowedRoles, userRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ActorIDKey, actorID)
		c.Set(UserRoleKey, userRole)
		c.Next()
	}
}

func (a *Auth) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ActorID returns the authenticated actor, or "" on public routes.
func ActorID(c *gin.Context) string {
	return c.GetString(ActorIDKey)
}

func UserRole(c *gin.Context) string {
	return c.GetString(UserRoleKey)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
