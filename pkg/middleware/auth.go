package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/huddle-sync/pkg/jwt"
	"github.com/weiawesome/huddle-sync/pkg/response"
)

const (
	UserIDKey      = "user_id"
	UsernameKey    = "username"
	RolesKey       = "roles"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
	TokenQueryKey  = "token"
	InternalKeyHdr = "X-Internal-Key"
)

// TokenValidator validates an access token.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// TokenFromRequest extracts a bearer token from the Authorization header, or
// from the token query parameter for browser websocket clients that cannot
// set headers.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(AuthHeaderKey); strings.HasPrefix(h, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
	}
	return r.URL.Query().Get(TokenQueryKey)
}

// RequireAuth rejects requests without a valid access token and stores the
// caller identity in the gin context.
func RequireAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			response.Unauthorized(c, "missing access token")
			c.Abort()
			return
		}

		claims, err := v.ValidateToken(token)
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Set(RolesKey, claims.Roles)
		c.Next()
	}
}

// RequireInternalKey guards service-to-service endpoints with a shared key.
// An empty key disables the endpoints entirely.
func RequireInternalKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(InternalKeyHdr)
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			response.Forbidden(c, "invalid internal key")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user id set by RequireAuth.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
