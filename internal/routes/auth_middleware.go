// Authentication middleware.
// Checks for a valid session token in the auth cookie. If valid, sets the
// acting user in the context; if invalid, returns 401 Unauthorized.
package routes

import (
	"errors"
	"log/slog"
	"net/http"

	. "outpass-control/internal/config"
	. "outpass-control/internal/jwt"
	"outpass-control/internal/outpass"
	"outpass-control/internal/storage"

	"github.com/gin-gonic/gin"
)

const AUTH_COOKIE_NAME = "auth_token"

const AUTH_FAIL_STATUS = http.StatusUnauthorized

var (
	ErrActorNotFound = errors.New("actor not found in context")
	ErrActorInvalid  = errors.New("actor in context has unexpected type")
)

// Session TTL in seconds
func authTTL() uint {
	return Cfg.SessionTTL * 60 * 60
}

// Set authentication cookie
// The cookie is set to expire when the token expires
func setAuthCookie(c *gin.Context, token string) {
	ttl := authTTL()
	secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"

	c.SetCookie(
		AUTH_COOKIE_NAME,
		token,
		int(ttl),
		"/",
		"",
		secure,
		true,
	)
}

// CurrentActor returns the authenticated caller set by AuthMiddleware.
func CurrentActor(c *gin.Context) (outpass.Actor, error) {
	value, exists := c.Get("actor")
	if !exists {
		return outpass.Actor{}, ErrActorNotFound
	}
	actor, ok := value.(outpass.Actor)
	if !ok {
		slog.Warn("CurrentActor: actor in context has unexpected type")
		return outpass.Actor{}, ErrActorInvalid
	}
	return actor, nil
}

// NewAuth issues a session token for the user and sets the auth cookie.
func NewAuth(c *gin.Context, user *storage.User) error {
	claim := NewSessionClaim(user)
	token, err := GenerateJWT(claim)
	if err != nil {
		return err
	}
	setAuthCookie(c, token)
	return nil
}

func verifyAuth(c *gin.Context) (*SessionClaim, error) {
	token, err := c.Cookie(AUTH_COOKIE_NAME)
	if err != nil {
		return nil, err
	}
	claims, err := DecodeSessionJWT(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func AuthLogout(c *gin.Context) {
	// Clear auth cookie by setting it to expire in the past
	c.SetCookie(
		AUTH_COOKIE_NAME,
		"",
		-1,
		"/",
		"",
		false,
		true,
	)
}

// AuthMiddleware validates the session cookie and stores the actor plus
// claims in the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := verifyAuth(c)
		if err != nil {
			slog.Warn("AuthMiddleware: Invalid or missing auth token", "error", err)
			c.AbortWithStatusJSON(AUTH_FAIL_STATUS, gin.H{
				"error": "unauthorized",
			})
			return
		}

		c.Set("claims", claims)
		c.Set("actor", outpass.Actor{
			ID:     claims.UserID,
			Role:   claims.Role,
			DeptID: claims.DeptID,
		})
		c.Next()
	}
}

func AuthStatusRoutes(r *gin.RouterGroup) {
	// Route to check authentication status
	r.GET("/status", AuthMiddleware(), func(c *gin.Context) {
		claims := c.MustGet("claims").(*SessionClaim)
		c.JSON(http.StatusOK, gin.H{
			"status":   "authenticated",
			"user_id":  claims.UserID,
			"username": claims.Username,
			"role":     claims.Role,
		})
	})

	r.POST("/logout", AuthMiddleware(), func(c *gin.Context) {
		AuthLogout(c)
		c.JSON(http.StatusOK, okMessage("logged out"))
	})
}
