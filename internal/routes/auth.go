package routes

import (
	"log/slog"
	"net/http"

	"outpass-control/internal/access"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func AuthRoutes(r *gin.RouterGroup) {
	r.POST("/login", func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		user, err := store.GetUserByUsername(c.Request.Context(), req.Username)
		if err != nil {
			// Uniform response for unknown user and bad password.
			slog.Warn("Login attempt for unknown user", "username", req.Username)
			AbortWithError(c, ErrInvalidCredentials)
			return
		}

		ok, err := access.VerifyPassword(req.Password, user.PasswordHash)
		if err != nil || !ok {
			slog.Warn("Failed login", "username", req.Username)
			AbortWithError(c, ErrInvalidCredentials)
			return
		}
		if !user.IsActive {
			slog.Warn("Login attempt for disabled account", "username", req.Username)
			AbortWithError(c, ErrAccountDisabled)
			return
		}

		if err := NewAuth(c, user); err != nil {
			slog.Error("Failed to issue session token", "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		slog.Info("User logged in", "user_id", user.ID, "role", user.Role)
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"user_id":  user.ID,
			"username": user.Username,
			"role":     user.Role,
		})
	})

	r.POST("/password", AuthMiddleware(), func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		actor, err := CurrentActor(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		user, err := store.GetUser(c.Request.Context(), actor.ID)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ok, err := access.VerifyPassword(req.CurrentPassword, user.PasswordHash)
		if err != nil || !ok {
			AbortWithError(c, ErrInvalidCredentials)
			return
		}

		hash, err := access.HashPassword(req.NewPassword)
		if err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		if err := store.SetUserPassword(c.Request.Context(), user.ID, hash); err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}

		slog.Info("Password changed", "user_id", user.ID)
		c.JSON(http.StatusOK, okMessage("password changed"))
	})

	AuthStatusRoutes(r)
}
