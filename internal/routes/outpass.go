package routes

import (
	"log/slog"
	"net/http"

	. "outpass-control/internal/config"
	"outpass-control/internal/outpass"
	"outpass-control/internal/storage"
	"outpass-control/internal/utils"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

// Student-facing outpass routes.

func OutpassRoutes(r *gin.RouterGroup) {
	// Submit a new request
	r.POST("/", RequirePermission("outpass", "create"), func(c *gin.Context) {
		var in outpass.SubmitInput
		if err := c.ShouldBindJSON(&in); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		id, err := svc.Submit(c.Request.Context(), actor, in)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"status": "ok",
			"id":     id,
		})
	})

	// List own requests
	r.GET("/", RequirePermission("outpass", "read"), func(c *gin.Context) {
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		q, err := listQueryFromRequest(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		views, err := svc.List(c.Request.Context(), actor, q)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outpasses": views, "count": len(views)})
	})

	// Counts by effective status, for the dashboard header
	r.GET("/stats", RequirePermission("outpass", "read"), func(c *gin.Context) {
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		counts, err := svc.StatusSummary(c.Request.Context(), actor)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"counts": counts})
	})

	r.GET("/:id", RequirePermission("outpass", "read"), getOutpassHandler)
	r.GET("/:id/audit", RequirePermission("outpass", "read"), auditTrailHandler)

	r.POST("/:id/cancel", RequirePermission("outpass", "cancel"), func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		if err := svc.Cancel(c.Request.Context(), actor, id); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, okMessage("request cancelled"))
	})

	r.POST("/:id/archive", RequirePermission("outpass", "archive"), func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		if err := svc.Archive(c.Request.Context(), actor, id); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, okMessage("request archived"))
	})

	// Pass details for an approved request
	r.GET("/:id/pass", RequirePermission("outpass", "read"), func(c *gin.Context) {
		view, err := fetchPass(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      *view.PassToken,
			"issued_at":  view.PassIssuedAt,
			"expires_at": view.PassExpiresAt,
			"qr_url":     utils.UrlFor(c, r.BasePath()+"/"+c.Param("id")+"/pass.png"),
		})
	})

	// QR image of the pass token, scanned at the gate
	r.GET("/:id/pass.png", RequirePermission("outpass", "read"), func(c *gin.Context) {
		view, err := fetchPass(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		png, err := qrcode.Encode(*view.PassToken, qrcode.Medium, QR_IMAGE_SIZE)
		if err != nil {
			slog.Error("Failed to encode pass QR", "outpass_id", view.ID, "error", err)
			AbortWithError(c, ErrInternalServer)
			return
		}

		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	})
}

// fetchPass loads the record behind :id and checks it carries a usable
// pass token.
func fetchPass(c *gin.Context) (*outpass.View, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	svc, err := GetService(c)
	if err != nil {
		return nil, err
	}
	actor, err := CurrentActor(c)
	if err != nil {
		return nil, ErrUnauthorized
	}

	view, err := svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		return nil, err
	}
	if view.PassToken == nil {
		return nil, outpass.ErrInvalidState
	}
	if view.EffectiveStatus == storage.StatusExpired {
		return nil, outpass.ErrInvalidState
	}
	return view, nil
}

// Shared by the student, review and admin groups.
func getOutpassHandler(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	svc, err := GetService(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	actor, _ := CurrentActor(c)

	view, err := svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func auditTrailHandler(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	svc, err := GetService(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	actor, _ := CurrentActor(c)

	trail, err := svc.AuditTrail(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": trail})
}
