package routes

import (
	"log/slog"
	"net/http"
	"strconv"

	. "outpass-control/internal/config"
	"outpass-control/internal/outpass"
	"outpass-control/internal/storage"
	"outpass-control/internal/utils"

	"github.com/gin-gonic/gin"
)

const STATION_HEADER = "X-Station-ID"

type scanRequest struct {
	Token string `json:"token" binding:"required"`
}

// RequireStation validates the scanner station header: the ID must carry
// a valid signature and the station must be approved. The station ID is
// stored in the context for scan handlers.
func RequireStation() gin.HandlerFunc {
	return func(c *gin.Context) {
		stationID := c.GetHeader(STATION_HEADER)
		if stationID == "" {
			AbortWithError(c, ErrStationIDRequired)
			return
		}
		if !utils.VerifyStationID(stationID, []byte(Cfg.Secret)) {
			slog.Warn("Station ID verification failed", "station_id", stationID)
			AbortWithError(c, ErrStationIDInvalid)
			return
		}

		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		station, err := store.GetStation(c.Request.Context(), stationID)
		if err != nil {
			AbortWithError(c, ErrStationNotFound)
			return
		}

		switch station.Status {
		case storage.StationApproved:
			c.Set("stationID", stationID)
			c.Next()
		case storage.StationPending:
			AbortWithError(c, ErrStationPendingApproval)
		case storage.StationRejected:
			AbortWithError(c, ErrStationRejected)
		default:
			slog.Error("Unknown station status", "station_id", stationID, "status", station.Status)
			AbortWithError(c, ErrInternalServer)
		}
	}
}

// Gate routes used by security staff at scanner stations.
func GateRoutes(r *gin.RouterGroup) {
	// Preview a scanned pass without committing anything
	r.GET("/verify/:token", RequirePermission("pass", "verify"), func(c *gin.Context) {
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		result, err := svc.Verify(c.Request.Context(), actor, c.Param("token"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"outpass":          result.Outpass,
			"effective_status": result.Effective,
			"usable":           result.Usable,
		})
	})

	r.POST("/exit", RequirePermission("pass", "record_exit"), RequireStation(), func(c *gin.Context) {
		var req scanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		rec, err := svc.RecordExit(c.Request.Context(), actor, req.Token, c.GetString("stationID"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"outpass": rec,
		})
	})

	r.POST("/entry", RequirePermission("pass", "record_entry"), RequireStation(), func(c *gin.Context) {
		var req scanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		rec, err := svc.RecordEntry(c.Request.Context(), actor, req.Token, c.GetString("stationID"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"outpass": rec,
		})
	})

	// Students currently outside the campus
	r.GET("/out", RequirePermission("outpass", "read"), func(c *gin.Context) {
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		views, err := svc.List(c.Request.Context(), actor, listQueryCurrentlyOut())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outpasses": views, "count": len(views)})
	})

	// Latest gate movements, newest first
	r.GET("/recent", RequirePermission("outpass", "read"), func(c *gin.Context) {
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		limit := 20
		if l := c.Query("limit"); l != "" {
			limit, err = strconv.Atoi(l)
			if err != nil || limit <= 0 {
				AbortWithError(c, ErrInvalidRequest)
				return
			}
		}

		views, err := svc.List(c.Request.Context(), actor, outpass.ListQuery{
			ExitRecorded: true,
			Limit:        limit,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outpasses": views, "count": len(views)})
	})

	// Today's exit/entry counts for the security dashboard
	r.GET("/today", RequirePermission("outpass", "read"), func(c *gin.Context) {
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		summary, err := svc.BuildGateSummary(c.Request.Context(), actor)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}
