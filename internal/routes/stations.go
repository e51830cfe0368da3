package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	. "outpass-control/internal/config"
	app "outpass-control/internal/jwt"
	"outpass-control/internal/storage"
	"outpass-control/internal/utils"

	"github.com/gin-gonic/gin"
)

// Gate station provisioning. A new scanner registers itself and lands in
// a pending pool; an admin approves it from the provisioning QR shown on
// the station screen, or from the station list.

type registrationResponse struct {
	Status    string `json:"status"`
	StationID string `json:"station_id,omitempty"`
	Message   string `json:"message"`
}

func genProvisioningJWT(stationID string, clientIP string) (string, error) {
	claim := app.NewStationProvisionClaim(stationID, clientIP)
	return app.GenerateJWT(claim)
}

func getProvisioning(c *gin.Context, stationID, name string) (error, storage.Station) {
	if stationID == "" {
		return ErrStationIDRequired, storage.Station{}
	}

	err, store := GetStorageProvider(c)
	if err != nil {
		slog.Error("Failed to get storage provider from context", "error", err)
		return err, storage.Station{}
	}
	ctx := c.Request.Context()

	station, err := store.GetStation(ctx, stationID)
	if err != nil {
		// Station doesn't exist, create it as pending
		slog.Info("New station detected, adding to pending pool", "station_id", stationID)

		newStation := storage.Station{
			ID:       stationID,
			Name:     name,
			ClientIP: c.ClientIP(),
			Status:   storage.StationPending,
		}
		if err := store.CreateStation(ctx, newStation); err != nil {
			slog.Error("Failed to create station", "station_id", stationID, "error", err)
			return fmt.Errorf("%w: %v", ErrInternalServer, err), newStation
		}
		return nil, newStation
	}

	return nil, *station
}

func ProvisioningApi(r *gin.RouterGroup) {

	// Station self-registration. A returning station supplies its old ID;
	// a fresh one gets a new signed ID.
	r.POST("/register", func(c *gin.Context) {
		var err error
		var stationID string

		type registrationRequest struct {
			StationID string `json:"station_id"`
			Name      string `json:"name"`
		}

		var req registrationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Warn("Invalid registration request", "error", err)
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.StationID != "" {
			if !utils.VerifyStationID(req.StationID, []byte(Cfg.Secret)) {
				slog.Warn("Station ID verification failed on registration", "station_id", req.StationID)
				AbortWithError(c, ErrStationIDInvalid)
				return
			}
			stationID = req.StationID
		} else {
			stationID, err = utils.GenerateStationID([]byte(Cfg.Secret))
			if err != nil {
				// Should not happen
				slog.Error("Failed to generate station ID", "error", err)
				AbortWithError(c, ErrInternalServer)
				return
			}
		}

		err, station := getProvisioning(c, stationID, req.Name)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		// Check IP match
		clientIP := c.ClientIP()
		if station.ClientIP != clientIP {
			slog.Warn("Client IP mismatch during station registration",
				"station_id", stationID, "expected_ip", station.ClientIP, "actual_ip", clientIP)
			AbortWithError(c, ErrClientIPMismatch)
			return
		}

		switch station.Status {
		case storage.StationApproved:
			c.JSON(http.StatusOK, registrationResponse{
				Status:    "approved",
				StationID: stationID,
				Message:   "Station is approved",
			})
		case storage.StationPending:
			slog.Info("Station registration pending approval", "station_id", stationID)
			c.JSON(http.StatusAccepted, registrationResponse{
				Status:    "pending",
				StationID: stationID,
				Message:   "Station registration is pending approval",
			})
		case storage.StationRejected:
			slog.Warn("Registration attempt for rejected station", "station_id", stationID)
			AbortWithError(c, ErrStationRejected)
		default:
			AbortWithError(c, fmt.Errorf("unexpected station status during registration"))
		}
	})

	// Provisioning QR payload shown on the station screen. An admin scans
	// it to approve the station without typing the ID.
	r.GET("/qr.json", func(c *gin.Context) {
		stationID := c.Query("station_id")
		clientIP := c.ClientIP()

		if stationID == "" || clientIP == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}
		if !utils.VerifyStationID(stationID, []byte(Cfg.Secret)) {
			AbortWithError(c, ErrStationIDInvalid)
			return
		}

		token, err := genProvisioningJWT(stationID, clientIP)
		if err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}

		provisioningURL := utils.UrlFor(c, r.BasePath()+"/authorize?token="+token)

		c.JSON(http.StatusOK, gin.H{
			"url":        provisioningURL,
			"expires_at": time.Now().Add(5 * time.Minute).Format(time.RFC3339),
		})
	})

	// Approve a pending station from a provisioning token. Requires an
	// authenticated admin session.
	r.POST("/authorize", AuthMiddleware(), RequirePermission("station", "approve"), func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}

		claim, err := app.DecodeStationProvisionJWT(token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		station, err := store.GetStation(c.Request.Context(), claim.StationID)
		if err != nil {
			AbortWithError(c, ErrStationNotFound)
			return
		}
		if station.ClientIP != claim.ClientIP {
			slog.Warn("Provisioning token IP mismatch",
				"station_id", claim.StationID, "token_ip", claim.ClientIP, "station_ip", station.ClientIP)
			AbortWithError(c, ErrClientIPMismatch)
			return
		}

		actor, _ := CurrentActor(c)
		if err := store.UpdateStationStatus(c.Request.Context(), claim.StationID, storage.StationApproved, &actor.ID); err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}

		slog.Info("Station approved", "station_id", claim.StationID, "admin_id", actor.ID)
		c.JSON(http.StatusOK, okMessage("station approved"))
	})
}
