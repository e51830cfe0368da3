package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"outpass-control/internal/access"
	. "outpass-control/internal/config"
	"outpass-control/internal/storage"

	"github.com/gin-gonic/gin"
)

// Administration routes: accounts, departments, stations, roster import,
// reports and hard deletion.

type userRequest struct {
	Username       string `json:"username" binding:"required"`
	Password       string `json:"password"`
	FullName       string `json:"full_name" binding:"required"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Role           string `json:"role" binding:"required"`
	DeptID         *int64 `json:"dept_id"`
	AdvisorID      *int64 `json:"advisor_id"`
	RegistrationNo string `json:"registration_no"`
}

type departmentRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

var validRoles = map[storage.Role]bool{
	storage.RoleStudent:  true,
	storage.RoleStaff:    true,
	storage.RoleHOD:      true,
	storage.RoleSecurity: true,
	storage.RoleAdmin:    true,
}

func AdminRoutes(r *gin.RouterGroup) {
	adminUserRoutes(r.Group("/users"))
	adminDepartmentRoutes(r.Group("/departments"))
	adminStationRoutes(r.Group("/stations"))
	adminReportRoutes(r.Group("/reports"))
	adminRosterRoutes(r.Group("/roster"))

	// Full outpass visibility plus hard delete
	r.GET("/outpass", RequirePermission("outpass", "read"), func(c *gin.Context) {
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

	r.GET("/outpass/:id", RequirePermission("outpass", "read"), getOutpassHandler)
	r.GET("/outpass/:id/audit", RequirePermission("outpass", "read"), auditTrailHandler)

	r.DELETE("/outpass/:id", RequirePermission("outpass", "delete"), func(c *gin.Context) {
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

		if err := svc.HardDelete(c.Request.Context(), actor, id); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, okMessage("outpass deleted"))
	})
}

func adminUserRoutes(r *gin.RouterGroup) {
	r.GET("/", RequirePermission("user", "read"), func(c *gin.Context) {
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		var role *storage.Role
		if s := c.Query("role"); s != "" {
			value := storage.Role(s)
			role = &value
		}
		var deptID *int64
		if q, err := listQueryFromRequest(c); err == nil {
			deptID = q.DeptID
		}

		users, err := store.ListUsers(c.Request.Context(), role, deptID)
		if err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		for i := range users {
			users[i].PasswordHash = ""
		}
		c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
	})

	r.POST("/", RequirePermission("user", "create"), func(c *gin.Context) {
		var req userRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if !validRoles[storage.Role(req.Role)] {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.Email != "" {
			if err := access.ValidEmail(req.Email); err != nil {
				AbortWithError(c, ErrInvalidRequest)
				return
			}
		}
		if req.Password == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}

		hash, err := access.HashPassword(req.Password)
		if err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}

		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		user := storage.User{
			Username:       strings.TrimSpace(req.Username),
			PasswordHash:   hash,
			FullName:       req.FullName,
			Email:          req.Email,
			Phone:          req.Phone,
			Role:           storage.Role(req.Role),
			DeptID:         req.DeptID,
			AdvisorID:      req.AdvisorID,
			RegistrationNo: req.RegistrationNo,
			IsActive:       true,
		}
		id, err := store.CreateUser(c.Request.Context(), &user)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				AbortWithHTTPError(c, http.StatusConflict, err, "Username already exists", "DUPLICATE_USERNAME")
				return
			}
			AbortWithError(c, ErrInternalServer)
			return
		}

		slog.Info("User created", "user_id", id, "role", user.Role)
		c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
	})

	r.GET("/:id", RequirePermission("user", "read"), func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		user, err := store.GetUser(c.Request.Context(), id)
		if err != nil {
			AbortWithHTTPError(c, http.StatusNotFound, err, "User not found", "NOT_FOUND")
			return
		}
		user.PasswordHash = ""
		c.JSON(http.StatusOK, user)
	})

	r.PATCH("/:id", RequirePermission("user", "update"), func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}

		type updateRequest struct {
			FullName *string `json:"full_name"`
			Email    *string `json:"email"`
			Phone    *string `json:"phone"`
			DeptID   *int64  `json:"dept_id"`
			Active   *bool   `json:"active"`
		}
		var req updateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ctx := c.Request.Context()

		user, err := store.GetUser(ctx, id)
		if err != nil {
			AbortWithHTTPError(c, http.StatusNotFound, err, "User not found", "NOT_FOUND")
			return
		}

		if req.FullName != nil {
			user.FullName = *req.FullName
		}
		if req.Email != nil {
			if *req.Email != "" {
				if err := access.ValidEmail(*req.Email); err != nil {
					AbortWithError(c, ErrInvalidRequest)
					return
				}
			}
			user.Email = *req.Email
		}
		if req.Phone != nil {
			user.Phone = *req.Phone
		}
		if req.DeptID != nil {
			user.DeptID = req.DeptID
		}

		if err := store.UpdateUser(ctx, user); err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		if req.Active != nil {
			if err := store.SetUserActive(ctx, id, *req.Active); err != nil {
				AbortWithError(c, ErrInternalServer)
				return
			}
		}

		c.JSON(http.StatusOK, okMessage("user updated"))
	})

	// Reset a user's password
	r.POST("/:id/password", RequirePermission("user", "update"), func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}

		type resetRequest struct {
			Password string `json:"password" binding:"required,min=8"`
		}
		var req resetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		hash, err := access.HashPassword(req.Password)
		if err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if err := store.SetUserPassword(c.Request.Context(), id, hash); err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}

		slog.Info("Password reset by admin", "user_id", id)
		c.JSON(http.StatusOK, okMessage("password reset"))
	})

	// Assign an advisor to a student
	r.POST("/:id/advisor", RequirePermission("user", "update"), func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}

		type assignRequest struct {
			AdvisorID int64 `json:"advisor_id" binding:"required"`
		}
		var req assignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if err := store.AssignAdvisor(c.Request.Context(), id, req.AdvisorID); err != nil {
			if errors.Is(err, storage.ErrNoRecord) {
				AbortWithHTTPError(c, http.StatusNotFound, err, "Student not found", "NOT_FOUND")
				return
			}
			AbortWithError(c, ErrInternalServer)
			return
		}
		c.JSON(http.StatusOK, okMessage("advisor assigned"))
	})

	r.DELETE("/:id", RequirePermission("user", "delete"), func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if err := store.DeleteUser(c.Request.Context(), id); err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		slog.Info("User deleted", "user_id", id)
		c.JSON(http.StatusOK, okMessage("user deleted"))
	})
}

func adminDepartmentRoutes(r *gin.RouterGroup) {
	r.GET("/", RequirePermission("department", "read"), func(c *gin.Context) {
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		departments, err := store.ListDepartments(c.Request.Context())
		if err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		c.JSON(http.StatusOK, gin.H{"departments": departments})
	})

	r.POST("/", RequirePermission("department", "create"), func(c *gin.Context) {
		var req departmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		dept := storage.Department{Name: req.Name, Code: strings.ToUpper(req.Code)}
		id, err := store.CreateDepartment(c.Request.Context(), &dept)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				AbortWithHTTPError(c, http.StatusConflict, err, "Department code already exists", "DUPLICATE_CODE")
				return
			}
			AbortWithError(c, ErrInternalServer)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": id})
	})

	r.PATCH("/:id", RequirePermission("department", "update"), func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		var req departmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		dept := storage.Department{ID: id, Name: req.Name, Code: strings.ToUpper(req.Code)}
		if err := store.UpdateDepartment(c.Request.Context(), &dept); err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		c.JSON(http.StatusOK, okMessage("department updated"))
	})

	r.DELETE("/:id", RequirePermission("department", "delete"), func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if err := store.DeleteDepartment(c.Request.Context(), id); err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		c.JSON(http.StatusOK, okMessage("department deleted"))
	})
}

func adminStationRoutes(r *gin.RouterGroup) {
	r.GET("/", RequirePermission("station", "read"), func(c *gin.Context) {
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		stations, err := store.ListStations(c.Request.Context(), storage.StationStatus(c.Query("status")))
		if err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stations": stations})
	})

	setStatus := func(status storage.StationStatus) gin.HandlerFunc {
		return func(c *gin.Context) {
			stationID := c.Param("id")
			err, store := GetStorageProvider(c)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			actor, _ := CurrentActor(c)

			if err := store.UpdateStationStatus(c.Request.Context(), stationID, status, &actor.ID); err != nil {
				if errors.Is(err, storage.ErrNoRecord) {
					AbortWithError(c, ErrStationNotFound)
					return
				}
				AbortWithError(c, ErrInternalServer)
				return
			}
			slog.Info("Station status updated", "station_id", stationID, "status", status, "admin_id", actor.ID)
			c.JSON(http.StatusOK, okMessage("station "+string(status)))
		}
	}

	r.POST("/:id/approve", RequirePermission("station", "approve"), setStatus(storage.StationApproved))
	r.POST("/:id/reject", RequirePermission("station", "approve"), setStatus(storage.StationRejected))

	// Prune stale pending registrations
	r.POST("/prune", RequirePermission("station", "delete"), func(c *gin.Context) {
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		cutoff := time.Now().Add(-24 * time.Hour)
		pruned, err := store.PruneStations(c.Request.Context(), cutoff, storage.StationPending)
		if err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "pruned": pruned})
	})
}

func adminReportRoutes(r *gin.RouterGroup) {
	r.GET("/summary", RequirePermission("report", "read"), func(c *gin.Context) {
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		// Default to the last 30 days
		to := time.Now()
		from := to.AddDate(0, 0, -30)
		if q, err := listQueryFromRequest(c); err == nil {
			if q.CreatedFrom != nil {
				from = *q.CreatedFrom
			}
			if q.CreatedTo != nil {
				to = *q.CreatedTo
			}
		}

		report, err := svc.BuildReport(c.Request.Context(), actor, from, to)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	})
}

func adminRosterRoutes(r *gin.RouterGroup) {
	// Import student accounts from roster CSV exports in the configured
	// folder. Existing students are re-linked, new ones get an account
	// with their registration number as the initial password.
	r.POST("/import", RequirePermission("roster", "import"), func(c *gin.Context) {
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		files, err := access.ScanRosterFolder(Cfg)
		if err != nil {
			AbortWithHTTPError(c, http.StatusBadRequest, err, err.Error(), "ROSTER_FOLDER")
			return
		}

		result := importRoster(c, store, files)
		c.JSON(http.StatusOK, result)
	})
}

type rosterImportResult struct {
	Files    int      `json:"files"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Problems []string `json:"problems,omitempty"`
}

func importRoster(c *gin.Context, store storage.Provider, files []string) rosterImportResult {
	ctx := c.Request.Context()
	result := rosterImportResult{Files: len(files)}

	// Department code -> id
	deptIndex := map[string]int64{}
	if departments, err := store.ListDepartments(ctx); err == nil {
		for _, d := range departments {
			deptIndex[strings.ToUpper(d.Code)] = d.ID
		}
	}

	for _, file := range files {
		entries, err := access.ParseRosterFile(file)
		if err != nil {
			result.Problems = append(result.Problems, file+": "+err.Error())
			continue
		}

		for _, entry := range entries {
			deptID, ok := deptIndex[strings.ToUpper(entry.DeptCode)]
			if !ok {
				result.Skipped++
				result.Problems = append(result.Problems, entry.RegistrationNo+": unknown department "+entry.DeptCode)
				continue
			}

			var advisorID *int64
			if entry.AdvisorUsername != "" {
				if advisor, err := store.GetUserByUsername(ctx, entry.AdvisorUsername); err == nil {
					advisorID = &advisor.ID
				}
			}

			existing, err := store.GetUserByUsername(ctx, entry.RegistrationNo)
			if err == nil {
				existing.FullName = entry.FullName
				existing.Email = entry.Email
				existing.Phone = entry.Phone
				existing.DeptID = &deptID
				if advisorID != nil {
					existing.AdvisorID = advisorID
				}
				if err := store.UpdateUser(ctx, existing); err != nil {
					result.Problems = append(result.Problems, entry.RegistrationNo+": "+err.Error())
					continue
				}
				result.Updated++
				continue
			}

			hash, err := access.HashPassword(entry.RegistrationNo)
			if err != nil {
				result.Problems = append(result.Problems, entry.RegistrationNo+": "+err.Error())
				continue
			}
			user := storage.User{
				Username:       entry.RegistrationNo,
				PasswordHash:   hash,
				FullName:       entry.FullName,
				Email:          entry.Email,
				Phone:          entry.Phone,
				Role:           storage.RoleStudent,
				DeptID:         &deptID,
				AdvisorID:      advisorID,
				RegistrationNo: entry.RegistrationNo,
				IsActive:       true,
			}
			if _, err := store.CreateUser(ctx, &user); err != nil {
				result.Problems = append(result.Problems, entry.RegistrationNo+": "+err.Error())
				continue
			}
			result.Created++
		}
	}

	slog.Info("Roster import finished",
		"files", result.Files, "created", result.Created,
		"updated", result.Updated, "skipped", result.Skipped)
	return result
}
