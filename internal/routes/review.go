package routes

import (
	"net/http"

	"outpass-control/internal/outpass"
	"outpass-control/internal/storage"

	"github.com/gin-gonic/gin"
)

// Reviewer routes for the advisor and HOD stages.

func ReviewRoutes(r *gin.RouterGroup) {
	// Pending queue for the calling reviewer. Advisors see the advisor
	// stage, HODs see the HOD stage plus any advisor-stage requests
	// where they are the assigned advisor.
	r.GET("/queue", RequirePermission("outpass", "read"), func(c *gin.Context) {
		svc, err := GetService(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		var pending storage.OutpassStatus
		switch actor.Role {
		case storage.RoleHOD:
			pending = storage.StatusPendingHOD
		default:
			pending = storage.StatusPendingAdvisor
		}

		views, err := svc.List(c.Request.Context(), actor, outpass.ListQuery{Status: &pending})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outpasses": views, "count": len(views)})
	})

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

	// Students assigned to the calling advisor
	r.GET("/students", RequirePermission("roster", "read"), func(c *gin.Context) {
		err, store := GetStorageProvider(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := CurrentActor(c)

		students, err := store.ListStudentsByAdvisor(c.Request.Context(), actor.ID)
		if err != nil {
			AbortWithError(c, ErrInternalServer)
			return
		}
		for i := range students {
			students[i].PasswordHash = ""
		}
		c.JSON(http.StatusOK, gin.H{"students": students, "count": len(students)})
	})

	r.GET("/outpass/:id", RequirePermission("outpass", "read"), getOutpassHandler)
	r.GET("/outpass/:id/audit", RequirePermission("outpass", "read"), auditTrailHandler)

	r.POST("/outpass/:id/advisor-decision", RequirePermission("outpass", "advisor_decide"), func(c *gin.Context) {
		id, decision, svc, actor, err := bindDecision(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if err := svc.AdvisorDecide(c.Request.Context(), actor, id, decision); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, okMessage("decision recorded"))
	})

	r.POST("/outpass/:id/hod-decision", RequirePermission("outpass", "hod_decide"), func(c *gin.Context) {
		id, decision, svc, actor, err := bindDecision(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		token, err := svc.HODDecide(c.Request.Context(), actor, id, decision)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		resp := gin.H{"status": "ok"}
		if token != "" {
			resp["pass_issued"] = true
		}
		c.JSON(http.StatusOK, resp)
	})
}

func bindDecision(c *gin.Context) (int64, outpass.Decision, *outpass.Service, outpass.Actor, error) {
	var decision outpass.Decision

	id, err := idParam(c, "id")
	if err != nil {
		return 0, decision, nil, outpass.Actor{}, err
	}
	if err := c.ShouldBindJSON(&decision); err != nil {
		return 0, decision, nil, outpass.Actor{}, ErrInvalidRequest
	}
	svc, err := GetService(c)
	if err != nil {
		return 0, decision, nil, outpass.Actor{}, err
	}
	actor, err := CurrentActor(c)
	if err != nil {
		return 0, decision, nil, outpass.Actor{}, ErrUnauthorized
	}
	return id, decision, svc, actor, nil
}
