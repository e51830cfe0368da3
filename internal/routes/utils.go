package routes

import (
	"strconv"
	"time"

	"outpass-control/internal/outpass"
	"outpass-control/internal/storage"
	"outpass-control/internal/utils"

	"github.com/gin-gonic/gin"
)

// GetStorageProvider fetches the storage provider injected by the server.
func GetStorageProvider(c *gin.Context) (error, storage.Provider) {
	value, exists := c.Get("Storage")
	if !exists {
		return ErrStorageProviderNotFound, nil
	}
	provider, ok := value.(storage.Provider)
	if !ok {
		return utils.ErrInvalidStorageProvider, nil
	}
	return nil, provider
}

// GetService fetches the outpass lifecycle service injected by the server.
func GetService(c *gin.Context) (*outpass.Service, error) {
	value, exists := c.Get("Service")
	if !exists {
		return nil, ErrInternalServer
	}
	svc, ok := value.(*outpass.Service)
	if !ok {
		return nil, ErrInternalServer
	}
	return svc, nil
}

// idParam parses a numeric :id path parameter.
func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidRequest
	}
	return id, nil
}

type successResponse struct {
	Succeed bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func okMessage(message string) successResponse {
	return successResponse{Succeed: true, Status: "ok", Message: message}
}

func listQueryCurrentlyOut() outpass.ListQuery {
	exited := storage.StatusExited
	return outpass.ListQuery{Status: &exited, CurrentlyOut: true}
}

// listQueryFromRequest builds a listing query from the usual filter
// parameters. The service clamps the result to the caller's scope.
func listQueryFromRequest(c *gin.Context) (outpass.ListQuery, error) {
	var q outpass.ListQuery

	if s := c.Query("status"); s != "" {
		status := storage.OutpassStatus(s)
		q.Status = &status
	}
	if d := c.Query("dept_id"); d != "" {
		deptID, err := strconv.ParseInt(d, 10, 64)
		if err != nil {
			return q, ErrInvalidRequest
		}
		q.DeptID = &deptID
	}
	q.CurrentlyOut = c.Query("currently_out") == "true"
	q.ExitRecorded = c.Query("exit_recorded") == "true"
	q.IncludeArchived = c.Query("include_archived") == "true"

	if f := c.Query("from"); f != "" {
		from, err := time.Parse(time.RFC3339, f)
		if err != nil {
			return q, ErrInvalidRequest
		}
		q.CreatedFrom = &from
	}
	if t := c.Query("to"); t != "" {
		to, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return q, ErrInvalidRequest
		}
		q.CreatedTo = &to
	}

	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			return q, ErrInvalidRequest
		}
		q.Limit = limit
	}
	if o := c.Query("offset"); o != "" {
		offset, err := strconv.Atoi(o)
		if err != nil || offset < 0 {
			return q, ErrInvalidRequest
		}
		q.Offset = offset
	}

	return q, nil
}
