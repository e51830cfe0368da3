package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"outpass-control/internal/config"
)

var (
	// ErrNoRecord is returned when a lookup matches nothing.
	ErrNoRecord = errors.New("record not found")

	// ErrTokenCollision is returned when a pass token insert violates the
	// uniqueness constraint. Two 128-bit random tokens colliding points at
	// a broken entropy source, so callers treat this as fatal.
	ErrTokenCollision = errors.New("pass token collision")

	// ErrDuplicate is returned on unique constraint violations other than
	// the pass token (username, department code).
	ErrDuplicate = errors.New("duplicate record")
)

type Provider interface {
	Close() error
	GetSchemaVersion(ctx context.Context) (int, error)

	// Outpass lifecycle
	CreateOutpass(ctx context.Context, o *Outpass) (int64, error)
	GetOutpass(ctx context.Context, id int64) (*OutpassRecord, error)
	GetOutpassByToken(ctx context.Context, token string) (*OutpassRecord, error)
	ListOutpasses(ctx context.Context, filter OutpassFilter) ([]OutpassRecord, error)

	// TransitionOutpass applies mut to the record iff its stored status
	// still equals from. Returns false when the precondition no longer
	// holds, which is how concurrent decisions are serialized.
	TransitionOutpass(ctx context.Context, id int64, from OutpassStatus, mut OutpassMutation) (bool, error)

	SetOutpassArchived(ctx context.Context, id int64, archived bool) error
	DeleteOutpass(ctx context.Context, id int64) error

	// Audit trail
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, outpassID int64) ([]AuditEntry, error)
	CountMisuse(ctx context.Context, from, to time.Time) (int64, error)

	// Users
	CreateUser(ctx context.Context, u *User) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context, role *Role, deptID *int64) ([]User, error)
	ListStudentsByAdvisor(ctx context.Context, advisorID int64) ([]User, error)
	UpdateUser(ctx context.Context, u *User) error
	SetUserActive(ctx context.Context, id int64, active bool) error
	SetUserPassword(ctx context.Context, id int64, passwordHash string) error
	AssignAdvisor(ctx context.Context, studentID, advisorID int64) error
	DeleteUser(ctx context.Context, id int64) error

	// FindDeptStaff returns any active staff member of the department,
	// used as advisor fallback at submission time.
	FindDeptStaff(ctx context.Context, deptID int64) (*User, error)
	FindDeptHOD(ctx context.Context, deptID int64) (*User, error)

	// Departments
	CreateDepartment(ctx context.Context, d *Department) (int64, error)
	GetDepartment(ctx context.Context, id int64) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	UpdateDepartment(ctx context.Context, d *Department) error
	DeleteDepartment(ctx context.Context, id int64) error

	// Gate stations
	CreateStation(ctx context.Context, s Station) error
	GetStation(ctx context.Context, id string) (*Station, error)
	ListStations(ctx context.Context, status StationStatus) ([]Station, error)
	UpdateStationStatus(ctx context.Context, id string, status StationStatus, approvedBy *int64) error
	PruneStations(ctx context.Context, olderThan time.Time, statusFilter StationStatus) (int64, error)

	// Reporting
	CountOutpassesByStatus(ctx context.Context, from, to time.Time) ([]StatusCount, error)
	CountUsersByRole(ctx context.Context) ([]RoleCount, error)
	DepartmentStats(ctx context.Context, from, to time.Time) ([]DeptStat, error)
	TopReasons(ctx context.Context, from, to time.Time, limit int) ([]ReasonCount, error)
}

func NewProvider(config *config.Storage) Provider {
	switch {
	case config.SQLite != nil:
		provider := NewSQLiteProvider(config)
		if provider == nil {
			slog.Error("Failed to open SQLite storage")
			return nil
		}
		if err := provider.runMigrations("sqlite3"); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			return nil
		}
		return provider

	default:
		slog.Error("Unsupported storage configuration", "config", config)
	}

	return nil
}
