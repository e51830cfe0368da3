package storage

import "time"

// OutpassStatus is the stored lifecycle status of an outpass request.
type OutpassStatus string

const (
	StatusPendingAdvisor OutpassStatus = "pending_advisor"
	StatusPendingHOD     OutpassStatus = "pending_hod"
	StatusApproved       OutpassStatus = "approved"
	StatusRejected       OutpassStatus = "rejected"
	StatusCancelled      OutpassStatus = "cancelled"
	StatusExited         OutpassStatus = "exited"
	StatusReturned       OutpassStatus = "returned"

	// StatusExpired is derived at query time and never written to the
	// status column.
	StatusExpired OutpassStatus = "expired"
)

// StageStatus is the per-approver decision state.
type StageStatus string

const (
	StagePending  StageStatus = "pending"
	StageApproved StageStatus = "approved"
	StageRejected StageStatus = "rejected"
)

type Role string

const (
	RoleStudent  Role = "student"
	RoleStaff    Role = "staff"
	RoleHOD      Role = "hod"
	RoleSecurity Role = "security"
	RoleAdmin    Role = "admin"
)

type Outpass struct {
	ID        int64 `db:"id"`
	StudentID int64 `db:"student_id"`
	AdvisorID int64 `db:"advisor_id"`
	HODID     int64 `db:"hod_id"`

	DepartAt time.Time `db:"depart_at"`
	ReturnAt time.Time `db:"return_at"`

	Reason      string `db:"reason"`
	Destination string `db:"destination"`

	Status OutpassStatus `db:"status"`

	AdvisorStatus   StageStatus `db:"advisor_status"`
	AdvisorRemarks  string      `db:"advisor_remarks"`
	AdvisorActionAt *time.Time  `db:"advisor_action_at"`

	HODStatus   StageStatus `db:"hod_status"`
	HODRemarks  string      `db:"hod_remarks"`
	HODActionAt *time.Time  `db:"hod_action_at"`

	PassToken     *string    `db:"pass_token"`
	PassIssuedAt  *time.Time `db:"pass_issued_at"`
	PassExpiresAt *time.Time `db:"pass_expires_at"`

	ExitAt         *time.Time `db:"exit_at"`
	ExitStationID  *string    `db:"exit_station_id"`
	EntryAt        *time.Time `db:"entry_at"`
	EntryStationID *string    `db:"entry_station_id"`

	Archived  bool      `db:"archived"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OutpassRecord is an outpass row joined with the names a caller usually
// needs alongside it.
type OutpassRecord struct {
	Outpass

	StudentName    string  `db:"student_name"`
	RegistrationNo string  `db:"registration_no"`
	AdvisorName    *string `db:"advisor_name"`
	HODName        *string `db:"hod_name"`
	StudentDeptID  *int64  `db:"student_dept_id"`
	DeptName       *string `db:"dept_name"`
	DeptCode       *string `db:"dept_code"`
}

// OutpassMutation is the set of column changes applied by a state
// transition. Nil pointer fields are left untouched.
type OutpassMutation struct {
	Status OutpassStatus

	AdvisorStatus   *StageStatus
	AdvisorRemarks  *string
	AdvisorActionAt *time.Time

	HODStatus   *StageStatus
	HODRemarks  *string
	HODActionAt *time.Time

	PassToken     *string
	PassIssuedAt  *time.Time
	PassExpiresAt *time.Time

	ExitAt         *time.Time
	ExitStationID  *string
	EntryAt        *time.Time
	EntryStationID *string
}

// OutpassFilter selects outpass rows for listing. Zero-valued fields are
// ignored.
type OutpassFilter struct {
	StudentID *int64
	AdvisorID *int64
	HODID     *int64
	DeptID    *int64

	Status          *OutpassStatus
	AdvisorStage    *StageStatus
	HODStage        *StageStatus
	CurrentlyOut    bool // exit recorded, entry not yet
	ExitRecorded    bool
	IncludeArchived bool

	CreatedFrom *time.Time
	CreatedTo   *time.Time

	Limit  int
	Offset int
}

type User struct {
	ID             int64     `db:"id"`
	Username       string    `db:"username"`
	PasswordHash   string    `db:"password_hash"`
	FullName       string    `db:"full_name"`
	Email          string    `db:"email"`
	Phone          string    `db:"phone"`
	Role           Role      `db:"role"`
	DeptID         *int64    `db:"dept_id"`
	AdvisorID      *int64    `db:"advisor_id"`
	RegistrationNo string    `db:"registration_no"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type Department struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	CreatedAt time.Time `db:"created_at"`
}

// AuditEntry is an append-only record of a lifecycle action. Entries are
// only removed when an admin hard-deletes the parent outpass.
type AuditEntry struct {
	ID        int64     `db:"id"`
	OutpassID int64     `db:"outpass_id"`
	ActorID   int64     `db:"actor_id"`
	ActorRole Role      `db:"actor_role"`
	Action    string    `db:"action"`
	FromState string    `db:"from_state"`
	ToState   string    `db:"to_state"`
	Remarks   string    `db:"remarks"`
	CreatedAt time.Time `db:"created_at"`
}

// Audit actions.
const (
	AuditCreated         = "created"
	AuditAdvisorApproved = "advisor_approved"
	AuditAdvisorRejected = "advisor_rejected"
	AuditHODApproved     = "hod_approved"
	AuditHODRejected     = "hod_rejected"
	AuditCancelled       = "cancelled"
	AuditExitRecorded    = "exit_recorded"
	AuditEntryRecorded   = "entry_recorded"
	AuditArchived        = "archived"
	AuditTokenExpired    = "token_expired"
	AuditTokenReused     = "token_reused"
)

// MisuseActions are the audit actions counted as gate misuse attempts in
// reports.
var MisuseActions = []string{AuditTokenExpired, AuditTokenReused}

type StationStatus string

const (
	StationPending  StationStatus = "pending"
	StationApproved StationStatus = "approved"
	StationRejected StationStatus = "rejected"
)

// Station is a registered security gate scanner.
type Station struct {
	ID         string        `db:"id"`
	Name       string        `db:"name"`
	ClientIP   string        `db:"client_ip"`
	Status     StationStatus `db:"status"`
	ApprovedBy *int64        `db:"approved_by"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

// Report row types.

type StatusCount struct {
	Status OutpassStatus `db:"status"`
	Count  int64         `db:"count"`
}

type RoleCount struct {
	Role        Role  `db:"role"`
	Count       int64 `db:"count"`
	ActiveCount int64 `db:"active_count"`
}

type DeptStat struct {
	DeptName string `db:"dept_name"`
	Total    int64  `db:"total"`
	Approved int64  `db:"approved"`
	Rejected int64  `db:"rejected"`
}

type ReasonCount struct {
	Reason string `db:"reason"`
	Count  int64  `db:"count"`
}
