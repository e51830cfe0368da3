package outpass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"outpass-control/internal/storage"
)

// Actor identifies the authenticated caller of an operation, as supplied
// by the identity layer.
type Actor struct {
	ID     int64
	Role   storage.Role
	DeptID *int64
}

// Decision is an approver's verdict on a pending request.
type Decision struct {
	Approve bool   `json:"approve"`
	Remarks string `json:"remarks"`
}

// Notifier delivers lifecycle notifications. Implementations must not
// block the transition; failures are logged, never surfaced.
type Notifier interface {
	OutpassSubmitted(rec *storage.OutpassRecord, advisor *storage.User)
	OutpassDecided(rec *storage.OutpassRecord, student *storage.User, stage string, approved bool, remarks string)
}

type Options struct {
	// ScheduleWindow bounds how far ahead a departure may be requested.
	ScheduleWindow time.Duration
	// ExpiryGrace is added to the departure time before a still-pending
	// request reads as expired.
	ExpiryGrace time.Duration
	// PassExpirySkew is added to the expected return time to form the
	// pass token expiry.
	PassExpirySkew time.Duration
	// StoreTimeout bounds every storage call.
	StoreTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.ScheduleWindow == 0 {
		o.ScheduleWindow = 30 * 24 * time.Hour
	}
	if o.ExpiryGrace == 0 {
		o.ExpiryGrace = 6 * time.Hour
	}
	if o.PassExpirySkew == 0 {
		o.PassExpirySkew = time.Hour
	}
	if o.StoreTimeout == 0 {
		o.StoreTimeout = 5 * time.Second
	}
}

// Service owns the outpass lifecycle: every legal state transition goes
// through exactly one method here, and each transition is a single
// conditional update against the store.
type Service struct {
	store    storage.Provider
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	opts     Options
}

func NewService(store storage.Provider, notifier Notifier, opts Options) *Service {
	opts.withDefaults()
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   slog.With("component", "outpass"),
		now:      time.Now,
		opts:     opts,
	}
}

func (s *Service) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.opts.StoreTimeout)
}

// storeErr folds storage failures into the service error taxonomy.
func (s *Service) storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNoRecord):
		return ErrNotFound
	case errors.Is(err, storage.ErrTokenCollision):
		return fmt.Errorf("%w: pass token collision", ErrFatal)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: store call timed out", ErrUnavailable)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func (s *Service) audit(ctx context.Context, entry storage.AuditEntry) {
	cctx, cancel := s.ctx(ctx)
	defer cancel()
	if err := s.store.AppendAudit(cctx, entry); err != nil {
		s.logger.Error("Failed to append audit entry",
			"outpass_id", entry.OutpassID, "action", entry.Action, "error", err)
	}
}

// Submit creates a new request in pending_advisor state. The advisor is
// resolved from the student's profile, falling back to any active staff
// member of the department.
func (s *Service) Submit(ctx context.Context, actor Actor, in SubmitInput) (int64, error) {
	if actor.Role != storage.RoleStudent {
		return 0, fmt.Errorf("%w: only students may submit outpass requests", ErrForbidden)
	}
	if err := validateContent(in); err != nil {
		return 0, err
	}

	now := s.now()
	departAt, returnAt, err := parseSchedule(in, now, s.opts.ScheduleWindow)
	if err != nil {
		return 0, err
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	student, err := s.store.GetUser(cctx, actor.ID)
	if err != nil {
		return 0, s.storeErr(err)
	}
	if student.DeptID == nil {
		return 0, fmt.Errorf("%w: student has no department", ErrValidation)
	}

	advisorID := student.AdvisorID
	if advisorID == nil {
		staff, err := s.store.FindDeptStaff(cctx, *student.DeptID)
		if err != nil {
			if errors.Is(err, storage.ErrNoRecord) {
				return 0, fmt.Errorf("%w: no advisor available in your department", ErrValidation)
			}
			return 0, s.storeErr(err)
		}
		advisorID = &staff.ID
	}

	hod, err := s.store.FindDeptHOD(cctx, *student.DeptID)
	if err != nil {
		if errors.Is(err, storage.ErrNoRecord) {
			return 0, fmt.Errorf("%w: no HOD configured for your department", ErrValidation)
		}
		return 0, s.storeErr(err)
	}

	record := &storage.Outpass{
		StudentID:   actor.ID,
		AdvisorID:   *advisorID,
		HODID:       hod.ID,
		DepartAt:    departAt,
		ReturnAt:    returnAt,
		Reason:      strings.TrimSpace(in.Reason),
		Destination: strings.TrimSpace(in.Destination),
	}

	id, err := s.store.CreateOutpass(cctx, record)
	if err != nil {
		return 0, s.storeErr(err)
	}

	s.audit(ctx, storage.AuditEntry{
		OutpassID: id,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    storage.AuditCreated,
		ToState:   string(storage.StatusPendingAdvisor),
		Remarks:   "Outpass request created",
	})

	s.logger.Info("Outpass submitted", "outpass_id", id, "student_id", actor.ID, "advisor_id", *advisorID)

	if s.notifier != nil {
		if rec, err := s.store.GetOutpass(cctx, id); err == nil {
			if advisor, err := s.store.GetUser(cctx, *advisorID); err == nil {
				go s.notifier.OutpassSubmitted(rec, advisor)
			}
		}
	}

	return id, nil
}

// AdvisorDecide records the first-stage decision. Approval moves the
// request to the HOD queue; rejection is terminal.
func (s *Service) AdvisorDecide(ctx context.Context, actor Actor, outpassID int64, decision Decision) error {
	if actor.Role != storage.RoleStaff && actor.Role != storage.RoleHOD {
		return fmt.Errorf("%w: advisor role required", ErrForbidden)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpass(cctx, outpassID)
	if err != nil {
		return s.storeErr(err)
	}
	if rec.AdvisorID != actor.ID {
		return fmt.Errorf("%w: not the assigned advisor", ErrForbidden)
	}
	if rec.Status != storage.StatusPendingAdvisor {
		return fmt.Errorf("%w: request is %s", ErrInvalidState, rec.Status)
	}

	remarks := strings.TrimSpace(decision.Remarks)
	now := s.now()

	var to storage.OutpassStatus
	var stage storage.StageStatus
	var action string

	if decision.Approve {
		to = storage.StatusPendingHOD
		stage = storage.StageApproved
		action = storage.AuditAdvisorApproved
		if remarks == "" {
			remarks = "Approved by advisor"
		}
	} else {
		if remarks == "" {
			return fmt.Errorf("%w: remarks are required for rejection", ErrValidation)
		}
		to = storage.StatusRejected
		stage = storage.StageRejected
		action = storage.AuditAdvisorRejected
	}

	ok, err := s.store.TransitionOutpass(cctx, outpassID, storage.StatusPendingAdvisor, storage.OutpassMutation{
		Status:          to,
		AdvisorStatus:   &stage,
		AdvisorRemarks:  &remarks,
		AdvisorActionAt: &now,
	})
	if err != nil {
		return s.storeErr(err)
	}
	if !ok {
		return fmt.Errorf("%w: request was decided concurrently", ErrInvalidState)
	}

	s.audit(ctx, storage.AuditEntry{
		OutpassID: outpassID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    action,
		FromState: string(storage.StatusPendingAdvisor),
		ToState:   string(to),
		Remarks:   remarks,
	})

	s.notifyDecision(cctx, outpassID, "advisor", decision.Approve, remarks)
	return nil
}

// HODDecide records the final decision. Approval issues the pass token.
func (s *Service) HODDecide(ctx context.Context, actor Actor, outpassID int64, decision Decision) (string, error) {
	if actor.Role != storage.RoleHOD {
		return "", fmt.Errorf("%w: HOD role required", ErrForbidden)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpass(cctx, outpassID)
	if err != nil {
		return "", s.storeErr(err)
	}
	if rec.HODID != actor.ID {
		return "", fmt.Errorf("%w: request belongs to another department's HOD", ErrForbidden)
	}
	if actor.DeptID == nil || rec.StudentDeptID == nil || *actor.DeptID != *rec.StudentDeptID {
		return "", fmt.Errorf("%w: department mismatch", ErrForbidden)
	}
	if rec.Status != storage.StatusPendingHOD {
		return "", fmt.Errorf("%w: request is %s", ErrInvalidState, rec.Status)
	}
	// The state machine guarantees this, but a contradictory record is
	// exactly what must never pass silently.
	if rec.AdvisorStatus != storage.StageApproved {
		return "", fmt.Errorf("%w: pending_hod with advisor_status=%s", ErrFatal, rec.AdvisorStatus)
	}

	remarks := strings.TrimSpace(decision.Remarks)
	now := s.now()

	mut := storage.OutpassMutation{
		HODActionAt: &now,
		HODRemarks:  &remarks,
	}

	var token string
	var action string

	if decision.Approve {
		if remarks == "" {
			remarks = "Approved by HOD"
			mut.HODRemarks = &remarks
		}
		token, err = generateToken()
		if err != nil {
			return "", err
		}
		stage := storage.StageApproved
		expires := rec.ReturnAt.Add(s.opts.PassExpirySkew)
		mut.Status = storage.StatusApproved
		mut.HODStatus = &stage
		mut.PassToken = &token
		mut.PassIssuedAt = &now
		mut.PassExpiresAt = &expires
		action = storage.AuditHODApproved
	} else {
		if remarks == "" {
			return "", fmt.Errorf("%w: remarks are required for rejection", ErrValidation)
		}
		stage := storage.StageRejected
		mut.Status = storage.StatusRejected
		mut.HODStatus = &stage
		action = storage.AuditHODRejected
	}

	ok, err := s.store.TransitionOutpass(cctx, outpassID, storage.StatusPendingHOD, mut)
	if err != nil {
		return "", s.storeErr(err)
	}
	if !ok {
		return "", fmt.Errorf("%w: request was decided concurrently", ErrInvalidState)
	}

	s.audit(ctx, storage.AuditEntry{
		OutpassID: outpassID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    action,
		FromState: string(storage.StatusPendingHOD),
		ToState:   string(mut.Status),
		Remarks:   remarks,
	})

	s.notifyDecision(cctx, outpassID, "hod", decision.Approve, remarks)
	return token, nil
}

// Cancel withdraws a request. Only the owning student may cancel, and only
// while the advisor has not yet decided.
func (s *Service) Cancel(ctx context.Context, actor Actor, outpassID int64) error {
	if actor.Role != storage.RoleStudent {
		return fmt.Errorf("%w: only students may cancel", ErrForbidden)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpass(cctx, outpassID)
	if err != nil {
		return s.storeErr(err)
	}
	if rec.StudentID != actor.ID {
		return fmt.Errorf("%w: not your request", ErrForbidden)
	}
	if rec.Status != storage.StatusPendingAdvisor {
		return fmt.Errorf("%w: request is %s", ErrInvalidState, rec.Status)
	}

	ok, err := s.store.TransitionOutpass(cctx, outpassID, storage.StatusPendingAdvisor, storage.OutpassMutation{
		Status: storage.StatusCancelled,
	})
	if err != nil {
		return s.storeErr(err)
	}
	if !ok {
		return fmt.Errorf("%w: request was decided concurrently", ErrInvalidState)
	}

	s.audit(ctx, storage.AuditEntry{
		OutpassID: outpassID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    storage.AuditCancelled,
		FromState: string(storage.StatusPendingAdvisor),
		ToState:   string(storage.StatusCancelled),
		Remarks:   "Cancelled by student",
	})
	return nil
}

func (s *Service) notifyDecision(ctx context.Context, outpassID int64, stage string, approved bool, remarks string) {
	if s.notifier == nil {
		return
	}
	rec, err := s.store.GetOutpass(ctx, outpassID)
	if err != nil {
		return
	}
	student, err := s.store.GetUser(ctx, rec.StudentID)
	if err != nil {
		return
	}
	go s.notifier.OutpassDecided(rec, student, stage, approved, remarks)
}
