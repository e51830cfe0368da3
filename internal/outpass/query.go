package outpass

import (
	"context"
	"fmt"
	"time"

	"outpass-control/internal/storage"
)

// View is an outpass record annotated with its effective status.
type View struct {
	storage.OutpassRecord
	EffectiveStatus storage.OutpassStatus `json:"effective_status"`
}

func (s *Service) view(rec *storage.OutpassRecord, now time.Time) View {
	return View{
		OutpassRecord:   *rec,
		EffectiveStatus: EffectiveStatus(&rec.Outpass, now, s.opts.ExpiryGrace),
	}
}

// canRead reports whether the actor may see the record. Students see only
// their own requests, advisors and HODs only those routed to them, and
// security and admin see everything.
func (s *Service) canRead(actor Actor, rec *storage.OutpassRecord) bool {
	switch actor.Role {
	case storage.RoleStudent:
		return rec.StudentID == actor.ID
	case storage.RoleStaff:
		return rec.AdvisorID == actor.ID
	case storage.RoleHOD:
		return rec.HODID == actor.ID || rec.AdvisorID == actor.ID
	case storage.RoleSecurity, storage.RoleAdmin:
		return true
	}
	return false
}

// Get returns a single outpass, scoped to the actor's role.
func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*View, error) {
	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpass(cctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if !s.canRead(actor, rec) {
		// Hide the record's existence from out-of-scope callers.
		return nil, ErrNotFound
	}

	v := s.view(rec, s.now())
	return &v, nil
}

// ListQuery narrows a listing beyond the actor's implicit scope.
type ListQuery struct {
	Status          *storage.OutpassStatus
	DeptID          *int64
	CurrentlyOut    bool
	ExitRecorded    bool
	IncludeArchived bool
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// List returns outpasses visible to the actor. The filter is forced into
// the actor's scope before it reaches the store, so a student cannot list
// another student's requests no matter what the query says. A query for
// the derived expired status is resolved in memory, pagination included,
// since the store cannot page over a status it never sees.
func (s *Service) List(ctx context.Context, actor Actor, q ListQuery) ([]View, error) {
	filter := storage.OutpassFilter{
		DeptID:          q.DeptID,
		CurrentlyOut:    q.CurrentlyOut,
		ExitRecorded:    q.ExitRecorded,
		IncludeArchived: q.IncludeArchived,
		CreatedFrom:     q.CreatedFrom,
		CreatedTo:       q.CreatedTo,
	}

	wantExpired := q.Status != nil && *q.Status == storage.StatusExpired
	if q.Status != nil && !wantExpired {
		filter.Status = q.Status
	}
	if !wantExpired {
		filter.Limit = q.Limit
		filter.Offset = q.Offset
	}

	switch actor.Role {
	case storage.RoleStudent:
		filter.StudentID = &actor.ID
	case storage.RoleStaff:
		filter.AdvisorID = &actor.ID
	case storage.RoleHOD:
		filter.HODID = &actor.ID
	case storage.RoleSecurity, storage.RoleAdmin:
		// Unscoped.
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	records, err := s.store.ListOutpasses(cctx, filter)
	if err != nil {
		return nil, s.storeErr(err)
	}

	now := s.now()
	views := make([]View, 0, len(records))
	for i := range records {
		v := s.view(&records[i], now)
		if wantExpired && v.EffectiveStatus != storage.StatusExpired {
			continue
		}
		views = append(views, v)
	}
	if wantExpired {
		if q.Offset > 0 {
			if q.Offset >= len(views) {
				views = views[:0]
			} else {
				views = views[q.Offset:]
			}
		}
		if q.Limit > 0 && len(views) > q.Limit {
			views = views[:q.Limit]
		}
	}
	return views, nil
}

// GateSummary is the day snapshot shown on the security dashboard.
type GateSummary struct {
	Date         string `json:"date"`
	ExitsToday   int    `json:"exits_today"`
	EntriesToday int    `json:"entries_today"`
	CurrentlyOut int    `json:"currently_out"`
}

// BuildGateSummary counts today's gate movements. Security and admin only.
func (s *Service) BuildGateSummary(ctx context.Context, actor Actor) (*GateSummary, error) {
	if actor.Role != storage.RoleSecurity && actor.Role != storage.RoleAdmin {
		return nil, fmt.Errorf("%w: security role required", ErrForbidden)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	records, err := s.store.ListOutpasses(cctx, storage.OutpassFilter{
		ExitRecorded:    true,
		IncludeArchived: true,
	})
	if err != nil {
		return nil, s.storeErr(err)
	}

	now := s.now()
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	sum := &GateSummary{Date: dayStart.Format("2006-01-02")}
	for i := range records {
		o := &records[i].Outpass
		if o.ExitAt != nil && !o.ExitAt.Before(dayStart) {
			sum.ExitsToday++
		}
		if o.EntryAt != nil && !o.EntryAt.Before(dayStart) {
			sum.EntriesToday++
		}
		if o.ExitAt != nil && o.EntryAt == nil {
			sum.CurrentlyOut++
		}
	}
	return sum, nil
}

// StatusSummary tallies the requests visible to the actor by effective
// status, for the role dashboards.
func (s *Service) StatusSummary(ctx context.Context, actor Actor) (map[storage.OutpassStatus]int, error) {
	views, err := s.List(ctx, actor, ListQuery{})
	if err != nil {
		return nil, err
	}
	counts := make(map[storage.OutpassStatus]int)
	for i := range views {
		counts[views[i].EffectiveStatus]++
	}
	return counts, nil
}

// Archive hides a finished request from the student's default listing. The
// record and its audit trail stay intact.
func (s *Service) Archive(ctx context.Context, actor Actor, id int64) error {
	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpass(cctx, id)
	if err != nil {
		return s.storeErr(err)
	}
	if actor.Role != storage.RoleAdmin && rec.StudentID != actor.ID {
		return fmt.Errorf("%w: not your request", ErrForbidden)
	}
	if !IsTerminal(&rec.Outpass, s.now(), s.opts.ExpiryGrace) {
		return fmt.Errorf("%w: only finished requests can be archived", ErrInvalidState)
	}

	if err := s.store.SetOutpassArchived(cctx, id, true); err != nil {
		return s.storeErr(err)
	}

	s.audit(ctx, storage.AuditEntry{
		OutpassID: id,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    storage.AuditArchived,
		FromState: string(rec.Status),
		ToState:   string(rec.Status),
		Remarks:   "Archived",
	})
	return nil
}

// HardDelete removes the record and its audit trail permanently. Admin
// only, and only once the request has reached a final disposition.
func (s *Service) HardDelete(ctx context.Context, actor Actor, id int64) error {
	if actor.Role != storage.RoleAdmin {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpass(cctx, id)
	if err != nil {
		return s.storeErr(err)
	}
	if !IsTerminal(&rec.Outpass, s.now(), s.opts.ExpiryGrace) {
		return fmt.Errorf("%w: cannot delete a request that is still in flight", ErrInvalidState)
	}

	if err := s.store.DeleteOutpass(cctx, id); err != nil {
		return s.storeErr(err)
	}
	s.logger.Info("Outpass hard-deleted", "outpass_id", id, "admin_id", actor.ID)
	return nil
}

// AuditTrail returns the lifecycle history of a request, scoped like Get.
func (s *Service) AuditTrail(ctx context.Context, actor Actor, id int64) ([]storage.AuditEntry, error) {
	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpass(cctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if !s.canRead(actor, rec) {
		return nil, ErrNotFound
	}

	entries, err := s.store.ListAudit(cctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return entries, nil
}

// Report is the aggregate view for the admin dashboard.
type Report struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	ByStatus     []storage.StatusCount `json:"by_status"`
	ByRole       []storage.RoleCount   `json:"by_role"`
	ByDepartment []storage.DeptStat    `json:"by_department"`
	TopReasons   []storage.ReasonCount `json:"top_reasons"`
	MisuseCount  int64                 `json:"misuse_count"`
}

// BuildReport aggregates outpass activity over a period. Admin and HOD
// callers only; HODs get the same shape, the per-department rows carry
// the breakdown they care about.
func (s *Service) BuildReport(ctx context.Context, actor Actor, from, to time.Time) (*Report, error) {
	if actor.Role != storage.RoleAdmin && actor.Role != storage.RoleHOD {
		return nil, fmt.Errorf("%w: admin or HOD role required", ErrForbidden)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: report period is empty", ErrValidation)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	report := &Report{From: from, To: to}

	var err error
	if report.ByStatus, err = s.store.CountOutpassesByStatus(cctx, from, to); err != nil {
		return nil, s.storeErr(err)
	}
	if report.ByRole, err = s.store.CountUsersByRole(cctx); err != nil {
		return nil, s.storeErr(err)
	}
	if report.ByDepartment, err = s.store.DepartmentStats(cctx, from, to); err != nil {
		return nil, s.storeErr(err)
	}
	if report.TopReasons, err = s.store.TopReasons(cctx, from, to, 10); err != nil {
		return nil, s.storeErr(err)
	}
	if report.MisuseCount, err = s.store.CountMisuse(cctx, from, to); err != nil {
		return nil, s.storeErr(err)
	}
	return report, nil
}
