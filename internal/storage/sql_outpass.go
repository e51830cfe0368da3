package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// outpassSelect joins the names most callers need next to the raw row.
const outpassSelect = `
SELECT
    o.*,
    s.full_name AS student_name,
    s.registration_no AS registration_no,
    s.dept_id AS student_dept_id,
    a.full_name AS advisor_name,
    h.full_name AS hod_name,
    d.name AS dept_name,
    d.code AS dept_code
FROM outpasses o
JOIN users s ON o.student_id = s.id
LEFT JOIN users a ON o.advisor_id = a.id
LEFT JOIN users h ON o.hod_id = h.id
LEFT JOIN departments d ON s.dept_id = d.id`

func (p *SQLProvider) CreateOutpass(ctx context.Context, o *Outpass) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO outpasses
		    (student_id, advisor_id, hod_id, depart_at, return_at, reason, destination, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.StudentID, o.AdvisorID, o.HODID, o.DepartAt, o.ReturnAt,
		o.Reason, o.Destination, StatusPendingAdvisor,
	)
	if err != nil {
		return 0, mapRowError(err)
	}
	return res.LastInsertId()
}

func (p *SQLProvider) GetOutpass(ctx context.Context, id int64) (*OutpassRecord, error) {
	var record OutpassRecord
	err := p.db.GetContext(ctx, &record, outpassSelect+` WHERE o.id = ?`, id)
	if err != nil {
		return nil, mapRowError(err)
	}
	return &record, nil
}

func (p *SQLProvider) GetOutpassByToken(ctx context.Context, token string) (*OutpassRecord, error) {
	var record OutpassRecord
	err := p.db.GetContext(ctx, &record, outpassSelect+` WHERE o.pass_token = ?`, token)
	if err != nil {
		return nil, mapRowError(err)
	}
	return &record, nil
}

func (p *SQLProvider) ListOutpasses(ctx context.Context, filter OutpassFilter) ([]OutpassRecord, error) {
	var where []string
	var args []any

	add := func(clause string, value any) {
		where = append(where, clause)
		args = append(args, value)
	}

	if filter.StudentID != nil {
		add("o.student_id = ?", *filter.StudentID)
	}
	if filter.AdvisorID != nil {
		add("o.advisor_id = ?", *filter.AdvisorID)
	}
	if filter.HODID != nil {
		add("o.hod_id = ?", *filter.HODID)
	}
	if filter.DeptID != nil {
		add("s.dept_id = ?", *filter.DeptID)
	}
	if filter.Status != nil {
		add("o.status = ?", *filter.Status)
	}
	if filter.AdvisorStage != nil {
		add("o.advisor_status = ?", *filter.AdvisorStage)
	}
	if filter.HODStage != nil {
		add("o.hod_status = ?", *filter.HODStage)
	}
	if filter.CurrentlyOut {
		where = append(where, "o.exit_at IS NOT NULL AND o.entry_at IS NULL")
	}
	if filter.ExitRecorded {
		where = append(where, "o.exit_at IS NOT NULL")
	}
	if !filter.IncludeArchived {
		where = append(where, "o.archived = 0")
	}
	if filter.CreatedFrom != nil {
		add("o.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("o.created_at < ?", *filter.CreatedTo)
	}

	query := outpassSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC, o.id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	records := []OutpassRecord{}
	if err := p.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, mapRowError(err)
	}
	return records, nil
}

// TransitionOutpass performs the conditional read-modify-write that
// serializes concurrent decisions: the UPDATE only matches when the stored
// status still equals the expected one, so the loser of a race affects zero
// rows and the caller reports the precondition failure.
func (p *SQLProvider) TransitionOutpass(ctx context.Context, id int64, from OutpassStatus, mut OutpassMutation) (bool, error) {
	set := []string{"status = ?", "updated_at = CURRENT_TIMESTAMP"}
	args := []any{mut.Status}

	assign := func(column string, value any) {
		set = append(set, column+" = ?")
		args = append(args, value)
	}

	if mut.AdvisorStatus != nil {
		assign("advisor_status", *mut.AdvisorStatus)
	}
	if mut.AdvisorRemarks != nil {
		assign("advisor_remarks", *mut.AdvisorRemarks)
	}
	if mut.AdvisorActionAt != nil {
		assign("advisor_action_at", *mut.AdvisorActionAt)
	}
	if mut.HODStatus != nil {
		assign("hod_status", *mut.HODStatus)
	}
	if mut.HODRemarks != nil {
		assign("hod_remarks", *mut.HODRemarks)
	}
	if mut.HODActionAt != nil {
		assign("hod_action_at", *mut.HODActionAt)
	}
	if mut.PassToken != nil {
		assign("pass_token", *mut.PassToken)
	}
	if mut.PassIssuedAt != nil {
		assign("pass_issued_at", *mut.PassIssuedAt)
	}
	if mut.PassExpiresAt != nil {
		assign("pass_expires_at", *mut.PassExpiresAt)
	}
	if mut.ExitAt != nil {
		assign("exit_at", *mut.ExitAt)
	}
	if mut.ExitStationID != nil {
		assign("exit_station_id", *mut.ExitStationID)
	}
	if mut.EntryAt != nil {
		assign("entry_at", *mut.EntryAt)
	}
	if mut.EntryStationID != nil {
		assign("entry_station_id", *mut.EntryStationID)
	}

	query := "UPDATE outpasses SET " + strings.Join(set, ", ") + " WHERE id = ? AND status = ?"
	args = append(args, id, from)

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		err = mapRowError(err)
		if mut.PassToken != nil && strings.Contains(err.Error(), "pass_token") {
			return false, ErrTokenCollision
		}
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (p *SQLProvider) SetOutpassArchived(ctx context.Context, id int64, archived bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE outpasses SET archived = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		archived, id)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return nil
}

// DeleteOutpass removes the record and its audit trail in one transaction.
func (p *SQLProvider) DeleteOutpass(ctx context.Context, id int64) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM outpass_audit WHERE outpass_id = ?`, id); err != nil {
		return mapRowError(err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM outpasses WHERE id = ?`, id)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return tx.Commit()
}

func (p *SQLProvider) AppendAudit(ctx context.Context, entry AuditEntry) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO outpass_audit (outpass_id, actor_id, actor_role, action, from_state, to_state, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.OutpassID, entry.ActorID, entry.ActorRole, entry.Action,
		entry.FromState, entry.ToState, entry.Remarks,
	)
	return mapRowError(err)
}

func (p *SQLProvider) ListAudit(ctx context.Context, outpassID int64) ([]AuditEntry, error) {
	entries := []AuditEntry{}
	err := p.db.SelectContext(ctx, &entries, `
		SELECT * FROM outpass_audit WHERE outpass_id = ? ORDER BY created_at DESC, id DESC`,
		outpassID)
	if err != nil {
		return nil, mapRowError(err)
	}
	return entries, nil
}

func (p *SQLProvider) CountMisuse(ctx context.Context, from, to time.Time) (int64, error) {
	query, args, err := buildInQuery(`
		SELECT COUNT(*) FROM outpass_audit
		WHERE action IN (?) AND created_at >= ? AND created_at < ?`,
		MisuseActions, from, to)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := p.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, mapRowError(err)
	}
	return count, nil
}
