package storage

import (
	"context"
	"time"
)

func (p *SQLProvider) CountOutpassesByStatus(ctx context.Context, from, to time.Time) ([]StatusCount, error) {
	counts := []StatusCount{}
	err := p.db.SelectContext(ctx, &counts, `
		SELECT status, COUNT(*) AS count
		FROM outpasses
		WHERE created_at >= ? AND created_at < ?
		GROUP BY status`,
		from, to)
	if err != nil {
		return nil, mapRowError(err)
	}
	return counts, nil
}

func (p *SQLProvider) CountUsersByRole(ctx context.Context) ([]RoleCount, error) {
	counts := []RoleCount{}
	err := p.db.SelectContext(ctx, &counts, `
		SELECT
		    role,
		    COUNT(*) AS count,
		    SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END) AS active_count
		FROM users
		GROUP BY role`)
	if err != nil {
		return nil, mapRowError(err)
	}
	return counts, nil
}

func (p *SQLProvider) DepartmentStats(ctx context.Context, from, to time.Time) ([]DeptStat, error) {
	stats := []DeptStat{}
	err := p.db.SelectContext(ctx, &stats, `
		SELECT
		    d.name AS dept_name,
		    COUNT(o.id) AS total,
		    SUM(CASE WHEN o.status IN ('approved', 'exited', 'returned') THEN 1 ELSE 0 END) AS approved,
		    SUM(CASE WHEN o.status = 'rejected' THEN 1 ELSE 0 END) AS rejected
		FROM departments d
		LEFT JOIN users s ON s.dept_id = d.id AND s.role = 'student'
		LEFT JOIN outpasses o ON o.student_id = s.id
		    AND o.created_at >= ? AND o.created_at < ?
		GROUP BY d.id
		ORDER BY d.name`,
		from, to)
	if err != nil {
		return nil, mapRowError(err)
	}
	return stats, nil
}

func (p *SQLProvider) TopReasons(ctx context.Context, from, to time.Time, limit int) ([]ReasonCount, error) {
	reasons := []ReasonCount{}
	err := p.db.SelectContext(ctx, &reasons, `
		SELECT reason, COUNT(*) AS count
		FROM outpasses
		WHERE created_at >= ? AND created_at < ?
		GROUP BY reason
		ORDER BY count DESC
		LIMIT ?`,
		from, to, limit)
	if err != nil {
		return nil, mapRowError(err)
	}
	return reasons, nil
}
