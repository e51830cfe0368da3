package storage

import (
	"context"
	"time"
)

func (p *SQLProvider) CreateStation(ctx context.Context, s Station) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO stations (id, name, client_ip, status)
		VALUES (?, ?, ?, ?)`,
		s.ID, s.Name, s.ClientIP, s.Status)
	return mapRowError(err)
}

func (p *SQLProvider) GetStation(ctx context.Context, id string) (*Station, error) {
	var s Station
	if err := p.db.GetContext(ctx, &s, `SELECT * FROM stations WHERE id = ?`, id); err != nil {
		return nil, mapRowError(err)
	}
	return &s, nil
}

func (p *SQLProvider) ListStations(ctx context.Context, status StationStatus) ([]Station, error) {
	stations := []Station{}
	query := `SELECT * FROM stations`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	if err := p.db.SelectContext(ctx, &stations, query, args...); err != nil {
		return nil, mapRowError(err)
	}
	return stations, nil
}

func (p *SQLProvider) UpdateStationStatus(ctx context.Context, id string, status StationStatus, approvedBy *int64) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE stations
		SET status = ?, approved_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		status, approvedBy, id)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return nil
}

// PruneStations removes stale station registrations, typically rejected or
// abandoned pending ones.
func (p *SQLProvider) PruneStations(ctx context.Context, olderThan time.Time, statusFilter StationStatus) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM stations WHERE status = ? AND updated_at < ?`,
		statusFilter, olderThan)
	if err != nil {
		return 0, mapRowError(err)
	}
	return res.RowsAffected()
}
