package outpass

import (
	"context"
	"fmt"

	"outpass-control/internal/storage"
)

// VerifyResult is what a gate scanner sees for a scanned token.
type VerifyResult struct {
	Outpass *storage.OutpassRecord
	// Effective is the status after lazy expiry is applied.
	Effective storage.OutpassStatus
	// Usable reports whether the token would currently be accepted at
	// either gate direction.
	Usable bool
}

// Verify resolves a pass token without changing any state. Security staff
// use it to preview a pass before committing a scan.
func (s *Service) Verify(ctx context.Context, actor Actor, token string) (*VerifyResult, error) {
	if actor.Role != storage.RoleSecurity && actor.Role != storage.RoleAdmin {
		return nil, fmt.Errorf("%w: security role required", ErrForbidden)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty pass token", ErrValidation)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpassByToken(cctx, token)
	if err != nil {
		return nil, s.storeErr(err)
	}

	effective := EffectiveStatus(&rec.Outpass, s.now(), s.opts.ExpiryGrace)
	usable := effective == storage.StatusApproved || effective == storage.StatusExited
	return &VerifyResult{Outpass: rec, Effective: effective, Usable: usable}, nil
}

// RecordExit commits an exit scan. The token must belong to an approved,
// unexpired pass that has not been used before. Expired and reused tokens
// are rejected and logged as misuse.
func (s *Service) RecordExit(ctx context.Context, actor Actor, token, stationID string) (*storage.OutpassRecord, error) {
	if actor.Role != storage.RoleSecurity {
		return nil, fmt.Errorf("%w: security role required", ErrForbidden)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty pass token", ErrValidation)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpassByToken(cctx, token)
	if err != nil {
		return nil, s.storeErr(err)
	}

	now := s.now()

	if rec.Status == storage.StatusExited || rec.Status == storage.StatusReturned {
		s.recordMisuse(ctx, rec, actor, storage.AuditTokenReused, stationID)
		return nil, fmt.Errorf("%w: pass token already used for exit", ErrInvalidState)
	}
	if rec.Status != storage.StatusApproved {
		return nil, fmt.Errorf("%w: pass is %s", ErrInvalidState, rec.Status)
	}
	if rec.PassExpiresAt != nil && now.After(*rec.PassExpiresAt) {
		s.recordMisuse(ctx, rec, actor, storage.AuditTokenExpired, stationID)
		return nil, fmt.Errorf("%w: pass token has expired", ErrInvalidState)
	}

	ok, err := s.store.TransitionOutpass(cctx, rec.ID, storage.StatusApproved, storage.OutpassMutation{
		Status:        storage.StatusExited,
		ExitAt:        &now,
		ExitStationID: &stationID,
	})
	if err != nil {
		return nil, s.storeErr(err)
	}
	if !ok {
		// A concurrent scan won; this one counts as a reuse attempt.
		s.recordMisuse(ctx, rec, actor, storage.AuditTokenReused, stationID)
		return nil, fmt.Errorf("%w: pass token already used for exit", ErrInvalidState)
	}

	s.audit(ctx, storage.AuditEntry{
		OutpassID: rec.ID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    storage.AuditExitRecorded,
		FromState: string(storage.StatusApproved),
		ToState:   string(storage.StatusExited),
		Remarks:   fmt.Sprintf("Exit recorded at station %s", stationID),
	})

	s.logger.Info("Exit recorded", "outpass_id", rec.ID, "station_id", stationID)
	return s.reload(cctx, rec.ID)
}

// RecordEntry commits the return scan. Only valid once an exit has been
// recorded. A late return is still accepted so the record closes cleanly;
// the timestamps show the overstay.
func (s *Service) RecordEntry(ctx context.Context, actor Actor, token, stationID string) (*storage.OutpassRecord, error) {
	if actor.Role != storage.RoleSecurity {
		return nil, fmt.Errorf("%w: security role required", ErrForbidden)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty pass token", ErrValidation)
	}

	cctx, cancel := s.ctx(ctx)
	defer cancel()

	rec, err := s.store.GetOutpassByToken(cctx, token)
	if err != nil {
		return nil, s.storeErr(err)
	}

	if rec.Status == storage.StatusReturned {
		s.recordMisuse(ctx, rec, actor, storage.AuditTokenReused, stationID)
		return nil, fmt.Errorf("%w: return already recorded", ErrInvalidState)
	}
	if rec.Status != storage.StatusExited {
		return nil, fmt.Errorf("%w: no exit on record, pass is %s", ErrInvalidState, rec.Status)
	}

	now := s.now()
	ok, err := s.store.TransitionOutpass(cctx, rec.ID, storage.StatusExited, storage.OutpassMutation{
		Status:         storage.StatusReturned,
		EntryAt:        &now,
		EntryStationID: &stationID,
	})
	if err != nil {
		return nil, s.storeErr(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: return already recorded", ErrInvalidState)
	}

	s.audit(ctx, storage.AuditEntry{
		OutpassID: rec.ID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    storage.AuditEntryRecorded,
		FromState: string(storage.StatusExited),
		ToState:   string(storage.StatusReturned),
		Remarks:   fmt.Sprintf("Entry recorded at station %s", stationID),
	})

	s.logger.Info("Entry recorded", "outpass_id", rec.ID, "station_id", stationID)
	return s.reload(cctx, rec.ID)
}

func (s *Service) recordMisuse(ctx context.Context, rec *storage.OutpassRecord, actor Actor, action, stationID string) {
	s.logger.Warn("Pass token misuse", "outpass_id", rec.ID, "action", action, "station_id", stationID)
	s.audit(ctx, storage.AuditEntry{
		OutpassID: rec.ID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    action,
		FromState: string(rec.Status),
		ToState:   string(rec.Status),
		Remarks:   fmt.Sprintf("Rejected scan at station %s", stationID),
	})
}

func (s *Service) reload(ctx context.Context, id int64) (*storage.OutpassRecord, error) {
	rec, err := s.store.GetOutpass(ctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return rec, nil
}
