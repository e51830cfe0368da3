package outpass

import (
	"time"

	"outpass-control/internal/storage"
)

// EffectiveStatus projects the reported status of a record at a point in
// time. Expiry is lazy: the stored status is never rewritten, a request
// that sat in review past its departure date simply reads as expired, as
// does an approved pass whose token outlived its validity window.
func EffectiveStatus(o *storage.Outpass, now time.Time, grace time.Duration) storage.OutpassStatus {
	switch o.Status {
	case storage.StatusPendingAdvisor, storage.StatusPendingHOD:
		if now.After(o.DepartAt.Add(grace)) {
			return storage.StatusExpired
		}
	case storage.StatusApproved:
		if o.PassExpiresAt != nil && now.After(*o.PassExpiresAt) {
			return storage.StatusExpired
		}
	}
	return o.Status
}

// terminal statuses cannot be transitioned out of. Expired is derived and
// therefore checked against the effective status, not this set.
var terminalStatuses = map[storage.OutpassStatus]bool{
	storage.StatusRejected:  true,
	storage.StatusCancelled: true,
	storage.StatusReturned:  true,
}

// IsTerminal reports whether the record has reached a final disposition,
// taking lazy expiry into account.
func IsTerminal(o *storage.Outpass, now time.Time, grace time.Duration) bool {
	if terminalStatuses[o.Status] {
		return true
	}
	return EffectiveStatus(o, now, grace) == storage.StatusExpired
}
