package engine

import "errors"

var ErrNotFound = errors.New("entity not found")
var ErrTenantMismatch = errors.New("entity belongs to a different auctioneer")
var ErrInvalidState = errors.New("operation not valid for current player status")
var ErrAlreadySold = errors.New("player already sold")
var ErrInsufficientBudget = errors.New("team does not have enough budget left")
var ErrNoSlotsAvailable = errors.New("team has no open slots")
var ErrSameTeam = errors.New("player already belongs to that team")
var ErrTeamNotEmpty = errors.New("team still has players")
var ErrConflict = errors.New("lost a concurrent update race")
var ErrOrphanedRecord = errors.New("sold player not found on any team")
var ErrStoreUnavailable = errors.New("ledger store unavailable")

// Code returns the machine-readable name for err's failure kind, for wire
// responses. Unrecognized errors report as store failures: the caller can't
// act on them any more precisely.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTenantMismatch):
		return "tenant_mismatch"
	case errors.Is(err, ErrAlreadySold):
		return "already_sold"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInsufficientBudget):
		return "insufficient_budget"
	case errors.Is(err, ErrNoSlotsAvailable):
		return "no_slots_available"
	case errors.Is(err, ErrSameTeam):
		return "same_team"
	case errors.Is(err, ErrTeamNotEmpty):
		return "team_not_empty"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrOrphanedRecord):
		return "orphaned_record"
	default:
		return "store_unavailable"
	}
}

// Retryable reports whether a caller may reasonably retry the request
// unmodified. Everything else will fail the same way again.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStoreUnavailable)
}
