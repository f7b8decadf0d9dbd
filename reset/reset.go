// Package reset holds the reset-token lifecycle: issuance, delivery hand-off,
// validation and single-use consumption. The api process and the notification
// worker share nothing but the reset_tokens table, so every cross-process
// guarantee here is enforced with conditional updates, never in-process locks.
package reset

import "errors"

// ErrStoreUnavailable wraps any database failure. Callers treat it as
// transient and retry or surface a 5xx.
var ErrStoreUnavailable = errors.New("reset store unavailable")

// ErrPermanentSend marks a delivery failure that retrying will not fix
// (dead chat id, rejected address). Channels wrap their errors with it.
var ErrPermanentSend = errors.New("permanent send failure")

// Outcome of a redemption attempt.
type Outcome int

const (
	OutcomeInvalid Outcome = iota
	OutcomeExpired
	OutcomeAlreadyUsed
	OutcomeOk
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeExpired:
		return "expired"
	case OutcomeAlreadyUsed:
		return "already_used"
	default:
		return "invalid"
	}
}
