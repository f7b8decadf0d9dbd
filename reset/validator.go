package reset

import (
	"time"

	"ariadne/models"
	"ariadne/tools"
)

// Validator redeems presented tokens. All the atomicity lives in
// Store.MarkConsumedIfValid; the validator only hashes the presented secret
// (lookup is by indexed hash, so no comparison happens outside the index).
type Validator struct {
	store *Store
	now   func() time.Time
}

func NewValidator(store *Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

// SetNow overrides the clock (tests).
func (v *Validator) SetNow(now func() time.Time) {
	v.now = now
}

// Redemption is the result of a redeem or peek. AccountID is set only when
// Outcome is OutcomeOk.
type Redemption struct {
	Outcome   Outcome
	AccountID int64
}

// Redeem consumes the token. Exactly one of any number of concurrent callers
// presenting the same valid token gets OutcomeOk; the rest get
// OutcomeAlreadyUsed. The returned error is plumbing only (store down) and
// never carries outcome information.
func (v *Validator) Redeem(secret string) (Redemption, error) {
	accountID, outcome, err := v.store.MarkConsumedIfValid(tools.EncryptTextSHA512(secret), v.now())
	if err != nil {
		return Redemption{Outcome: outcome}, err
	}
	return Redemption{Outcome: outcome, AccountID: accountID}, nil
}

// Peek checks a token without consuming it (the GET reset form). Outcome
// semantics match Redeem, but nothing is mutated; the lazy expiry flip only
// happens on a real redeem.
func (v *Validator) Peek(secret string) (Redemption, error) {
	now := v.now()
	t, err := v.store.FindByHash(tools.EncryptTextSHA512(secret))
	if err != nil {
		return Redemption{}, err
	}
	if t == nil {
		return Redemption{Outcome: OutcomeInvalid}, nil
	}
	switch {
	case t.State == models.RESET_STATE_CONSUMED:
		return Redemption{Outcome: OutcomeAlreadyUsed}, nil
	case t.IsExpired(now):
		return Redemption{Outcome: OutcomeExpired}, nil
	case !t.Redeemable(now):
		return Redemption{Outcome: OutcomeInvalid}, nil
	}
	return Redemption{Outcome: OutcomeOk, AccountID: t.AccountID}, nil
}
