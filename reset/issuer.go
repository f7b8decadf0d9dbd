package reset

import (
	"net/url"
	"strings"
	"time"

	"ariadne/models"
	"ariadne/tools"

	"github.com/google/uuid"
)

// Issuer creates reset tokens. Revoke-old + insert-new runs in one
// transaction so two active tokens for the same account never coexist, even
// under concurrent issue calls.
type Issuer struct {
	store        *Store
	ttl          time.Duration
	frontendBase string
	resetPath    string
	now          func() time.Time
}

func NewIssuer(store *Store, ttl time.Duration, frontendBase, resetPath string) *Issuer {
	if resetPath == "" {
		resetPath = "/reset"
	}
	return &Issuer{
		store:        store,
		ttl:          ttl,
		frontendBase: strings.TrimRight(frontendBase, "/"),
		resetPath:    resetPath,
		now:          time.Now,
	}
}

// SetNow overrides the clock (tests).
func (i *Issuer) SetNow(now func() time.Time) {
	i.now = now
}

// Issue revokes any active token for the account and inserts a fresh pending
// one. It does not send anything; delivery is the worker's job. The returned
// string is the plaintext secret, available only here.
func (i *Issuer) Issue(accountID int64, channel string, recipient string) (*models.ResetToken, string, error) {
	secret := tools.NewResetSecret()
	now := i.now()

	token := models.ResetToken{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TokenHash: tools.EncryptTextSHA512(secret),
		State:     models.RESET_STATE_PENDING,
		Channel:   channel,
		Recipient: recipient,
		Link:      i.Link(secret),
		CreatedAt: now,
		ExpiresAt: now.Add(i.ttl),
	}

	tx := i.store.DB().Begin()
	if tx.Error != nil {
		return nil, "", storeErr(tx.Error)
	}

	if err := i.store.RevokeActiveForAccount(tx, accountID); err != nil {
		tx.Rollback()
		return nil, "", err
	}
	if err := tx.Create(&token).Error; err != nil {
		tx.Rollback()
		return nil, "", storeErr(err)
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, "", storeErr(err)
	}

	return &token, secret, nil
}

// Link builds the reset URL delivered to the user.
func (i *Issuer) Link(secret string) string {
	return i.frontendBase + i.resetPath + "?token=" + url.QueryEscape(secret)
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
