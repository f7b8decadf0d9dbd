package models

import "time"

// Reset token states. Transitions only move forward:
// pending -> delivered -> consumed, or pending/delivered -> expired | revoked.
// consumed, expired and revoked are terminal.
const (
	RESET_STATE_PENDING   = "pending"
	RESET_STATE_DELIVERED = "delivered"
	RESET_STATE_CONSUMED  = "consumed"
	RESET_STATE_EXPIRED   = "expired"
	RESET_STATE_REVOKED   = "revoked"
)

const (
	RESET_CHANNEL_TELEGRAM = "telegram"
	RESET_CHANNEL_EMAIL    = "email"
)

// ResetToken is one row of the shared reset_tokens table, the single source of
// truth between the api process and the notification worker.
//
// We store only the sha512 HASH of the bearer secret. The composed reset link
// (which carries the plaintext) lives in Link until delivery succeeds, then is
// wiped; a redeemed or expired row keeps nothing recoverable.
type ResetToken struct {
	ID        string `gorm:"primary_key;type:varchar(36)" json:"id"`
	AccountID int64  `gorm:"not null;index:idx_reset_account_state" json:"account_id"`
	TokenHash string `gorm:"not null;unique_index" json:"-"`
	State     string `gorm:"not null;default:'pending';index:idx_reset_account_state" json:"state"`
	Channel   string `gorm:"not null;default:'email'" json:"channel"`

	// Where and what to deliver. Recipient is a chat id or an email address
	// depending on Channel.
	Recipient string `gorm:"not null" json:"-"`
	Link      string `json:"-"`

	SendAttempts     int        `gorm:"not null;default:0" json:"send_attempts"`
	DeliveryFailedAt *time.Time `json:"delivery_failed_at"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	ExpiresAt   time.Time  `gorm:"not null;index" json:"expires_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	ConsumedAt  *time.Time `json:"consumed_at"`
}

func (t ResetToken) IsTerminal() bool {
	switch t.State {
	case RESET_STATE_CONSUMED, RESET_STATE_EXPIRED, RESET_STATE_REVOKED:
		return true
	}
	return false
}

func (t ResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Redeemable reports whether the token could still be consumed. It checks the
// clock itself, so expired-but-unswept rows are never redeemable.
func (t ResetToken) Redeemable(now time.Time) bool {
	if t.State != RESET_STATE_PENDING && t.State != RESET_STATE_DELIVERED {
		return false
	}
	return !t.IsExpired(now)
}
