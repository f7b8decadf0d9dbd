package reset

import (
	"fmt"
	"time"

	"ariadne/models"

	"github.com/jinzhu/gorm"
)

// Store is the token store contract over the shared reset_tokens table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

var activeStates = []string{models.RESET_STATE_PENDING, models.RESET_STATE_DELIVERED}

// RevokeActiveForAccount moves any pending/delivered token of the account to
// revoked. Called inside the issuance transaction so there is no window with
// two active tokens.
func (s *Store) RevokeActiveForAccount(tx *gorm.DB, accountID int64) error {
	if tx == nil {
		tx = s.db
	}
	res := tx.Model(&models.ResetToken{}).
		Where("account_id = ? AND state IN (?)", accountID, activeStates).
		Updates(map[string]any{"state": models.RESET_STATE_REVOKED, "link": ""})
	if res.Error != nil {
		return storeErr(res.Error)
	}
	return nil
}

// FetchPending returns up to limit deliverable tokens, oldest first. Rows at
// the attempt cap or flagged as permanently failed stay in the table
// (operator-visible) but are not fetched again.
func (s *Store) FetchPending(limit int, maxAttempts int, now time.Time) ([]models.ResetToken, error) {
	var out []models.ResetToken
	err := s.db.
		Where("state = ?", models.RESET_STATE_PENDING).
		Where("send_attempts < ?", maxAttempts).
		Where("delivery_failed_at IS NULL").
		Where("expires_at > ?", now).
		Order("created_at asc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// ClaimForDelivery is the delivery claim: an optimistic pending -> delivered
// flip guarded by the state predicate. RowsAffected decides the race, so at
// most one worker instance ever claims a given token. A second call (or a
// call for a missing row) returns false with no mutation.
func (s *Store) ClaimForDelivery(id string, now time.Time) (bool, error) {
	res := s.db.Model(&models.ResetToken{}).
		Where("id = ? AND state = ?", id, models.RESET_STATE_PENDING).
		Updates(map[string]any{"state": models.RESET_STATE_DELIVERED, "delivered_at": now})
	if res.Error != nil {
		return false, storeErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReleaseClaim reverts a claimed token to pending after a transient send
// failure and counts the attempt. The token is retried on a later cycle.
func (s *Store) ReleaseClaim(id string) error {
	res := s.db.Model(&models.ResetToken{}).
		Where("id = ? AND state = ?", id, models.RESET_STATE_DELIVERED).
		Updates(map[string]any{
			"state":         models.RESET_STATE_PENDING,
			"delivered_at":  nil,
			"send_attempts": gorm.Expr("send_attempts + 1"),
		})
	if res.Error != nil {
		return storeErr(res.Error)
	}
	return nil
}

// MarkDeliveryFailed flags a claimed token after a permanent send failure.
// The row goes back to pending (still redeemable until expiry if the user got
// the link some other way) but is never fetched for delivery again.
func (s *Store) MarkDeliveryFailed(id string, now time.Time) error {
	res := s.db.Model(&models.ResetToken{}).
		Where("id = ? AND state = ?", id, models.RESET_STATE_DELIVERED).
		Updates(map[string]any{
			"state":              models.RESET_STATE_PENDING,
			"delivered_at":       nil,
			"send_attempts":      gorm.Expr("send_attempts + 1"),
			"delivery_failed_at": now,
		})
	if res.Error != nil {
		return storeErr(res.Error)
	}
	return nil
}

// ClearLink wipes the stored plaintext link once delivery succeeded.
func (s *Store) ClearLink(id string) error {
	res := s.db.Model(&models.ResetToken{}).
		Where("id = ?", id).
		Update("link", "")
	if res.Error != nil {
		return storeErr(res.Error)
	}
	return nil
}

// FindByHash loads a token row by its hash. Returns (nil, nil) when absent.
func (s *Store) FindByHash(tokenHash string) (*models.ResetToken, error) {
	var t models.ResetToken
	err := s.db.Where("token_hash = ?", tokenHash).First(&t).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &t, nil
}

// MarkConsumedIfValid is the atomic redeem: a single conditional update keyed
// on the usable states and the clock. Two concurrent redeemers both reach the
// update; RowsAffected lets exactly one through, the loser gets AlreadyUsed.
// Expiry is checked here too (lazily) so an unswept row past its expires_at
// is transitioned to expired and rejected.
func (s *Store) MarkConsumedIfValid(tokenHash string, now time.Time) (int64, Outcome, error) {
	t, err := s.FindByHash(tokenHash)
	if err != nil {
		return 0, OutcomeInvalid, err
	}
	if t == nil {
		return 0, OutcomeInvalid, nil
	}

	if t.State == models.RESET_STATE_CONSUMED {
		return 0, OutcomeAlreadyUsed, nil
	}

	if t.IsExpired(now) {
		if !t.IsTerminal() {
			res := s.db.Model(&models.ResetToken{}).
				Where("id = ? AND state IN (?)", t.ID, activeStates).
				Updates(map[string]any{"state": models.RESET_STATE_EXPIRED, "link": ""})
			if res.Error != nil {
				return 0, OutcomeExpired, storeErr(res.Error)
			}
		}
		return 0, OutcomeExpired, nil
	}

	if t.State == models.RESET_STATE_REVOKED || t.State == models.RESET_STATE_EXPIRED {
		return 0, OutcomeInvalid, nil
	}

	res := s.db.Model(&models.ResetToken{}).
		Where("id = ? AND state IN (?) AND expires_at > ?", t.ID, activeStates, now).
		Updates(map[string]any{
			"state":       models.RESET_STATE_CONSUMED,
			"consumed_at": now,
			"link":        "",
		})
	if res.Error != nil {
		return 0, OutcomeInvalid, storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		// lost the race to a concurrent redeemer
		return 0, OutcomeAlreadyUsed, nil
	}
	return t.AccountID, OutcomeOk, nil
}

// MarkExpiredSweep is housekeeping only: redemption checks the clock itself,
// the sweep just keeps the table tidy for operators. Returns rows swept.
func (s *Store) MarkExpiredSweep(now time.Time) (int64, error) {
	res := s.db.Model(&models.ResetToken{}).
		Where("state IN (?) AND expires_at <= ?", activeStates, now).
		Updates(map[string]any{"state": models.RESET_STATE_EXPIRED, "link": ""})
	if res.Error != nil {
		return 0, storeErr(res.Error)
	}
	return res.RowsAffected, nil
}

// DB exposes the underlying handle for the issuance transaction.
func (s *Store) DB() *gorm.DB {
	return s.db
}
