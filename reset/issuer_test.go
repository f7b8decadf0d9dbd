package reset

import (
	"sync"
	"testing"
	"time"

	"ariadne/models"
	"ariadne/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueCreatesPendingToken(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	issuer := newTestIssuer(t, store, 30*time.Minute)

	now := time.Now().Truncate(time.Second)
	issuer.SetNow(func() time.Time { return now })

	token, secret, err := issuer.Issue(7, models.RESET_CHANNEL_EMAIL, "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	assert.Equal(t, models.RESET_STATE_PENDING, token.State)
	assert.Equal(t, int64(7), token.AccountID)
	assert.Equal(t, "user@example.com", token.Recipient)
	assert.Equal(t, now.Add(30*time.Minute), token.ExpiresAt)

	// only the hash hits the table, the link carries the plaintext
	assert.Equal(t, tools.EncryptTextSHA512(secret), token.TokenHash)
	assert.NotContains(t, token.TokenHash, secret)
	assert.Contains(t, token.Link, "/reset?token=")

	stored := loadToken(t, db, token.ID)
	assert.Equal(t, models.RESET_STATE_PENDING, stored.State)
	assert.Nil(t, stored.DeliveredAt)
	assert.Nil(t, stored.ConsumedAt)
}

func TestReissueRevokesPrevious(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	issuer := newTestIssuer(t, store, 30*time.Minute)
	validator := NewValidator(store)

	first, firstSecret, err := issuer.Issue(1, models.RESET_CHANNEL_EMAIL, "a@example.com")
	require.NoError(t, err)

	_, secondSecret, err := issuer.Issue(1, models.RESET_CHANNEL_EMAIL, "a@example.com")
	require.NoError(t, err)

	stored := loadToken(t, db, first.ID)
	assert.Equal(t, models.RESET_STATE_REVOKED, stored.State)
	assert.Empty(t, stored.Link, "revoked token must not keep the plaintext link")

	red, err := validator.Redeem(firstSecret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, red.Outcome)

	red, err = validator.Redeem(secondSecret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOk, red.Outcome)
	assert.Equal(t, int64(1), red.AccountID)
}

func TestConcurrentIssueKeepsSingleActiveToken(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	issuer := newTestIssuer(t, store, 30*time.Minute)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// a failed transaction rolls back and keeps the invariant,
			// so errors here are not interesting
			_, _, _ = issuer.Issue(42, models.RESET_CHANNEL_EMAIL, "b@example.com")
		}()
	}
	wg.Wait()

	active := countByState(t, db, 42, models.RESET_STATE_PENDING, models.RESET_STATE_DELIVERED)
	assert.Equal(t, 1, active, "at most one pending/delivered token per account")
}

func TestIssueDoesNotTouchOtherAccounts(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	issuer := newTestIssuer(t, store, 30*time.Minute)

	other, _, err := issuer.Issue(2, models.RESET_CHANNEL_EMAIL, "other@example.com")
	require.NoError(t, err)

	_, _, err = issuer.Issue(3, models.RESET_CHANNEL_EMAIL, "third@example.com")
	require.NoError(t, err)

	stored := loadToken(t, db, other.ID)
	assert.Equal(t, models.RESET_STATE_PENDING, stored.State)
}
