package reset

import (
	"sync"
	"testing"
	"time"

	"ariadne/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemConsumesToken(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	issuer := newTestIssuer(t, store, 30*time.Minute)
	validator := NewValidator(store)

	token, secret, err := issuer.Issue(5, models.RESET_CHANNEL_EMAIL, "u@example.com")
	require.NoError(t, err)

	red, err := validator.Redeem(secret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOk, red.Outcome)
	assert.Equal(t, int64(5), red.AccountID)

	stored := loadToken(t, db, token.ID)
	assert.Equal(t, models.RESET_STATE_CONSUMED, stored.State)
	assert.NotNil(t, stored.ConsumedAt)
	assert.Empty(t, stored.Link)

	// second presentation of the same secret
	red, err = validator.Redeem(secret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyUsed, red.Outcome)
	assert.Zero(t, red.AccountID)
}

func TestRedeemUnknownTokenIsInvalid(t *testing.T) {
	db := newTestDB(t)
	validator := NewValidator(NewStore(db))

	red, err := validator.Redeem("never-issued")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, red.Outcome)
}

func TestRedeemAfterExpiryIsExpired(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	issuer := newTestIssuer(t, store, 30*time.Minute)
	validator := NewValidator(store)

	issuedAt := time.Now()
	issuer.SetNow(func() time.Time { return issuedAt })

	token, secret, err := issuer.Issue(9, models.RESET_CHANNEL_EMAIL, "u@example.com")
	require.NoError(t, err)

	// no sweep ran; the redeem itself must check the clock
	validator.SetNow(func() time.Time { return issuedAt.Add(31 * time.Minute) })

	red, err := validator.Redeem(secret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, red.Outcome)

	stored := loadToken(t, db, token.ID)
	assert.Equal(t, models.RESET_STATE_EXPIRED, stored.State, "lazy expiry flips the row")

	// expired is terminal: retrying stays expired
	red, err = validator.Redeem(secret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, red.Outcome)
}

func TestRedeemDeliveredTokenWorks(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	issuer := newTestIssuer(t, store, 30*time.Minute)
	validator := NewValidator(store)

	token, secret, err := issuer.Issue(3, models.RESET_CHANNEL_EMAIL, "u@example.com")
	require.NoError(t, err)

	claimed, err := store.ClaimForDelivery(token.ID, time.Now())
	require.NoError(t, err)
	require.True(t, claimed)

	red, err := validator.Redeem(secret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOk, red.Outcome)
}

func TestConcurrentRedeemExactlyOneWins(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	issuer := newTestIssuer(t, store, 30*time.Minute)
	validator := NewValidator(store)

	_, secret, err := issuer.Issue(11, models.RESET_CHANNEL_EMAIL, "u@example.com")
	require.NoError(t, err)

	const n = 12
	outcomes := make([]Outcome, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			red, err := validator.Redeem(secret)
			outcomes[i] = red.Outcome
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "redeemer %d", i)
	}

	oks, used := 0, 0
	for _, o := range outcomes {
		switch o {
		case OutcomeOk:
			oks++
		case OutcomeAlreadyUsed:
			used++
		default:
			t.Fatalf("unexpected outcome %v", o)
		}
	}
	assert.Equal(t, 1, oks, "exactly one concurrent redeemer wins")
	assert.Equal(t, n-1, used)
}

func TestPeekDoesNotConsume(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	issuer := newTestIssuer(t, store, 30*time.Minute)
	validator := NewValidator(store)

	token, secret, err := issuer.Issue(6, models.RESET_CHANNEL_EMAIL, "u@example.com")
	require.NoError(t, err)

	red, err := validator.Peek(secret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOk, red.Outcome)

	stored := loadToken(t, db, token.ID)
	assert.Equal(t, models.RESET_STATE_PENDING, stored.State)

	red, err = validator.Redeem(secret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOk, red.Outcome)

	red, err = validator.Peek(secret)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyUsed, red.Outcome)
}
