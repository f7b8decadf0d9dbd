package reset

import (
	"path/filepath"
	"testing"
	"time"

	"ariadne/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "reset_test.db")
	db, err := gorm.Open("sqlite3", path+"?_busy_timeout=5000")
	require.NoError(t, err)

	// serialize writes so concurrency tests exercise the conditional
	// updates, not sqlite lock errors
	db.DB().SetMaxOpenConns(1)
	db.LogMode(false)

	require.NoError(t, db.AutoMigrate(&models.ResetToken{}).Error)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestIssuer(t *testing.T, store *Store, ttl time.Duration) *Issuer {
	t.Helper()
	return NewIssuer(store, ttl, "http://localhost:8080", "/reset")
}

func loadToken(t *testing.T, db *gorm.DB, id string) models.ResetToken {
	t.Helper()
	var token models.ResetToken
	require.NoError(t, db.Where("id = ?", id).First(&token).Error)
	return token
}

func countByState(t *testing.T, db *gorm.DB, accountID int64, states ...string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Model(&models.ResetToken{}).
		Where("account_id = ? AND state IN (?)", accountID, states).
		Count(&n).Error)
	return n
}
