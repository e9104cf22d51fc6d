package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/courtbook/slot-engine/internal/db"
	"github.com/courtbook/slot-engine/internal/models"
)

// NewTestDB creates a temporary SQLite database with the schema migrated.
// A single connection keeps writers serialized the way row locks do on
// postgres. Row timestamps follow clock when one is given.
func NewTestDB(t *testing.T, clock clockwork.Clock) *gorm.DB {
	t.Helper()

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	dbPath := filepath.Join(t.TempDir(), "test.db")
	gdb, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return clock.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

// SeedCourt inserts an active court.
func SeedCourt(t *testing.T, gdb *gorm.DB, name string) models.Court {
	t.Helper()

	court := models.Court{Name: name, Active: true}
	if err := gdb.Create(&court).Error; err != nil {
		t.Fatalf("seed court: %v", err)
	}
	return court
}
