package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/courtbook/slot-engine/internal/config"
	"github.com/courtbook/slot-engine/internal/models"
)

func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DBUrl), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Warn),
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := SeedCourts(db, cfg.Courts); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Court{},
		&models.CartTransaction{},
		&models.CartItem{},
		&models.Booking{},
		&models.WaitlistEntry{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SeedCourts creates the configured courts on an empty database. Courts are a
// fixed facility set; later changes are made directly in the table.
func SeedCourts(db *gorm.DB, names []string) error {
	var count int64
	if err := db.Model(&models.Court{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count courts: %w", err)
	}
	if count > 0 || len(names) == 0 {
		return nil
	}

	courts := make([]models.Court, 0, len(names))
	for _, name := range names {
		courts = append(courts, models.Court{Name: name, Active: true})
	}
	if err := db.Create(&courts).Error; err != nil {
		return fmt.Errorf("seed courts: %w", err)
	}

	log.Info().Int("courts", len(courts)).Msg("seeded courts")
	return nil
}
