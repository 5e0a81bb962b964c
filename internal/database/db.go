package database

import (
	"fmt"
	"time"

	"retail-backend/internal/config"
	"retail-backend/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection opens the PostgreSQL pool, applies pool limits and migrates
// the schema.
func NewConnection(cfg config.PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		NowFunc:        Now,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("connected to postgres", zap.String("host", cfg.Host), zap.String("database", cfg.DBName))
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Product{},
		&model.Customer{},
		&model.Sale{},
		&model.SaleLineItem{},
		&model.Payment{},
		&model.StockEvent{},
		&model.ApprovalRequest{},
		&model.AuditLog{},
		&model.DocumentSequence{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Now is the clock gorm uses for automatic timestamps: UTC at microsecond
// precision, matching what both drivers store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
