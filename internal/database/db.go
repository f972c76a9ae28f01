package database

import (
	"fmt"
	"time"

	"backoffice/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	logger.Info("Connected to PostgreSQL")
	return db, nil
}

// Migrate creates or updates the schema of every model.
func Migrate(db *gorm.DB) error {
	// gen_random_uuid() is built in from postgres 13; older servers need pgcrypto
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("failed to enable pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Role{},
		&model.Permission{},
		&model.User{},
		&model.RefreshToken{},
		&model.AssociationType{},
		&model.Stakeholder{},
		&model.FormInput{},
		&model.DynamicForm{},
		&model.DynamicFormInput{},
		&model.AuditLog{},
	); err != nil {
		return err
	}

	// users.email used to be unique across soft-deleted rows as well
	if db.Migrator().HasIndex(&model.User{}, "idx_users_email") {
		if err := db.Migrator().DropIndex(&model.User{}, "idx_users_email"); err != nil {
			return fmt.Errorf("failed to drop idx_users_email: %w", err)
		}
	}
	return nil
}
