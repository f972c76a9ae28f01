package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileColumn names one column that holds a login identifier.
type ProfileColumn struct {
	Table  string
	Column string
	Label  string
}

// Columns checked for email and mobile collisions across every profile table.
var (
	ProfileEmailColumns = []ProfileColumn{
		{Table: "stakeholders", Column: "email", Label: "stakeholders"},
		{Table: "users", Column: "email", Label: "users"},
	}
	ProfileMobileColumns = []ProfileColumn{
		{Table: "stakeholders", Column: "mobile", Label: "stakeholders"},
		{Table: "users", Column: "phone", Label: "users"},
	}
)

// ProfileRef identifies the record being updated so it is skipped by the check.
type ProfileRef struct {
	Table string
	ID    uuid.UUID
}

type ProfileRepository interface {
	// FindCollision returns the label of the first column already holding value.
	FindCollision(ctx context.Context, columns []ProfileColumn, value string, exclude *ProfileRef) (string, bool, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindCollision(ctx context.Context, columns []ProfileColumn, value string, exclude *ProfileRef) (string, bool, error) {
	db := GetDB(ctx, r.db)
	for _, col := range columns {
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND deleted_at IS NULL", col.Table, col.Column)
		args := []interface{}{value}
		if exclude != nil && exclude.Table == col.Table {
			query += " AND id <> ?"
			args = append(args, exclude.ID)
		}

		var count int64
		if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
			return "", false, fmt.Errorf("failed to check %s.%s: %w", col.Table, col.Column, err)
		}
		if count > 0 {
			return col.Label, true, nil
		}
	}
	return "", false, nil
}
