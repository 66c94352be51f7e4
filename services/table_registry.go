package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/repository"
)

// TableRegistry tracks occupancy of physical tables.
type TableRegistry interface {
	GetState(ctx context.Context, tableID uint) (string, error)
	SetState(ctx context.Context, tableID uint, state string) error
}

// GormTableRegistry stores occupancy on the tables relation. Calls made
// with a context from a repository transaction join that transaction.
type GormTableRegistry struct {
	db *gorm.DB
}

func NewTableRegistry(db *gorm.DB) *GormTableRegistry {
	return &GormTableRegistry{db: db}
}

func (r *GormTableRegistry) GetState(ctx context.Context, tableID uint) (string, error) {
	var table models.Table
	err := repository.DBFromContext(ctx, r.db).First(&table, tableID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", &NotFoundError{Entity: "table", ID: tableID}
	}
	if err != nil {
		return "", err
	}
	return table.Status, nil
}

func (r *GormTableRegistry) SetState(ctx context.Context, tableID uint, state string) error {
	result := repository.DBFromContext(ctx, r.db).Model(&models.Table{}).
		Where("id = ?", tableID).
		Update("status", state)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Entity: "table", ID: tableID}
	}
	return nil
}
