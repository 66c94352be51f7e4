package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
)

// StockService adjusts inventory after an item mutation commits. It is a
// best-effort side channel: failures are logged and never rolled back
// into the ticket transaction. Recursive component ("pack") expansion
// lives behind this boundary and is not the lifecycle engine's concern.
type StockService interface {
	Adjust(ctx context.Context, productID uint, delta int) error
}

// GormStockService applies stock deltas directly on the products table.
type GormStockService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewStockService(db *gorm.DB, logger *logrus.Logger) *GormStockService {
	return &GormStockService{db: db, logger: logger}
}

func (s *GormStockService) Adjust(ctx context.Context, productID uint, delta int) error {
	result := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		s.logger.Errorf("stock: adjust product %d by %d: %v", productID, delta, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		s.logger.Errorf("stock: adjust product %d by %d: product not found", productID, delta)
	}
	return nil
}
