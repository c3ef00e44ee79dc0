package repository

import (
	"go-mini-commerce/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdjustmentRepository interface {
	CreateAll(tx *gorm.DB, rows []model.StockAdjustment) error
	FindByOrderAndReason(orderID uuid.UUID, reason model.AdjustmentReason) ([]model.StockAdjustment, error)
	FindByOrder(orderID uuid.UUID) ([]model.StockAdjustment, error)
}

type adjustmentRepo struct {
	db *gorm.DB
}

func NewAdjustmentRepo(db *gorm.DB) AdjustmentRepository {
	return &adjustmentRepo{db}
}

// CreateAll writes the ledger rows inside the caller's transaction so the
// stock mutation and its record commit together.
func (r *adjustmentRepo) CreateAll(tx *gorm.DB, rows []model.StockAdjustment) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func (r *adjustmentRepo) FindByOrderAndReason(orderID uuid.UUID, reason model.AdjustmentReason) ([]model.StockAdjustment, error) {
	var rows []model.StockAdjustment
	err := r.db.Where("order_id = ? AND reason = ?", orderID, reason).
		Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *adjustmentRepo) FindByOrder(orderID uuid.UUID) ([]model.StockAdjustment, error) {
	var rows []model.StockAdjustment
	err := r.db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}
