package model

import "github.com/google/uuid"

type AdjustmentReason string

const (
	ReasonOrderCreated   AdjustmentReason = "order.created"
	ReasonOrderUpdated   AdjustmentReason = "order.updated"
	ReasonOrderDeleted   AdjustmentReason = "order.deleted"
	ReasonOrderCancelled AdjustmentReason = "order.cancelled"
)

type AdjustmentStatus string

const (
	AdjustmentApplied  AdjustmentStatus = "applied"
	AdjustmentRejected AdjustmentStatus = "rejected"
)

// StockAdjustment is the ledger of stock mutations performed on behalf of
// orders. For asynchronous deliveries the rows double as the idempotency
// record: an order.created event that already has ledger rows is not applied
// a second time.
type StockAdjustment struct {
	BaseModel
	OrderID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID        `gorm:"type:uuid;not null" json:"product_id"`
	Delta     int              `gorm:"not null" json:"delta"` // negative consumes stock
	Reason    AdjustmentReason `gorm:"type:varchar(32);not null" json:"reason"`
	Status    AdjustmentStatus `gorm:"type:varchar(16);not null" json:"status"`
	Message   string           `json:"message,omitempty"`
}
