package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id" validate:"uuid_required"`
	Items       []OrderItem     `gorm:"constraint:OnDelete:CASCADE;" json:"items" validate:"required,min=1,dive"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	Status      OrderStatus     `gorm:"type:varchar(32);not null" json:"status"`
}

// OrderItem is owned by its Order and cascade-deleted with it.
// PriceAtPurchase is captured when the order is created and never changes.
type OrderItem struct {
	BaseModel
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null" json:"product_id" validate:"uuid_required"`
	Quantity        int             `gorm:"not null" json:"quantity" validate:"required,gte=1"`
	PriceAtPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_purchase"`
}

// Total is quantity x price-at-purchase, decimal-exact.
func (i OrderItem) Total() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ComputeTotal recalculates TotalAmount as the exact sum of item totals.
func (o *Order) ComputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	o.TotalAmount = total
}

// ItemFor returns the line item referencing the given product, if any.
func (o *Order) ItemFor(productID uuid.UUID) *OrderItem {
	for idx := range o.Items {
		if o.Items[idx].ProductID == productID {
			return &o.Items[idx]
		}
	}
	return nil
}
