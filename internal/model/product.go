package model

import "github.com/shopspring/decimal"

type Product struct {
	BaseModel
	Name        string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price" validate:"gt=0"`
	Stock       int             `gorm:"not null;default:0" json:"stock_quantity" validate:"gte=0"`
	ImageURL    string          `gorm:"type:varchar(512)" json:"image_url,omitempty"`
}
