package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const OrderStatusPlaced OrderStatus = "placed"

type Order struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Status      OrderStatus `gorm:"type:varchar(30);index" json:"status"`
	Items       []OrderItem `json:"items"`
	DeviceID    string      `gorm:"size:20;index" json:"deviceId"`
	Name        string      `gorm:"size:140" json:"name"`
	Phone       string      `gorm:"size:50" json:"phone"`
	Region      string      `gorm:"size:80" json:"region"`
	Address     string      `gorm:"size:255" json:"address"`
	Zone        string      `gorm:"size:10" json:"zone"`
	Subtotal    float64     `gorm:"type:decimal(12,2)" json:"subtotal"`
	DeliveryFee float64     `gorm:"type:decimal(12,2)" json:"deliveryFee"`
	Total       float64     `gorm:"type:decimal(12,2)" json:"total"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"-"`
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;index" json:"-"`
	ProductID string    `gorm:"size:64;index" json:"productId"`
	Title     string    `gorm:"size:180" json:"title"`
	Qty       int       `gorm:"not null" json:"qty"`
	UnitPrice float64   `gorm:"type:decimal(12,2)" json:"unitPrice"`
}

type OrderRepo interface {
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
}
