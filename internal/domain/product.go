package domain

import (
	"context"
	"time"
)

// Product es la vista del catálogo que consume el carrito. El catálogo es
// dueño de estos datos; acá sólo se leen y se copian como snapshot.
type Product struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Title     string    `gorm:"size:180" json:"title"`
	Price     float64   `gorm:"type:decimal(12,2)" json:"price"`
	Available bool      `json:"available"`
	Category  string    `gorm:"size:100;index" json:"category"`
	Images    []string  `gorm:"type:jsonb;serializer:json" json:"images,omitempty"`
	Active    bool      `gorm:"default:true;index" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type ProductFilter struct {
	Category string
	Query    string
	Page     int
	PageSize int
}

type ProductRepo interface {
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	FindByID(ctx context.Context, id string) (*Product, error)
	Save(ctx context.Context, p *Product) error
}
