package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/vitrina/internal/domain"
)

const DefaultDeliveryFee = 5.0

// Dismisser es el overlay que se cierra sin volver atrás en el historial.
type Dismisser interface {
	Dismiss()
}

type CheckoutForm struct {
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Region   string      `json:"region"`
	Address  string      `json:"address"`
	DeviceID string      `json:"-"`
	Zone     domain.Zone `json:"-"`
}

// CheckoutUC arma la orden a partir del carrito. Los datos del formulario se
// guardan en el dispositivo en cada intento para poder retomarlo, y se borran
// cuando la orden queda registrada. Precio y stock se toman del catálogo, no
// del snapshot guardado en el carrito.
type CheckoutUC struct {
	Orders      domain.OrderRepo
	Products    domain.ProductRepo
	Guard       StockGuard
	Cart        *CartUC
	Profile     *ProfileUC
	Overlay     Dismisser
	DeliveryFee float64
	Now         func() time.Time
}

func (uc *CheckoutUC) Submit(ctx context.Context, f CheckoutForm) (*domain.Order, error) {
	rec := domain.CustomerRecord{Name: f.Name, Phone: f.Phone, Region: f.Region, Address: f.Address}
	if uc.Profile != nil && !rec.IsBlank() {
		uc.Profile.Save(ctx, rec)
	}
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Phone) == "" {
		return nil, fmt.Errorf("checkout: %w", domain.ErrInvalidCustomer)
	}
	if uc.Cart == nil || len(uc.Cart.Entries()) == 0 {
		return nil, fmt.Errorf("checkout: %w", domain.ErrEmptyCart)
	}
	if uc.Orders == nil || uc.Products == nil {
		return nil, errors.New("checkout: repos nil")
	}
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	o := &domain.Order{
		ID:        uuid.New(),
		Status:    domain.OrderStatusPlaced,
		DeviceID:  f.DeviceID,
		Name:      strings.TrimSpace(f.Name),
		Phone:     strings.TrimSpace(f.Phone),
		Region:    strings.TrimSpace(f.Region),
		Address:   strings.TrimSpace(f.Address),
		Zone:      f.Zone.String(),
		CreatedAt: now(),
	}
	for _, e := range uc.Cart.Entries() {
		p, err := uc.Products.FindByID(ctx, e.Product.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("checkout: %s: %w", e.Product.ID, domain.ErrOutOfStock)
		}
		if err != nil {
			return nil, fmt.Errorf("checkout: buscar %s: %w", e.Product.ID, err)
		}
		if uc.Guard != nil && uc.Guard.IsOOS(p.ID, p.Available) {
			log.Debug().Str("product", p.ID).Msg("checkout rechazado: sin stock")
			return nil, fmt.Errorf("checkout: %s: %w", p.ID, domain.ErrOutOfStock)
		}
		if p.Price != e.Product.Price {
			log.Warn().Str("product", p.ID).Float64("cart", e.Product.Price).Float64("catalog", p.Price).Msg("precio del carrito desactualizado")
		}
		o.Items = append(o.Items, domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: p.ID,
			Title:     p.Title,
			Qty:       e.Quantity,
			UnitPrice: p.Price,
		})
		o.Subtotal += p.Price * float64(e.Quantity)
	}
	if o.Subtotal < uc.Cart.Threshold() {
		o.DeliveryFee = uc.DeliveryFee
		if o.DeliveryFee <= 0 {
			o.DeliveryFee = DefaultDeliveryFee
		}
	}
	o.Total = o.Subtotal + o.DeliveryFee

	if err := uc.Orders.Save(ctx, o); err != nil {
		log.Error().Err(err).Str("order_id", o.ID.String()).Msg("guardar orden")
		return nil, fmt.Errorf("checkout: guardar orden: %w", err)
	}
	uc.Cart.Clear(ctx)
	if uc.Profile != nil {
		uc.Profile.Clear(ctx)
	}
	if uc.Overlay != nil {
		uc.Overlay.Dismiss()
	}
	log.Info().Str("order_id", o.ID.String()).Float64("total", o.Total).Int("items", len(o.Items)).Msg("orden registrada")
	return o, nil
}
