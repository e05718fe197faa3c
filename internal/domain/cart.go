package domain

// DefaultFreeDeliveryThreshold es el total a partir del cual el envío es gratis.
const DefaultFreeDeliveryThreshold = 40.0

// CartEntry es lo único que se persiste del carrito: el snapshot del producto
// y la cantidad. Los totales se derivan siempre de las entradas.
type CartEntry struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (e CartEntry) Subtotal() float64 { return e.Product.Price * float64(e.Quantity) }

type CartSnapshot struct {
	Entries   []CartEntry `json:"entries"`
	Total     float64     `json:"total"`
	ItemCount int         `json:"itemCount"`
	Remaining float64     `json:"remaining"`
	Unlocked  bool        `json:"unlocked"`
	Threshold float64     `json:"threshold"`
}
