package domain

import "errors"

var (
	ErrNotFound        = errors.New("no encontrado")
	ErrEmptyCart       = errors.New("carrito vacío")
	ErrInvalidCustomer = errors.New("datos de cliente incompletos")
	ErrOutOfStock      = errors.New("producto sin stock")
)
