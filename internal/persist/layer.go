// Package persist implementa el registro replicado en varias capas de
// almacenamiento (cookie, persistente, sesión). Cada capa es best-effort:
// un fallo en una no impide escribir en las demás.
package persist

import (
	"context"
	"errors"
)

// ErrTooLarge lo devuelve una capa con límite de tamaño (la cookie) cuando el
// valor no entra. A diferencia de una capa no disponible, reintentar no sirve.
var ErrTooLarge = errors.New("valor demasiado grande para la capa")

// Layer es una capa clave/valor. Read devuelve ok=false si la clave no existe.
type Layer interface {
	Name() string
	Read(ctx context.Context, key string) (value string, ok bool, err error)
	Write(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
