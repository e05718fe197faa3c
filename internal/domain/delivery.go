package domain

import (
	"context"
	"time"
)

// Zone es la clasificación de entrega: capital o región.
type Zone int

const (
	ZoneUnknown Zone = iota
	ZoneCapital
	ZoneRegion
)

func (z Zone) String() string {
	switch z {
	case ZoneCapital:
		return "capital"
	case ZoneRegion:
		return "region"
	default:
		return "unknown"
	}
}

func ParseZone(s string) Zone {
	switch s {
	case "capital", "tbilisi":
		return ZoneCapital
	case "region":
		return ZoneRegion
	default:
		return ZoneUnknown
	}
}

type DeliveryWindow struct {
	Processing time.Time `json:"processing"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// GeoLocator resuelve el nombre de ciudad de una IP. ip vacía significa "la
// IP de quien hace el pedido".
type GeoLocator interface {
	City(ctx context.Context, ip string) (string, error)
}
