// Package metrics agrupa los collectors de Prometheus del estado del cliente.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitrina",
		Name:      "storage_errors_total",
		Help:      "Fallos de escritura/lectura por capa de almacenamiento.",
	}, []string{"layer", "op"})

	StorageResyncs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vitrina",
		Name:      "storage_resyncs_total",
		Help:      "Registros re-sincronizados a todas las capas en una lectura.",
	})

	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitrina",
		Name:      "cart_mutations_total",
		Help:      "Mutaciones del carrito por operación.",
	}, []string{"op"})

	CartRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitrina",
		Name:      "cart_guard_rejections_total",
		Help:      "Mutaciones rechazadas por override sin stock.",
	}, []string{"op"})

	AddToCart = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vitrina",
		Name:      "add_to_cart_total",
		Help:      "Eventos add-to-cart enviados a analítica.",
	})

	GeoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitrina",
		Name:      "geo_lookups_total",
		Help:      "Resultado de la detección de ciudad.",
	}, []string{"outcome"})

	OverrideChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitrina",
		Name:      "stock_override_changes_total",
		Help:      "Cambios de overrides de stock.",
	}, []string{"action"})
)
