package persist

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/vitrina/internal/metrics"
)

// Candidate es un registro leído de una capa concreta.
type Candidate[T any] struct {
	Layer  string
	Index  int
	Record Record[T]
}

// Pick elige el candidato más reciente. Ante empate gana la capa con menor
// índice, de modo que el resultado no depende del orden de lectura.
func Pick[T any](candidates []Candidate[T]) (Candidate[T], bool) {
	var best Candidate[T]
	found := false
	for _, c := range candidates {
		if !found ||
			c.Record.SavedAt.After(best.Record.SavedAt) ||
			(c.Record.SavedAt.Equal(best.Record.SavedAt) && c.Index < best.Index) {
			best = c
			found = true
		}
	}
	return best, found
}

// Store replica un único registro bajo una clave en todas sus capas.
type Store[T any] struct {
	key    string
	layers []Layer
	codec  Codec[T]
	empty  func(T) bool
	now    func() time.Time
}

type Option[T any] func(*Store[T])

// WithEmpty define cuándo un valor no debe persistirse.
func WithEmpty[T any](fn func(T) bool) Option[T] {
	return func(s *Store[T]) { s.empty = fn }
}

func WithClock[T any](now func() time.Time) Option[T] {
	return func(s *Store[T]) { s.now = now }
}

func NewStore[T any](key string, codec Codec[T], layers []Layer, opts ...Option[T]) *Store[T] {
	s := &Store[T]{key: key, layers: layers, codec: codec, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store[T]) Key() string { return s.key }

// Save escribe value en todas las capas. Los fallos se registran y no se
// devuelven.
func (s *Store[T]) Save(ctx context.Context, value T) {
	if s.empty != nil && s.empty(value) {
		return
	}
	raw, err := s.codec.Encode(Record[T]{Value: value, SavedAt: s.now()})
	if err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("no se pudo serializar registro")
		return
	}
	s.writeAll(ctx, raw)
}

// Load devuelve el registro más reciente entre todas las capas y lo vuelve a
// escribir en cada una.
func (s *Store[T]) Load(ctx context.Context) (T, bool) {
	var zero T
	candidates := s.read(ctx)
	best, ok := Pick(candidates)
	if !ok {
		return zero, false
	}
	raw, err := s.codec.Encode(best.Record)
	if err == nil {
		s.writeAll(ctx, raw)
		metrics.StorageResyncs.Inc()
	}
	return best.Record.Value, true
}

// Clear borra la clave de todas las capas.
func (s *Store[T]) Clear(ctx context.Context) {
	for _, l := range s.layers {
		if err := l.Remove(ctx, s.key); err != nil {
			logLayerErr(l, "remove", s.key, err)
		}
	}
}

// LayerStatus describe qué tiene cada capa para la clave del store.
type LayerStatus struct {
	Layer   string    `json:"layer"`
	Present bool      `json:"present"`
	Valid   bool      `json:"valid"`
	SavedAt time.Time `json:"savedAt,omitempty"`
}

func (s *Store[T]) Layers(ctx context.Context) []LayerStatus {
	out := make([]LayerStatus, 0, len(s.layers))
	for _, l := range s.layers {
		st := LayerStatus{Layer: l.Name()}
		raw, ok, err := l.Read(ctx, s.key)
		if err == nil && ok {
			st.Present = true
			if rec, err := s.codec.Decode(raw); err == nil {
				st.Valid = true
				st.SavedAt = rec.SavedAt
			}
		}
		out = append(out, st)
	}
	return out
}

func (s *Store[T]) read(ctx context.Context) []Candidate[T] {
	out := make([]Candidate[T], 0, len(s.layers))
	for i, l := range s.layers {
		raw, ok, err := l.Read(ctx, s.key)
		if err != nil {
			logLayerErr(l, "read", s.key, err)
			continue
		}
		if !ok {
			continue
		}
		rec, err := s.codec.Decode(raw)
		if err != nil {
			log.Debug().Err(err).Str("layer", l.Name()).Str("key", s.key).Msg("registro corrupto, se ignora")
			continue
		}
		out = append(out, Candidate[T]{Layer: l.Name(), Index: i, Record: rec})
	}
	return out
}

func (s *Store[T]) writeAll(ctx context.Context, raw string) {
	for _, l := range s.layers {
		if err := l.Write(ctx, s.key, raw); err != nil {
			logLayerErr(l, "write", s.key, err)
		}
	}
}

func logLayerErr(l Layer, op, key string, err error) {
	metrics.StorageErrors.WithLabelValues(l.Name(), op).Inc()
	log.Warn().Err(err).Str("layer", l.Name()).Str("op", op).Str("key", key).Msg("capa de almacenamiento no disponible")
}
