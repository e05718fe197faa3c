package persist

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Record es un valor con el instante en que se guardó.
type Record[T any] struct {
	Value   T
	SavedAt time.Time
}

type Codec[T any] interface {
	Encode(r Record[T]) (string, error)
	Decode(raw string) (Record[T], error)
}

// Stamped lo implementan los tipos que llevan su propio savedAt dentro del
// JSON (por ejemplo el registro del cliente).
type Stamped interface {
	Stamp() time.Time
}

// JSONCodec serializa T como JSON. Si T implementa Stamped el timestamp se
// toma del propio valor; si no, se envuelve como {"value":..,"savedAt":..}.
type JSONCodec[T any] struct{}

type envelope[T any] struct {
	Value   T     `json:"value"`
	SavedAt int64 `json:"savedAt"`
}

func (JSONCodec[T]) Encode(r Record[T]) (string, error) {
	if _, ok := any(r.Value).(Stamped); ok {
		b, err := json.Marshal(r.Value)
		return string(b), err
	}
	b, err := json.Marshal(envelope[T]{Value: r.Value, SavedAt: r.SavedAt.UnixMilli()})
	return string(b), err
}

func (JSONCodec[T]) Decode(raw string) (Record[T], error) {
	var zero T
	if _, ok := any(zero).(Stamped); ok {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return Record[T]{}, err
		}
		return Record[T]{Value: v, SavedAt: any(v).(Stamped).Stamp()}, nil
	}
	var env envelope[T]
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Record[T]{}, err
	}
	return Record[T]{Value: env.Value, SavedAt: time.UnixMilli(env.SavedAt)}, nil
}

// RawCodec guarda el string tal cual, sin timestamp.
type RawCodec struct{}

var errBlank = errors.New("valor vacío")

func (RawCodec) Encode(r Record[string]) (string, error) { return r.Value, nil }

func (RawCodec) Decode(raw string) (Record[string], error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Record[string]{}, errBlank
	}
	return Record[string]{Value: v}, nil
}
