// Package memory es una capa de almacenamiento en memoria con expiración
// opcional. Se usa como almacenamiento de sesión y como fake en tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/phenrril/vitrina/internal/persist"
)

type entry struct {
	value   string
	expires time.Time
}

type Layer struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	data      map[string]entry
	failRead  error
	failWrite error
}

type Option func(*Layer)

// WithTTL hace que cada escritura expire después de d.
func WithTTL(d time.Duration) Option { return func(l *Layer) { l.ttl = d } }

func WithClock(now func() time.Time) Option { return func(l *Layer) { l.now = now } }

func New(name string, opts ...Option) *Layer {
	l := &Layer{name: name, now: time.Now, data: map[string]entry{}}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Layer) Name() string { return l.name }

func (l *Layer) Read(_ context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failRead != nil {
		return "", false, l.failRead
	}
	e, ok := l.data[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && l.now().After(e.expires) {
		delete(l.data, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (l *Layer) Write(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWrite != nil {
		return l.failWrite
	}
	e := entry{value: value}
	if l.ttl > 0 {
		e.expires = l.now().Add(l.ttl)
	}
	l.data[key] = e
	return nil
}

func (l *Layer) Remove(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWrite != nil {
		return l.failWrite
	}
	delete(l.data, key)
	return nil
}

// FailReads hace que Read devuelva err (nil lo desactiva).
func (l *Layer) FailReads(err error) {
	l.mu.Lock()
	l.failRead = err
	l.mu.Unlock()
}

// FailWrites hace que Write y Remove devuelvan err, como una cuota llena.
func (l *Layer) FailWrites(err error) {
	l.mu.Lock()
	l.failWrite = err
	l.mu.Unlock()
}

// Sweep elimina las entradas vencidas.
func (l *Layer) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	now := l.now()
	for k, e := range l.data {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(l.data, k)
			n++
		}
	}
	return n
}

// Scoped devuelve una vista de la capa con las claves prefijadas por ns.
func (l *Layer) Scoped(ns string) persist.Layer {
	return scoped{base: l, ns: ns}
}

type scoped struct {
	base *Layer
	ns   string
}

func (s scoped) Name() string { return s.base.name }

func (s scoped) Read(ctx context.Context, key string) (string, bool, error) {
	return s.base.Read(ctx, s.ns+":"+key)
}

func (s scoped) Write(ctx context.Context, key, value string) error {
	return s.base.Write(ctx, s.ns+":"+key, value)
}

func (s scoped) Remove(ctx context.Context, key string) error {
	return s.base.Remove(ctx, s.ns+":"+key)
}
