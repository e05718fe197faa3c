// Package redis implementa la capa persistente sobre Redis. Cada escritura
// renueva la expiración (400 días por defecto).
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/phenrril/vitrina/internal/persist"
)

const DefaultTTL = 400 * 24 * time.Hour

type Layer struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
}

func New(client *redis.Client, prefix string) *Layer {
	return &Layer{client: client, prefix: prefix, ttl: DefaultTTL}
}

func (l *Layer) Name() string { return "persistent" }

func (l *Layer) Read(ctx context.Context, key string) (string, bool, error) {
	val, err := l.client.Get(ctx, l.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (l *Layer) Write(ctx context.Context, key, value string) error {
	return l.client.Set(ctx, l.prefix+key, value, l.ttl).Err()
}

func (l *Layer) Remove(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}

// Scoped devuelve la misma capa con las claves bajo ns.
func (l *Layer) Scoped(ns string) persist.Layer {
	return &Layer{client: l.client, prefix: l.prefix + ns + ":", ttl: l.ttl}
}

func (l *Layer) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
