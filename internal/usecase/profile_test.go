package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/vitrina/internal/adapters/storage/memory"
	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/persist"
	"github.com/phenrril/vitrina/internal/usecase"
)

func TestProfile_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	layers := []persist.Layer{memory.New("cookie"), memory.New("persistent"), memory.New("session")}
	uc := &usecase.ProfileUC{
		Store: usecase.NewProfileStore(layers),
		Now:   func() time.Time { return time.UnixMilli(42) },
	}

	assert.False(t, uc.HasSaved(ctx))
	uc.Save(ctx, domain.CustomerRecord{Name: " Nino ", Phone: "599123456", Region: "Imereti"})

	rec, ok := uc.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "Nino", rec.Name)
	assert.Equal(t, int64(42), rec.SavedAt)
	assert.True(t, uc.HasSaved(ctx))

	uc.Clear(ctx)
	_, ok = uc.Load(ctx)
	assert.False(t, ok)
}

func TestProfile_BlankIsSkipped(t *testing.T) {
	ctx := context.Background()
	l := memory.New("session")
	uc := &usecase.ProfileUC{Store: usecase.NewProfileStore([]persist.Layer{l})}
	uc.Save(ctx, domain.CustomerRecord{Name: "  ", Address: "\t"})
	_, ok, _ := l.Read(ctx, usecase.CustomerKey)
	assert.False(t, ok)
}

func TestProfile_HasSavedNeedsNameOrPhone(t *testing.T) {
	ctx := context.Background()
	uc := &usecase.ProfileUC{Store: usecase.NewProfileStore([]persist.Layer{memory.New("session")})}
	uc.Save(ctx, domain.CustomerRecord{Address: "Rustaveli 1"})
	_, ok := uc.Load(ctx)
	assert.True(t, ok)
	assert.False(t, uc.HasSaved(ctx))
}

func TestProfile_NewestLayerWins(t *testing.T) {
	ctx := context.Background()
	cookie := memory.New("cookie")
	session := memory.New("session")
	require.NoError(t, cookie.Write(ctx, usecase.CustomerKey, `{"name":"Viejo","phone":"1","region":"","address":"","savedAt":100}`))
	require.NoError(t, session.Write(ctx, usecase.CustomerKey, `{"name":"Nuevo","phone":"2","region":"","address":"","savedAt":200}`))

	uc := &usecase.ProfileUC{Store: usecase.NewProfileStore([]persist.Layer{cookie, session})}
	rec, ok := uc.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "Nuevo", rec.Name)

	raw, _, _ := cookie.Read(ctx, usecase.CustomerKey)
	assert.Contains(t, raw, `"Nuevo"`)
}
