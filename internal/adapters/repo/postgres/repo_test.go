package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/vitrina/internal/adapters/repo/postgres"
	"github.com/phenrril/vitrina/internal/domain"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN no configurado")
	}
	db, err := gorm.Open(pg.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}, &domain.Order{}, &domain.OrderItem{}, &domain.OverrideAudit{}))
	return db
}

func TestProductRepo(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := postgres.NewProductRepo(db)
	id := "test-" + uuid.NewString()[:8]
	t.Cleanup(func() { db.Delete(&domain.Product{}, "id = ?", id) })

	require.NoError(t, repo.Save(ctx, &domain.Product{ID: id, Title: "Tkemali " + id, Price: 7, Category: "salsas", Active: true}))
	p, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, p.Available)

	list, total, err := repo.List(ctx, domain.ProductFilter{Query: id})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, id, list[0].ID)

	_, err = repo.FindByID(ctx, "no-"+id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepo(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := postgres.NewOrderRepo(db)
	o := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPlaced, Name: "Nino", Phone: "599", Total: 20, CreatedAt: time.Now()}
	o.Items = []domain.OrderItem{{ID: uuid.New(), OrderID: o.ID, ProductID: "A", Qty: 2, UnitPrice: 7.5}}
	t.Cleanup(func() {
		db.Delete(&domain.OrderItem{}, "order_id = ?", o.ID)
		db.Delete(&domain.Order{}, "id = ?", o.ID)
	})

	require.NoError(t, repo.Save(ctx, o))
	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Qty)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOverrideAuditRepo(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := postgres.NewOverrideAuditRepo(db)
	pid := "test-" + uuid.NewString()[:8]
	t.Cleanup(func() { db.Delete(&domain.OverrideAudit{}, "product_id = ?", pid) })

	off := false
	base := time.Now().Add(-time.Minute)
	require.NoError(t, repo.Save(ctx, &domain.OverrideAudit{ProductID: pid, Action: domain.OverrideActionSet, Available: &off, CreatedAt: base}))
	require.NoError(t, repo.Save(ctx, &domain.OverrideAudit{ProductID: pid, Action: domain.OverrideActionClear, CreatedAt: base.Add(time.Second)}))

	rows, err := repo.ForProduct(ctx, pid)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.OverrideActionClear, rows[0].Action)
	require.NotNil(t, rows[1].Available)
	assert.False(t, *rows[1].Available)

	recent, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
