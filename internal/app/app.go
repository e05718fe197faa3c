package app

import (
	"context"
	"net/http"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/phenrril/vitrina/internal/adapters/geo"
	"github.com/phenrril/vitrina/internal/adapters/httpserver"
	"github.com/phenrril/vitrina/internal/adapters/repo/postgres"
	"github.com/phenrril/vitrina/internal/adapters/storage/memory"
	"github.com/phenrril/vitrina/internal/adapters/storage/redis"
	"github.com/phenrril/vitrina/internal/adapters/tracking"
	"github.com/phenrril/vitrina/internal/config"
	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/persist"
	"github.com/phenrril/vitrina/internal/usecase"
)

type App struct {
	DB        *gorm.DB
	Cfg       config.Config
	ProductUC *usecase.ProductUC
	Overrides *usecase.StockOverrideBus
	Admin     *usecase.OverrideAdminUC
	Orders    domain.OrderRepo
	Session   *memory.Layer

	persistent httpserver.Scoper
	detach     func()
}

// NewApp arma el proceso. rdb puede ser nil: la capa persistente y los
// overrides quedan en memoria.
func NewApp(ctx context.Context, db *gorm.DB, rdb *goredis.Client, cfg config.Config) (*App, error) {
	prodRepo := postgres.NewProductRepo(db)
	auditRepo := postgres.NewOverrideAuditRepo(db)

	var overridesLayer persist.Layer
	var persistent httpserver.Scoper
	if rdb != nil {
		rl := redis.New(rdb, "vitrina:")
		if err := rl.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis no responde, se usa memoria")
		} else {
			overridesLayer = rl
			persistent = rl
		}
	}
	if persistent == nil {
		mem := memory.New("persistent", memory.WithTTL(redis.DefaultTTL))
		overridesLayer = mem
		persistent = mem
	}

	// Los overrides se cargan antes de crear cualquier consumidor.
	bus := usecase.NewStockOverrideBus(ctx, overridesLayer)

	a := &App{
		DB:         db,
		Cfg:        cfg,
		ProductUC:  &usecase.ProductUC{Products: prodRepo, Overrides: bus},
		Overrides:  bus,
		Orders:     postgres.NewOrderRepo(db),
		Session:    memory.New("session", memory.WithTTL(cfg.SessionTTL)),
		persistent: persistent,
	}
	a.Admin = &usecase.OverrideAdminUC{Bus: bus, Audit: auditRepo, Products: prodRepo}
	a.detach = a.Admin.Attach()
	bus.Subscribe(func(_ context.Context, ev domain.OverrideEvent) {
		log.Info().Str("product", ev.ProductID).Int("overrides", len(ev.Overrides)).Msg("override de stock actualizado")
	})
	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(httpserver.Deps{
		Products:    a.ProductUC,
		Overrides:   a.Overrides,
		Admin:       a.Admin,
		Orders:      a.Orders,
		Locator:     geo.NewLocator(a.Cfg.GeoEndpoint),
		Tracker:     tracking.LogTracker{Currency: a.Cfg.Currency},
		Persistent:  a.persistent,
		Session:     a.Session,
		SessionKey:  []byte(a.Cfg.SessionKey),
		AdminKey:    a.Cfg.AdminAPIKey,
		Secure:      a.Cfg.SecureCookies,
		Threshold:   a.Cfg.Threshold,
		DeliveryFee: a.Cfg.DeliveryFee,
		GeoTimeout:  a.Cfg.GeoTimeout,
		Capitals:    a.Cfg.Capitals,
		Locale:      a.Cfg.Locale,
	})
}

// SweepSessions limpia la capa de sesión cada intervalo hasta que ctx termine.
func (a *App) SweepSessions(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.Session.Sweep(); n > 0 {
				log.Debug().Int("expiradas", n).Msg("sesiones limpiadas")
			}
		}
	}
}

func (a *App) Close() {
	if a.detach != nil {
		a.detach()
	}
}

func (a *App) MigrateAndSeed(ctx context.Context) error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.Order{}, &domain.OrderItem{}, &domain.OverrideAudit{},
	); err != nil {
		return err
	}
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_override_audits_product_created ON override_audits(product_id, created_at DESC)").Error

	var count int64
	if err := a.DB.Model(&domain.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		a.seedProducts(ctx)
	}
	return nil
}

func (a *App) seedProducts(ctx context.Context) {
	prods := []domain.Product{
		{ID: "khachapuri-mold", Title: "Molde Khachapuri", Price: 15, Available: true, Category: "cocina"},
		{ID: "churchkhela-box", Title: "Caja Churchkhela", Price: 12.5, Available: true, Category: "dulces"},
		{ID: "qvevri-mini", Title: "Qvevri mini", Price: 48, Available: true, Category: "hogar"},
		{ID: "tea-guria", Title: "Té de Guria", Price: 9, Available: false, Category: "bebidas"},
	}
	for i := range prods {
		if err := a.ProductUC.Create(ctx, &prods[i]); err != nil {
			log.Warn().Err(err).Str("product", prods[i].ID).Msg("seed producto")
		}
	}
}
