package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/vitrina/internal/adapters/export"
	"github.com/phenrril/vitrina/internal/adapters/storage/cookie"
	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/persist"
	"github.com/phenrril/vitrina/internal/usecase"
)

const (
	zoneManualKey   = "vitrina_zone_manual"
	zoneDetectedKey = "vitrina_zone_detected"
)

// Scoper entrega una capa con las claves del visitante.
type Scoper interface {
	Scoped(ns string) persist.Layer
}

type Deps struct {
	Products    *usecase.ProductUC
	Overrides   *usecase.StockOverrideBus
	Admin       *usecase.OverrideAdminUC
	Orders      domain.OrderRepo
	Locator     domain.GeoLocator
	Tracker     domain.Tracker
	Persistent  Scoper
	Session     Scoper
	SessionKey  []byte
	AdminKey    string
	Secure      bool
	Threshold   float64
	DeliveryFee float64
	GeoTimeout  time.Duration
	Capitals    []string
	Locale      string
}

type Server struct {
	mux *http.ServeMux
	d   Deps
}

func New(d Deps) http.Handler {
	s := &Server{mux: http.NewServeMux(), d: d}
	s.routes()
	return Chain(s.mux,
		Session(d.Secure),
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "ok"})
	})

	s.mux.HandleFunc("/api/products", s.apiProducts)

	s.mux.HandleFunc("/api/cart", s.apiCart)
	s.mux.HandleFunc("/api/cart/add", s.apiCartAdd)
	s.mux.HandleFunc("/api/cart/update", s.apiCartUpdate)
	s.mux.HandleFunc("/api/cart/remove", s.apiCartRemove)
	s.mux.HandleFunc("/api/cart/clear", s.apiCartClear)

	s.mux.HandleFunc("/api/identity", s.apiIdentity)
	s.mux.HandleFunc("/api/profile", s.apiProfile)
	s.mux.HandleFunc("/api/delivery", s.apiDelivery)
	s.mux.HandleFunc("/api/checkout", s.apiCheckout)
	s.mux.HandleFunc("/api/orders/", s.apiOrder)

	s.mux.HandleFunc("/admin/overrides", s.adminOverrides)
	s.mux.HandleFunc("/admin/overrides/audit", s.adminOverridesAudit)
	s.mux.HandleFunc("/admin/overrides/export", s.adminOverridesExport)
}

// visitor agrupa el estado del cliente para una request.
type visitor struct {
	sid     string
	jar     *cookie.Jar
	session persist.Layer
	layers  []persist.Layer
	// cart es la capa del carrito: la persistente del visitante, o una
	// cookie firmada si no hay capa persistente.
	cart persist.Layer
}

func (s *Server) visitor(w http.ResponseWriter, r *http.Request) *visitor {
	sid := SessionID(r.Context())
	v := &visitor{
		sid: sid,
		jar: cookie.New(w, r, cookie.WithSecure(s.d.Secure)),
	}
	v.layers = []persist.Layer{v.jar}
	if s.d.Persistent != nil {
		p := s.d.Persistent.Scoped(sid)
		v.layers = append(v.layers, p)
		v.cart = p
	} else {
		v.cart = cookie.New(w, r, cookie.WithSecret(s.d.SessionKey), cookie.WithSecure(s.d.Secure))
	}
	if s.d.Session != nil {
		v.session = s.d.Session.Scoped(sid)
		v.layers = append(v.layers, v.session)
	}
	return v
}

func (s *Server) cart(ctx context.Context, v *visitor) *usecase.CartUC {
	return usecase.NewCart(ctx, usecase.CartConfig{
		Layer:     v.cart,
		Guard:     s.d.Overrides,
		Tracker:   s.d.Tracker,
		Threshold: s.d.Threshold,
	})
}

func (s *Server) profile(v *visitor) *usecase.ProfileUC {
	return &usecase.ProfileUC{Store: usecase.NewProfileStore(v.layers)}
}

func (s *Server) identity(v *visitor) *usecase.IdentityUC {
	return &usecase.IdentityUC{Store: usecase.NewIdentityStore(v.layers)}
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	qv := r.URL.Query()
	page, _ := strconv.Atoi(qv.Get("page"))
	list, total, err := s.d.Products.List(r.Context(), domain.ProductFilter{
		Page:     page,
		PageSize: 24,
		Query:    qv.Get("q"),
		Category: qv.Get("category"),
	})
	if err != nil {
		log.Error().Err(err).Msg("listar productos")
		http.Error(w, "err", 500)
		return
	}
	writeJSON(w, 200, map[string]any{"items": list, "total": total})
}

type cartReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(v)
}

func (s *Server) apiCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	c := s.cart(r.Context(), s.visitor(w, r))
	writeJSON(w, 200, c.Snapshot())
}

func (s *Server) apiCartAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req cartReq
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		http.Error(w, "json", 400)
		return
	}
	p, err := s.d.Products.Get(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "prod", 404)
			return
		}
		log.Error().Err(err).Str("product", req.ProductID).Msg("buscar producto")
		http.Error(w, "err", 500)
		return
	}
	c := s.cart(r.Context(), s.visitor(w, r))
	added := c.AddItem(r.Context(), *p)
	writeJSON(w, 200, map[string]any{"added": added, "cart": c.Snapshot()})
}

func (s *Server) apiCartUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req cartReq
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		http.Error(w, "json", 400)
		return
	}
	c := s.cart(r.Context(), s.visitor(w, r))
	ok := c.UpdateQuantity(r.Context(), req.ProductID, req.Quantity)
	writeJSON(w, 200, map[string]any{"updated": ok, "cart": c.Snapshot()})
}

func (s *Server) apiCartRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req cartReq
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		http.Error(w, "json", 400)
		return
	}
	c := s.cart(r.Context(), s.visitor(w, r))
	c.RemoveItem(r.Context(), req.ProductID)
	writeJSON(w, 200, map[string]any{"cart": c.Snapshot()})
}

func (s *Server) apiCartClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	c := s.cart(r.Context(), s.visitor(w, r))
	c.Clear(r.Context())
	writeJSON(w, 200, map[string]any{"cart": c.Snapshot()})
}

func (s *Server) apiIdentity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	v := s.visitor(w, r)
	uc := s.identity(v)
	id := uc.Identity(r.Context(), fingerprint(r))
	writeJSON(w, 200, map[string]any{"id": id, "layers": uc.Store.Layers(r.Context())})
}

func (s *Server) apiProfile(w http.ResponseWriter, r *http.Request) {
	uc := s.profile(s.visitor(w, r))
	switch r.Method {
	case http.MethodGet:
		rec, ok := uc.Load(r.Context())
		writeJSON(w, 200, map[string]any{"saved": ok && rec.HasContact(), "profile": rec})
	case http.MethodPost:
		var rec domain.CustomerRecord
		if err := decode(w, r, &rec); err != nil {
			http.Error(w, "json", 400)
			return
		}
		uc.Save(r.Context(), rec)
		w.WriteHeader(204)
	case http.MethodDelete:
		uc.Clear(r.Context())
		w.WriteHeader(204)
	default:
		http.Error(w, "method", 405)
	}
}

// delivery arma el estimador del visitante. La zona detectada y el override
// manual viven en la capa de sesión, así la consulta se hace una vez.
func (s *Server) delivery(ctx context.Context, r *http.Request, v *visitor) *usecase.DeliveryUC {
	d := usecase.NewDelivery(usecase.DeliveryConfig{
		Locator:  s.d.Locator,
		IP:       clientIP(r),
		Timeout:  s.d.GeoTimeout,
		Capitals: s.d.Capitals,
	})
	if v.session != nil {
		if raw, ok, err := v.session.Read(ctx, zoneManualKey); err == nil && ok {
			d.SetManual(domain.ParseZone(raw))
		}
		if raw, ok, err := v.session.Read(ctx, zoneDetectedKey); err == nil && ok {
			if z := domain.ParseZone(raw); z != domain.ZoneUnknown {
				d.SetDetected(z)
				return d
			}
		}
	}
	d.Detect(ctx)
	if v.session != nil {
		if err := v.session.Write(ctx, zoneDetectedKey, d.Detected().String()); err != nil {
			log.Warn().Err(err).Msg("no se pudo guardar la zona detectada")
		}
	}
	return d
}

func (s *Server) apiDelivery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	v := s.visitor(w, r)
	qv := r.URL.Query()
	if z := qv.Get("zone"); z != "" && v.session != nil {
		switch z {
		case "auto":
			if err := v.session.Remove(r.Context(), zoneManualKey); err != nil {
				log.Warn().Err(err).Msg("no se pudo borrar la zona manual")
			}
		default:
			if zone := domain.ParseZone(z); zone != domain.ZoneUnknown {
				if err := v.session.Write(r.Context(), zoneManualKey, zone.String()); err != nil {
					log.Warn().Err(err).Msg("no se pudo guardar la zona manual")
				}
			}
		}
	}
	d := s.delivery(r.Context(), r, v)
	locale := qv.Get("locale")
	if locale == "" {
		locale = s.d.Locale
	}
	win := d.Window(time.Now())
	writeJSON(w, 200, map[string]any{
		"zone":       d.Zone().String(),
		"isCapital":  d.IsCapital(),
		"processing": usecase.FormatDate(win.Processing, locale),
		"start":      usecase.FormatDate(win.Start, locale),
		"end":        usecase.FormatDate(win.End, locale),
		"window":     win,
	})
}

func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var form usecase.CheckoutForm
	if err := decode(w, r, &form); err != nil {
		http.Error(w, "json", 400)
		return
	}
	ctx := r.Context()
	v := s.visitor(w, r)
	form.DeviceID = s.identity(v).Identity(ctx, fingerprint(r))
	form.Zone = s.delivery(ctx, r, v).Zone()
	uc := &usecase.CheckoutUC{
		Orders:      s.d.Orders,
		Products:    s.d.Products.Products,
		Guard:       s.d.Overrides,
		Cart:        s.cart(ctx, v),
		Profile:     s.profile(v),
		DeliveryFee: s.d.DeliveryFee,
	}
	o, err := uc.Submit(ctx, form)
	switch {
	case errors.Is(err, domain.ErrInvalidCustomer):
		writeJSON(w, 422, map[string]any{"error": "datos"})
	case errors.Is(err, domain.ErrEmptyCart):
		writeJSON(w, 422, map[string]any{"error": "vacio"})
	case errors.Is(err, domain.ErrOutOfStock):
		writeJSON(w, 409, map[string]any{"error": "stock"})
	case err != nil:
		log.Error().Err(err).Str("req_id", RequestIDFrom(ctx)).Msg("checkout")
		writeJSON(w, 500, map[string]any{"error": "orden"})
	default:
		writeJSON(w, 201, o)
	}
}

// apiOrder devuelve una orden sólo al dispositivo que la hizo.
func (s *Server) apiOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/api/orders/"))
	if err != nil {
		http.Error(w, "id", 400)
		return
	}
	o, err := s.d.Orders.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "not found", 404)
			return
		}
		log.Error().Err(err).Str("order_id", id.String()).Msg("buscar orden")
		http.Error(w, "err", 500)
		return
	}
	device := s.identity(s.visitor(w, r)).Identity(r.Context(), fingerprint(r))
	if o.DeviceID != device {
		http.Error(w, "not found", 404)
		return
	}
	writeJSON(w, 200, o)
}

func (s *Server) adminOverrides(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	actor := adminActor(r)
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, 200, s.d.Overrides.Get())
	case http.MethodPost:
		var req struct {
			ProductID string `json:"productId"`
			Available *bool  `json:"available"`
		}
		if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.ProductID) == "" || req.Available == nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.d.Admin.Set(r.Context(), actor, req.ProductID, *req.Available); err != nil {
			http.Error(w, "conflict", 409)
			return
		}
		writeJSON(w, 200, s.d.Overrides.Get())
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("productId"))
		if id == "" {
			http.Error(w, "productId", 400)
			return
		}
		if err := s.d.Admin.Clear(r.Context(), actor, id); err != nil {
			http.Error(w, "conflict", 409)
			return
		}
		writeJSON(w, 200, s.d.Overrides.Get())
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) adminOverridesAudit(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	qv := r.URL.Query()
	var (
		list []domain.OverrideAudit
		err  error
	)
	if id := strings.TrimSpace(qv.Get("productId")); id != "" {
		list, err = s.d.Admin.History(r.Context(), id)
	} else {
		limit, _ := strconv.Atoi(qv.Get("limit"))
		list, err = s.d.Admin.Recent(r.Context(), limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("auditoría de overrides")
		http.Error(w, "err", 500)
		return
	}
	writeJSON(w, 200, map[string]any{"items": list})
}

func (s *Server) adminOverridesExport(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	items, err := s.d.Admin.Effective(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("export overrides")
		http.Error(w, "err", 500)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="overrides.xlsx"`)
	if err := export.WriteOverrides(w, items); err != nil {
		log.Error().Err(err).Msg("escribir xlsx")
	}
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get("X-Admin-Key")
	if s.d.AdminKey == "" || !secureCompare(key, s.d.AdminKey) {
		http.Error(w, "unauthorized", 401)
		return false
	}
	return true
}

func adminActor(r *http.Request) string {
	if a := strings.TrimSpace(r.Header.Get("X-Admin-User")); a != "" {
		return a
	}
	return "admin"
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func fingerprint(r *http.Request) usecase.Fingerprint {
	w, _ := strconv.Atoi(r.Header.Get("X-Screen-Width"))
	h, _ := strconv.Atoi(r.Header.Get("X-Screen-Height"))
	return usecase.Fingerprint{UserAgent: r.UserAgent(), ScreenWidth: w, ScreenHeight: h}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() {
		return ""
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
