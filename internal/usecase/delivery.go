package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/metrics"
)

const DefaultGeoTimeout = 3 * time.Second

// DeliveryUC estima la ventana de entrega según la zona del cliente. La zona
// detectada se resuelve una sola vez; un override manual le gana durante el
// resto de la sesión.
type DeliveryUC struct {
	locator  domain.GeoLocator
	ip       string
	timeout  time.Duration
	capitals []string

	mu       sync.RWMutex
	detected domain.Zone
	manual   domain.Zone
	started  bool
	done     chan struct{}
	doneOnce sync.Once
}

type DeliveryConfig struct {
	Locator domain.GeoLocator
	// IP del cliente; vacía para que el servicio use la del pedido.
	IP      string
	Timeout time.Duration
	// Capitals son los nombres de ciudad que cuentan como capital.
	Capitals []string
}

func NewDelivery(cfg DeliveryConfig) *DeliveryUC {
	d := &DeliveryUC{locator: cfg.Locator, ip: cfg.IP, timeout: cfg.Timeout, capitals: cfg.Capitals, done: make(chan struct{})}
	if d.timeout <= 0 {
		d.timeout = DefaultGeoTimeout
	}
	if len(d.capitals) == 0 {
		d.capitals = []string{"Tbilisi", "თბილისი"}
	}
	return d
}

// Start lanza la detección en segundo plano. Llamadas extra no hacen nada.
// El canal devuelto se cierra cuando hay una zona detectada.
func (d *DeliveryUC) Start(ctx context.Context) <-chan struct{} {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return d.done
	}
	d.started = true
	d.mu.Unlock()
	go d.detect(ctx)
	return d.done
}

// Detect es la versión bloqueante de Start.
func (d *DeliveryUC) Detect(ctx context.Context) domain.Zone {
	select {
	case <-d.Start(ctx):
	case <-ctx.Done():
	}
	return d.Zone()
}

func (d *DeliveryUC) detect(ctx context.Context) {
	zone := domain.ZoneRegion
	if d.locator != nil {
		lctx, cancel := context.WithTimeout(ctx, d.timeout)
		type result struct {
			city string
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			city, err := d.locator.City(lctx, d.ip)
			ch <- result{city, err}
		}()
		select {
		case r := <-ch:
			if r.err != nil {
				metrics.GeoLookups.WithLabelValues("error").Inc()
				log.Warn().Err(r.err).Msg("geolocalización falló, se asume región")
			} else if d.isCapital(r.city) {
				metrics.GeoLookups.WithLabelValues("capital").Inc()
				zone = domain.ZoneCapital
			} else {
				metrics.GeoLookups.WithLabelValues("region").Inc()
			}
		case <-lctx.Done():
			// el resultado tardío se descarta
			metrics.GeoLookups.WithLabelValues("timeout").Inc()
			log.Warn().Dur("timeout", d.timeout).Msg("geolocalización sin respuesta, se asume región")
		}
		cancel()
	}
	d.SetDetected(zone)
}

// SetDetected fija la zona detectada sin consultar (por ejemplo, cacheada en
// la sesión). Una detección en curso que termine después la pisa.
func (d *DeliveryUC) SetDetected(z domain.Zone) {
	d.mu.Lock()
	d.detected = z
	d.started = true
	d.mu.Unlock()
	d.doneOnce.Do(func() { close(d.done) })
}

// Detected devuelve la zona detectada, ignorando el override manual.
func (d *DeliveryUC) Detected() domain.Zone {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.detected
}

func (d *DeliveryUC) isCapital(city string) bool {
	c := strings.TrimSpace(city)
	for _, name := range d.capitals {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

func (d *DeliveryUC) SetManual(z domain.Zone) {
	d.mu.Lock()
	d.manual = z
	d.mu.Unlock()
}

func (d *DeliveryUC) ClearManual() { d.SetManual(domain.ZoneUnknown) }

// Loading indica que todavía no hay zona detectada ni manual.
func (d *DeliveryUC) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.manual == domain.ZoneUnknown && d.detected == domain.ZoneUnknown
}

// Zone es la zona vigente: manual, si no la detectada.
func (d *DeliveryUC) Zone() domain.Zone {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.manual != domain.ZoneUnknown {
		return d.manual
	}
	return d.detected
}

// IsCapital es false mientras se detecta.
func (d *DeliveryUC) IsCapital() bool { return d.Zone() == domain.ZoneCapital }

func (d *DeliveryUC) Window(now time.Time) domain.DeliveryWindow {
	return DeliveryWindowFor(now, d.IsCapital())
}

// DeliveryWindowFor: procesamiento hoy a medianoche local, entrega desde el
// día siguiente, hasta +1 día en capital y +2 en región.
func DeliveryWindowFor(now time.Time, capital bool) domain.DeliveryWindow {
	y, m, day := now.Date()
	processing := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	end := processing.AddDate(0, 0, 2)
	if capital {
		end = processing.AddDate(0, 0, 1)
	}
	return domain.DeliveryWindow{
		Processing: processing,
		Start:      processing.AddDate(0, 0, 1),
		End:        end,
	}
}

var weekdayNames = map[string][7]string{
	"ka": {"კვი", "ორშ", "სამ", "ოთხ", "ხუთ", "პარ", "შაბ"},
	"en": {"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
}

var monthNames = map[string][12]string{
	"ka": {"იან", "თებ", "მარ", "აპრ", "მაი", "ივნ", "ივლ", "აგვ", "სექ", "ოქტ", "ნოე", "დეკ"},
	"en": {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

// FormatDate arma "ორშ, 5 იან". Locales desconocidos caen en "ka".
func FormatDate(t time.Time, locale string) string {
	wd, ok := weekdayNames[locale]
	if !ok {
		locale = "ka"
		wd = weekdayNames[locale]
	}
	mn := monthNames[locale]
	return fmt.Sprintf("%s, %d %s", wd[t.Weekday()], t.Day(), mn[t.Month()-1])
}
