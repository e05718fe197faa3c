package usecase

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/vitrina/internal/domain"
)

const (
	CartOverlay = "cart"
	// DeepLinkParam con valor DeepLinkValue abre el overlay al cargar.
	DeepLinkParam = "cart"
	DeepLinkValue = "open"
)

// OverlayUC mantiene un overlay (el carrito) sincronizado con el historial:
// abrirlo agrega una entrada marcada y el botón atrás lo cierra.
//
// Estados: cerrado y abierto. closing evita que un segundo Close, o el pop
// que dispara el propio Close, repitan la navegación. frame identifica la
// restauración de scroll pendiente; un Open posterior la invalida.
type OverlayUC struct {
	name     string
	history  domain.History
	viewport domain.Viewport

	mu      sync.Mutex
	open    bool
	closing bool
	frame   int
	scrollY float64
	unsub   func()
	onState func(open bool)
}

func NewOverlay(name string, h domain.History, v domain.Viewport) *OverlayUC {
	o := &OverlayUC{name: name, history: h, viewport: v}
	o.unsub = h.OnPop(o.handlePop)
	return o
}

// OnChange registra un callback para cada cambio de estado (para renderizar).
func (o *OverlayUC) OnChange(fn func(open bool)) {
	o.mu.Lock()
	o.onState = fn
	o.mu.Unlock()
}

func (o *OverlayUC) IsOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

func (o *OverlayUC) Open() {
	o.mu.Lock()
	if o.open {
		o.mu.Unlock()
		return
	}
	if o.closing {
		// el scroll todavía no se restauró: se conserva la posición original
		o.closing = false
		o.frame++
	} else {
		o.scrollY = o.viewport.ScrollY()
	}
	o.open = true
	o.mu.Unlock()

	// Después de un Dismiss la entrada actual puede seguir marcada.
	if !domain.IsOverlay(o.history.State(), o.name) {
		o.history.PushState(domain.OverlayState{Overlay: o.name})
	}
	o.changed(true)
}

func (o *OverlayUC) Close() {
	o.mu.Lock()
	if !o.open || o.closing {
		o.mu.Unlock()
		return
	}
	o.open = false
	o.closing = true
	o.mu.Unlock()

	o.changed(false)
	if domain.IsOverlay(o.history.State(), o.name) {
		o.history.Back()
	}
	o.restoreScroll()
}

// Dismiss cierra sin tocar historial ni scroll. Es para cuando se va a
// navegar a otra página y esa navegación reemplaza el historial.
func (o *OverlayUC) Dismiss() {
	o.mu.Lock()
	was := o.open
	o.open = false
	o.mu.Unlock()
	if was {
		o.changed(false)
	}
}

// Boot procesa el deep link: si la URL trae ?cart=open, lo quita sin crear
// una entrada y abre el overlay.
func (o *OverlayUC) Boot() {
	u := o.history.URL()
	if u == nil {
		return
	}
	q := u.Query()
	if q.Get(DeepLinkParam) != DeepLinkValue {
		return
	}
	q.Del(DeepLinkParam)
	clean := *u
	clean.RawQuery = q.Encode()
	o.history.ReplaceURL(&clean)
	log.Debug().Str("overlay", o.name).Msg("deep link: abriendo overlay")
	o.Open()
}

// Detach deja de escuchar el historial.
func (o *OverlayUC) Detach() {
	if o.unsub != nil {
		o.unsub()
		o.unsub = nil
	}
}

func (o *OverlayUC) handlePop(state domain.HistoryState) {
	o.mu.Lock()
	if !o.open || o.closing || domain.IsOverlay(state, o.name) {
		o.mu.Unlock()
		return
	}
	o.open = false
	o.closing = true
	o.mu.Unlock()

	o.changed(false)
	o.restoreScroll()
}

func (o *OverlayUC) restoreScroll() {
	o.mu.Lock()
	o.frame++
	gen := o.frame
	y := o.scrollY
	o.mu.Unlock()
	o.viewport.NextFrame(func() {
		o.mu.Lock()
		stale := gen != o.frame
		if !stale {
			o.closing = false
		}
		o.mu.Unlock()
		if !stale {
			o.viewport.ScrollTo(y)
		}
	})
}

func (o *OverlayUC) changed(open bool) {
	o.mu.Lock()
	fn := o.onState
	o.mu.Unlock()
	if fn != nil {
		fn(open)
	}
}
