package domain

import "net/url"

// HistoryState es el estado adjunto a una entrada del historial. Es un tipo
// cerrado: PageState o OverlayState.
type HistoryState interface {
	isHistoryState()
}

// PageState es una entrada normal de navegación.
type PageState struct{}

// OverlayState marca la entrada que pertenece al overlay.
type OverlayState struct {
	Overlay string `json:"overlay"`
}

func (PageState) isHistoryState()    {}
func (OverlayState) isHistoryState() {}

// IsOverlay reporta si s es la marca del overlay indicado.
func IsOverlay(s HistoryState, name string) bool {
	o, ok := s.(OverlayState)
	return ok && o.Overlay == name
}

// History es la pila de navegación del navegador.
type History interface {
	State() HistoryState
	URL() *url.URL
	PushState(s HistoryState)
	// ReplaceURL cambia la URL actual sin crear una entrada nueva.
	ReplaceURL(u *url.URL)
	// Back navega hacia atrás; el evento pop llega por OnPop.
	Back()
	OnPop(fn func(HistoryState)) (unsubscribe func())
}

// Viewport abstrae el scroll de la ventana y el próximo frame de pintado.
type Viewport interface {
	ScrollY() float64
	ScrollTo(y float64)
	NextFrame(fn func())
}
