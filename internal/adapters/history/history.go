// Package history es una pila de navegación en memoria con la semántica de
// la History API: pushState, replaceState y back con evento pop.
package history

import (
	"net/url"
	"sync"

	"github.com/phenrril/vitrina/internal/domain"
)

type entry struct {
	url   url.URL
	state domain.HistoryState
}

type Stack struct {
	mu        sync.Mutex
	entries   []entry
	pos       int
	listeners map[int]func(domain.HistoryState)
	order     []int
	nextID    int
}

func New(start *url.URL) *Stack {
	return &Stack{
		entries:   []entry{{url: *start, state: domain.PageState{}}},
		listeners: map[int]func(domain.HistoryState){},
	}
}

func (s *Stack) State() domain.HistoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[s.pos].state
}

func (s *Stack) URL() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.entries[s.pos].url
	return &u
}

// PushState descarta las entradas "adelante" y agrega una nueva con la URL
// actual.
func (s *Stack) PushState(st domain.HistoryState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.entries[s.pos]
	s.entries = append(s.entries[:s.pos+1], entry{url: cur.url, state: st})
	s.pos++
}

func (s *Stack) ReplaceURL(u *url.URL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.pos].url = *u
}

// Navigate simula un link a otra página.
func (s *Stack) Navigate(u *url.URL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries[:s.pos+1], entry{url: *u, state: domain.PageState{}})
	s.pos++
}

// Back retrocede una entrada y notifica a los listeners. En la primera
// entrada no hace nada.
func (s *Stack) Back() {
	s.mu.Lock()
	if s.pos == 0 {
		s.mu.Unlock()
		return
	}
	s.pos--
	st := s.entries[s.pos].state
	fns := make([]func(domain.HistoryState), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (s *Stack) OnPop(fn func(domain.HistoryState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.order = append(s.order, id)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Stack) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// OverlayEntries cuenta las entradas hasta la posición actual que llevan la
// marca del overlay.
func (s *Stack) OverlayEntries(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries[:s.pos+1] {
		if domain.IsOverlay(e.state, name) {
			n++
		}
	}
	return n
}

// Window es un viewport en memoria: guarda el scroll y encola callbacks de
// frame hasta Flush.
type Window struct {
	mu     sync.Mutex
	y      float64
	frames []func()
}

func (w *Window) ScrollY() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.y
}

func (w *Window) ScrollTo(y float64) {
	w.mu.Lock()
	w.y = y
	w.mu.Unlock()
}

func (w *Window) NextFrame(fn func()) {
	w.mu.Lock()
	w.frames = append(w.frames, fn)
	w.mu.Unlock()
}

// Flush ejecuta los frames pendientes y devuelve cuántos corrió.
func (w *Window) Flush() int {
	w.mu.Lock()
	frames := w.frames
	w.frames = nil
	w.mu.Unlock()
	for _, fn := range frames {
		fn()
	}
	return len(frames)
}
