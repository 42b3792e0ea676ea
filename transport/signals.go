package transport

import (
	"context"
	"sync"
	"time"
)

// Unauthorized is published when the server answers 401.
type Unauthorized struct {
	Method    string
	Path      string
	RequestID string
	// HadToken is true when the rejected request carried a bearer token.
	HadToken bool
	At       time.Time
}

// Handler consumes [Unauthorized] signals.
type Handler func(ctx context.Context, sig Unauthorized)

// Signals fans [Unauthorized] signals out to subscribers. The zero value is
// ready to use. Publish runs the handlers synchronously, so a call that
// failed with 401 returns only after every subscriber has reacted.
type Signals struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	next     uint64
}

// NewSignals returns an empty broadcaster.
func NewSignals() *Signals {
	return &Signals{handlers: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (s *Signals) Subscribe(h Handler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.handlers == nil {
		s.handlers = make(map[uint64]Handler)
	}
	id := s.next
	s.next++
	s.handlers[id] = h
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

// Publish delivers sig to every subscriber.
func (s *Signals) Publish(ctx context.Context, sig Unauthorized) {
	if s == nil {
		return
	}
	s.mu.RLock()
	hs := make([]Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		hs = append(hs, h)
	}
	s.mu.RUnlock()

	// Subscribers clear persisted state; a caller cancellation must not
	// abort that.
	ctx = context.WithoutCancel(ctx)
	for _, h := range hs {
		h(ctx, sig)
	}
}
