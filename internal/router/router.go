// Package router is the owning side of bridge links: it holds the registered
// interfaces, fans inbound payloads out to handlers and routes outbound ones.
package router

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danmuck/meshlink/internal/link"
	"github.com/rs/zerolog"
)

var (
	ErrInterfaceNil     = errors.New("router: interface is nil")
	ErrInterfaceExists  = errors.New("router: interface already registered")
	ErrUnknownInterface = errors.New("router: unknown interface")
	ErrInvalidName      = errors.New("router: interface name required")
)

// HandlerFunc consumes one inbound payload. Handlers run on the reader
// goroutine of the interface that received it.
type HandlerFunc func(payload []byte, from *link.Interface)

// Router implements link.Owner for every interface it registers.
type Router struct {
	logger zerolog.Logger

	mu       sync.RWMutex
	items    map[string]*link.Interface
	handlers []HandlerFunc

	inbound   atomic.Uint64
	outbound  atomic.Uint64
	broadcast atomic.Uint64
}

// New creates an empty router.
func New(logger zerolog.Logger) *Router {
	return &Router{
		logger: logger.With().Str("component", "router").Logger(),
		items:  make(map[string]*link.Interface),
	}
}

// Register adds iface under its configured name.
func (r *Router) Register(iface *link.Interface) error {
	if iface == nil {
		return ErrInterfaceNil
	}
	name := strings.TrimSpace(iface.Name())
	if name == "" {
		return ErrInvalidName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[name]; ok {
		return fmt.Errorf("%w: %q", ErrInterfaceExists, name)
	}
	r.items[name] = iface
	r.logger.Debug().Str("iface", name).Msg("interface registered")
	return nil
}

// Unregister removes the named interface and returns it. It does not detach it.
func (r *Router) Unregister(name string) (*link.Interface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iface, ok := r.items[name]
	if ok {
		delete(r.items, name)
	}
	return iface, ok
}

func (r *Router) Get(name string) (*link.Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	iface, ok := r.items[name]
	return iface, ok
}

// All returns the registered interfaces sorted by name.
func (r *Router) All() []*link.Interface {
	r.mu.RLock()
	list := make([]*link.Interface, 0, len(r.items))
	for _, iface := range r.items {
		list = append(list, iface)
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// Handle appends fn to the inbound handler chain.
func (r *Router) Handle(fn HandlerFunc) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.handlers = append(r.handlers, fn)
	r.mu.Unlock()
}

// Inbound dispatches payload to every handler in registration order.
func (r *Router) Inbound(payload []byte, iface *link.Interface) {
	r.inbound.Add(1)
	r.mu.RLock()
	handlers := r.handlers
	r.mu.RUnlock()
	if len(handlers) == 0 {
		r.logger.Trace().Str("iface", iface.Name()).Int("len", len(payload)).Msg("inbound payload unhandled")
		return
	}
	for _, h := range handlers {
		h(payload, iface)
	}
}

// Transmit sends payload out the named interface.
func (r *Router) Transmit(name string, payload []byte) error {
	iface, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInterface, name)
	}
	if err := iface.Outgoing(payload); err != nil {
		return err
	}
	r.outbound.Add(1)
	return nil
}

// Broadcast sends payload on every online interface except the one named by
// except, and returns how many interfaces accepted it.
func (r *Router) Broadcast(payload []byte, except string) (int, error) {
	sent := 0
	var errs []error
	for _, iface := range r.All() {
		if iface.Name() == except || !iface.Online() {
			continue
		}
		if err := iface.Outgoing(payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", iface.Name(), err))
			continue
		}
		sent++
	}
	r.broadcast.Add(1)
	return sent, errors.Join(errs...)
}

// Statuses snapshots every interface, sorted by name.
func (r *Router) Statuses() []link.Status {
	all := r.All()
	out := make([]link.Status, 0, len(all))
	for _, iface := range all {
		out = append(out, iface.Status())
	}
	return out
}

// Online reports how many registered interfaces currently hold a connection.
func (r *Router) Online() int {
	n := 0
	for _, iface := range r.All() {
		if iface.Online() {
			n++
		}
	}
	return n
}

// StartAll starts every registered interface. Interfaces started before an
// error stay running.
func (r *Router) StartAll() error {
	for _, iface := range r.All() {
		if err := iface.Start(); err != nil {
			return fmt.Errorf("start %s: %w", iface.Name(), err)
		}
		r.logger.Info().Str("iface", iface.Name()).Str("addr", iface.Config().Address()).Msg("interface started")
	}
	return nil
}

// DetachAll detaches every registered interface concurrently and waits.
func (r *Router) DetachAll() {
	var wg sync.WaitGroup
	for _, iface := range r.All() {
		wg.Add(1)
		go func(iface *link.Interface) {
			defer wg.Done()
			iface.Detach()
		}(iface)
	}
	wg.Wait()
}

// Counters reports inbound payloads, successful transmits and broadcasts.
func (r *Router) Counters() (inbound, outbound, broadcasts uint64) {
	return r.inbound.Load(), r.outbound.Load(), r.broadcast.Load()
}

// Loopback returns a handler that echoes every payload back out the
// interface it arrived on.
func (r *Router) Loopback() HandlerFunc {
	return func(payload []byte, from *link.Interface) {
		if err := from.Outgoing(payload); err != nil {
			r.logger.Warn().Str("iface", from.Name()).Err(err).Msg("loopback send failed")
		}
	}
}
