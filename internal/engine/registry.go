package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
)

// Registry owns the active registrations and their providers. Register,
// Unregister and Dispose are its only mutators; no state lives in package
// globals.
//
// Register and Unregister touch provider state and must run on the
// goroutine that delivers editor events (inline for an editor.Workspace,
// inside Loop.Do for a Loop). Read accessors are safe from anywhere.
type Registry struct {
	ws     Workspace
	outbox *Outbox
	opts   *options
	logger *slog.Logger

	mu        sync.Mutex
	providers map[string]Provider
	order     []string
	disposed  bool
}

// NewRegistry creates a registry that mirrors notebooks from ws and hands
// notifications to sender through its outbox.
func NewRegistry(ws Workspace, sender Sender, opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Registry{
		ws:        ws,
		outbox:    newOutbox(sender, o),
		opts:      o,
		logger:    o.logger,
		providers: make(map[string]Provider),
	}
}

// Outbox returns the registry's outbox. Callers drive it with Run or Drain.
func (r *Registry) Outbox() *Outbox {
	return r.outbox
}

// Register validates reg, creates the provider for its mode, subscribes it
// to the editor and replays notebooks that are already open. A missing ID
// is filled from the ID generator.
func (r *Registry) Register(reg protocol.Registration) (Provider, error) {
	if !reg.EffectiveMode().Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, reg.Mode)
	}
	if reg.ID == "" {
		reg.ID = r.opts.idGen.Generate()
	}
	reg.Mode = reg.EffectiveMode()

	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return nil, ErrDisposed
	}
	if _, exists := r.providers[reg.ID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRegistration, reg.ID)
	}

	base := newProviderBase(reg, r.ws, r.outbox, r.opts)
	var (
		p     Provider
		start func()
	)
	switch reg.Mode {
	case protocol.SyncModeCellContent:
		cs := newCellContentSync(base)
		p, start = cs, cs.start
	default:
		ns := newNotebookSync(base)
		p, start = ns, ns.start
	}
	r.providers[reg.ID] = p
	r.order = append(r.order, reg.ID)
	r.mu.Unlock()

	r.logger.Info("registration created",
		"registration", reg.ID,
		"mode", string(reg.Mode),
		"selectors", len(reg.NotebookSelector),
		"save", reg.Save,
	)
	start()
	return p, nil
}

// Unregister disposes and removes a registration.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	p, ok := r.providers[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRegistration, id)
	}
	delete(r.providers, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	p.Dispose()
	r.logger.Info("registration removed", "registration", id)
	return nil
}

// Provider returns the provider for a registration ID.
func (r *Registry) Provider(id string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	return p, ok
}

// Providers returns all providers in registration order.
func (r *Registry) Providers() []Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// Handles reports whether any registration is interested in cell.
func (r *Registry) Handles(cell *editor.Cell) bool {
	for _, p := range r.Providers() {
		if p.Handles(cell) {
			return true
		}
	}
	return false
}

// Dispose disposes every provider without sending closes and stops the
// outbox. Later Register calls fail with ErrDisposed.
func (r *Registry) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	providers := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		providers = append(providers, r.providers[id])
	}
	clear(r.providers)
	r.order = nil
	r.mu.Unlock()

	for _, p := range providers {
		p.Dispose()
	}
	r.outbox.Stop()
	r.logger.Info("registry disposed", "registrations", len(providers))
}
