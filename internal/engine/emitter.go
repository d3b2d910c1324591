package engine

import (
	"context"

	"github.com/roach88/nbsync/internal/protocol"
)

// Sender delivers one notification to the remote side. A returned error
// means the notification may not have arrived; it is logged, never retried.
type Sender interface {
	SendNotification(ctx context.Context, method string, params any) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, method string, params any) error

// SendNotification calls f.
func (f SenderFunc) SendNotification(ctx context.Context, method string, params any) error {
	return f(ctx, method, params)
}

// Middleware intercepts outgoing notebook notifications. Each hook receives
// the params and a next func that performs the default send; a hook may
// call next with modified params, call it later, or not call it at all.
// Nil hooks pass through.
type Middleware struct {
	DidOpen   func(ctx context.Context, params *protocol.DidOpenNotebookDocumentParams, next func(context.Context, *protocol.DidOpenNotebookDocumentParams) error) error
	DidChange func(ctx context.Context, params *protocol.DidChangeNotebookDocumentParams, next func(context.Context, *protocol.DidChangeNotebookDocumentParams) error) error
	DidSave   func(ctx context.Context, params *protocol.DidSaveNotebookDocumentParams, next func(context.Context, *protocol.DidSaveNotebookDocumentParams) error) error
	DidClose  func(ctx context.Context, params *protocol.DidCloseNotebookDocumentParams, next func(context.Context, *protocol.DidCloseNotebookDocumentParams) error) error
}

type registrationKey struct{}

// WithRegistration returns a context carrying the registration ID a
// notification belongs to. The outbox sets it before calling middleware
// and the sender.
func WithRegistration(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, registrationKey{}, id)
}

// RegistrationFromContext returns the registration ID set by WithRegistration.
func RegistrationFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(registrationKey{}).(string)
	return id, ok
}

// emitter turns a provider's decisions into queued deliveries. It never
// blocks on the transport.
type emitter struct {
	registration string
	outbox       *Outbox
}

func (e emitter) didOpen(p *protocol.DidOpenNotebookDocumentParams) {
	e.outbox.enqueue(e.registration, protocol.MethodNotebookDidOpen, p)
}

func (e emitter) didChange(p *protocol.DidChangeNotebookDocumentParams) {
	e.outbox.enqueue(e.registration, protocol.MethodNotebookDidChange, p)
}

func (e emitter) didSave(p *protocol.DidSaveNotebookDocumentParams) {
	e.outbox.enqueue(e.registration, protocol.MethodNotebookDidSave, p)
}

func (e emitter) didClose(p *protocol.DidCloseNotebookDocumentParams) {
	e.outbox.enqueue(e.registration, protocol.MethodNotebookDidClose, p)
}

func (e emitter) textDidOpen(p *protocol.DidOpenTextDocumentParams) {
	e.outbox.enqueue(e.registration, protocol.MethodTextDidOpen, p)
}

func (e emitter) textDidChange(p *protocol.DidChangeTextDocumentParams) {
	e.outbox.enqueue(e.registration, protocol.MethodTextDidChange, p)
}

func (e emitter) textDidClose(p *protocol.DidCloseTextDocumentParams) {
	e.outbox.enqueue(e.registration, protocol.MethodTextDidClose, p)
}
