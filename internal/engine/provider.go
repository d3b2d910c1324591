package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
	"github.com/roach88/nbsync/internal/selector"
)

// Workspace is the editor surface providers consume: event streams plus
// read access to the open notebooks. *editor.Workspace and *Loop satisfy it.
type Workspace interface {
	editor.Source
	editor.Snapshot
}

// Provider mirrors notebooks for one registration. There is one
// implementation per SyncMode, chosen once at registration time.
type Provider interface {
	// Registration returns the registration the provider serves.
	Registration() protocol.Registration

	// Mode returns the provider's sync mode.
	Mode() protocol.SyncMode

	// Handles reports whether the registration is interested in cell.
	Handles(cell *editor.Cell) bool

	// Dispose detaches from the editor and forgets all state without
	// sending close notifications.
	Dispose()
}

// providerBase holds what both providers share.
type providerBase struct {
	reg     protocol.Registration
	ws      Workspace
	emit    emitter
	logger  *slog.Logger
	onError func(error)

	unsub    editor.Unsubscribe
	disposed bool
}

func newProviderBase(reg protocol.Registration, ws Workspace, outbox *Outbox, o *options) providerBase {
	return providerBase{
		reg:     reg,
		ws:      ws,
		emit:    emitter{registration: reg.ID, outbox: outbox},
		logger:  o.logger.With("registration", reg.ID, "mode", string(reg.EffectiveMode())),
		onError: o.onError,
	}
}

// Registration returns the registration the provider serves.
func (b *providerBase) Registration() protocol.Registration {
	return b.reg
}

// Handles reports whether the registration is interested in cell. A cell
// that no longer belongs to a notebook is never handled.
func (b *providerBase) Handles(cell *editor.Cell) bool {
	nb := cell.Notebook()
	if nb == nil {
		return false
	}
	_, ok := selector.SelectCells(b.reg, nb, []*editor.Cell{cell})
	return ok
}

func (b *providerBase) detach() bool {
	if b.disposed {
		return false
	}
	b.disposed = true
	if b.unsub != nil {
		b.unsub()
	}
	return true
}

// serializationError reports a handler failure. The event is dropped; the
// caller has not touched the store.
func (b *providerBase) serializationError(uri, method string, err error) {
	se := &SyncError{
		Code:         ErrCodeSerialization,
		Registration: b.reg.ID,
		Notebook:     uri,
		Method:       method,
		Err:          err,
	}
	recordSyncError(context.Background(), se.Code)
	b.logger.Error("dropping editor event",
		"notebook", uri,
		"method", method,
		"error", err,
	)
	if b.onError != nil {
		b.onError(se)
	}
}
