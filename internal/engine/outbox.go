package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/codes"

	"github.com/roach88/nbsync/internal/protocol"
)

// Delivery is one notification waiting in, or taken from, the outbox.
type Delivery struct {
	Seq          int64
	Registration string
	Method       string
	Document     string
	Params       any
}

// Outbox decouples handlers from the transport. Handlers enqueue and return
// immediately; deliveries are sent in FIFO order either by Run on its own
// goroutine or synchronously by Drain.
//
// A failed delivery is logged, counted and reported to the error handler.
// It is not retried and the sync state that produced it is not rolled back.
type Outbox struct {
	queue      *queue[Delivery]
	sender     Sender
	middleware Middleware
	clock      *Clock
	logger     *slog.Logger
	onError    func(error)

	// deliverMu keeps Run and Drain from interleaving sends.
	deliverMu sync.Mutex
}

func newOutbox(sender Sender, o *options) *Outbox {
	return &Outbox{
		queue:      newQueue[Delivery](),
		sender:     sender,
		middleware: o.middleware,
		clock:      o.clock,
		logger:     o.logger,
		onError:    o.onError,
	}
}

func (o *Outbox) enqueue(registration, method string, params any) {
	doc, _ := protocol.DocumentURI(params)
	d := Delivery{
		Seq:          o.clock.Next(),
		Registration: registration,
		Method:       method,
		Document:     doc,
		Params:       params,
	}
	if !o.queue.Enqueue(d) {
		o.logger.Warn("outbox closed, dropping notification",
			"seq", d.Seq,
			"method", method,
			"document", doc,
			"registration", registration,
		)
		return
	}
	o.logger.Debug("notification queued",
		"seq", d.Seq,
		"method", method,
		"document", doc,
		"registration", registration,
	)
}

// Len returns the number of pending deliveries.
func (o *Outbox) Len() int {
	return o.queue.Len()
}

// Drain sends every pending delivery on the calling goroutine and returns
// how many were attempted. Deliveries enqueued while draining are included.
func (o *Outbox) Drain(ctx context.Context) int {
	o.deliverMu.Lock()
	defer o.deliverMu.Unlock()

	n := 0
	for ctx.Err() == nil {
		d, ok := o.queue.TryDequeue()
		if !ok {
			break
		}
		o.deliver(ctx, d)
		n++
	}
	return n
}

// Run sends deliveries as they arrive until ctx is cancelled or Stop is
// called. Must be called from exactly one goroutine. Pending deliveries
// are flushed before Run returns after Stop.
func (o *Outbox) Run(ctx context.Context) error {
	o.logger.Info("outbox starting")

	for {
		if d, ok := o.queue.TryDequeue(); ok {
			o.deliverMu.Lock()
			o.deliver(ctx, d)
			o.deliverMu.Unlock()
			continue
		}

		select {
		case <-ctx.Done():
			o.logger.Info("outbox stopping: context cancelled", "pending", o.queue.Len())
			o.queue.Close()
			return ctx.Err()

		case <-o.queue.Wait():
			if o.queue.Closed() && o.queue.Len() == 0 {
				o.logger.Info("outbox stopping: closed")
				return nil
			}
		}
	}
}

// Stop closes the outbox. Later notifications are dropped with a warning.
func (o *Outbox) Stop() {
	o.queue.Close()
}

func (o *Outbox) deliver(ctx context.Context, d Delivery) {
	ctx = WithRegistration(ctx, d.Registration)
	ctx, span := startDeliverySpan(ctx, d)
	defer span.End()

	err := o.dispatch(ctx, d)
	recordNotification(ctx, d.Method, err)
	if err == nil {
		o.logger.Debug("notification sent",
			"seq", d.Seq,
			"method", d.Method,
			"document", d.Document,
			"registration", d.Registration,
		)
		return
	}

	var se *SyncError
	if !errors.As(err, &se) {
		se = &SyncError{Code: ErrCodeMiddleware, Err: err}
	}
	se.Registration = d.Registration
	se.Notebook = d.Document
	se.Method = d.Method

	span.RecordError(se)
	span.SetStatus(codes.Error, string(se.Code))
	recordSyncError(ctx, se.Code)
	o.logger.Error("notification failed",
		"seq", d.Seq,
		"method", d.Method,
		"document", d.Document,
		"registration", d.Registration,
		"code", se.Code,
		"error", se.Err,
	)
	if o.onError != nil {
		o.onError(se)
	}
}

// send is the default delivery; its failures are transport errors.
func (o *Outbox) send(ctx context.Context, method string, params any) error {
	if err := o.sender.SendNotification(ctx, method, params); err != nil {
		return &SyncError{Code: ErrCodeTransport, Err: err}
	}
	return nil
}

func (o *Outbox) dispatch(ctx context.Context, d Delivery) error {
	mw := o.middleware
	switch p := d.Params.(type) {
	case *protocol.DidOpenNotebookDocumentParams:
		if mw.DidOpen != nil {
			return mw.DidOpen(ctx, p, func(ctx context.Context, p *protocol.DidOpenNotebookDocumentParams) error {
				return o.send(ctx, d.Method, p)
			})
		}
	case *protocol.DidChangeNotebookDocumentParams:
		if mw.DidChange != nil {
			return mw.DidChange(ctx, p, func(ctx context.Context, p *protocol.DidChangeNotebookDocumentParams) error {
				return o.send(ctx, d.Method, p)
			})
		}
	case *protocol.DidSaveNotebookDocumentParams:
		if mw.DidSave != nil {
			return mw.DidSave(ctx, p, func(ctx context.Context, p *protocol.DidSaveNotebookDocumentParams) error {
				return o.send(ctx, d.Method, p)
			})
		}
	case *protocol.DidCloseNotebookDocumentParams:
		if mw.DidClose != nil {
			return mw.DidClose(ctx, p, func(ctx context.Context, p *protocol.DidCloseNotebookDocumentParams) error {
				return o.send(ctx, d.Method, p)
			})
		}
	}
	return o.send(ctx, d.Method, d.Params)
}
