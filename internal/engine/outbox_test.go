package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/protocol"
	"github.com/roach88/nbsync/internal/testutil"
)

func newTestOutbox(sender Sender, opts ...Option) (*Outbox, *[]error) {
	var errs []error
	o := defaultOptions()
	o.logger = discardLogger()
	o.onError = func(err error) { errs = append(errs, err) }
	for _, opt := range opts {
		opt(o)
	}
	return newOutbox(sender, o), &errs
}

func saveParams(uri string) *protocol.DidSaveNotebookDocumentParams {
	return &protocol.DidSaveNotebookDocumentParams{
		NotebookDocument: protocol.NotebookDocumentIdentifier{URI: uri},
	}
}

func TestOutbox_DeliversInOrder(t *testing.T) {
	rec := testutil.NewRecordingSender()
	ob, errs := newTestOutbox(rec)

	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	ob.enqueue("r2", protocol.MethodNotebookDidSave, saveParams("file:///2"))
	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///3"))
	assert.Equal(t, 3, ob.Len())

	assert.Equal(t, 3, ob.Drain(context.Background()))
	assert.Empty(t, *errs)

	var uris []string
	for _, n := range rec.Notifications() {
		uris = append(uris, n.Params.(*protocol.DidSaveNotebookDocumentParams).NotebookDocument.URI)
	}
	assert.Equal(t, []string{"file:///1", "file:///2", "file:///3"}, uris)
}

func TestOutbox_SenderSeesRegistration(t *testing.T) {
	var got []string
	sender := SenderFunc(func(ctx context.Context, method string, params any) error {
		id, ok := RegistrationFromContext(ctx)
		require.True(t, ok)
		got = append(got, id)
		return nil
	})
	ob, _ := newTestOutbox(sender)

	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	ob.enqueue("r2", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	ob.Drain(context.Background())

	assert.Equal(t, []string{"r1", "r2"}, got)
}

func TestOutbox_TransportErrorIsReportedNotRetried(t *testing.T) {
	boom := errors.New("pipe closed")
	next := testutil.NewRecordingSender()
	sender := &testutil.FailingSender{Err: boom, Methods: []string{protocol.MethodNotebookDidSave}, Next: next}
	ob, errs := newTestOutbox(sender)

	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	ob.enqueue("r1", protocol.MethodNotebookDidClose, &protocol.DidCloseNotebookDocumentParams{
		NotebookDocument: protocol.NotebookDocumentIdentifier{URI: "file:///1"},
	})
	assert.Equal(t, 2, ob.Drain(context.Background()))

	require.Len(t, *errs, 1)
	err := (*errs)[0]
	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, boom)

	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "r1", se.Registration)
	assert.Equal(t, "file:///1", se.Notebook)
	assert.Equal(t, protocol.MethodNotebookDidSave, se.Method)

	// The failure did not stop later deliveries.
	assert.Equal(t, []string{protocol.MethodNotebookDidClose}, next.Methods())
	assert.Zero(t, ob.Len())
}

func TestOutbox_MiddlewareTransformsParams(t *testing.T) {
	rec := testutil.NewRecordingSender()
	ob, _ := newTestOutbox(rec, WithMiddleware(Middleware{
		DidSave: func(ctx context.Context, p *protocol.DidSaveNotebookDocumentParams, next func(context.Context, *protocol.DidSaveNotebookDocumentParams) error) error {
			rewritten := *p
			rewritten.NotebookDocument.URI = "file:///rewritten"
			return next(ctx, &rewritten)
		},
	}))

	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	ob.Drain(context.Background())

	require.Equal(t, 1, rec.Len())
	got := rec.Notifications()[0].Params.(*protocol.DidSaveNotebookDocumentParams)
	assert.Equal(t, "file:///rewritten", got.NotebookDocument.URI)
}

func TestOutbox_MiddlewareCanSuppress(t *testing.T) {
	rec := testutil.NewRecordingSender()
	ob, errs := newTestOutbox(rec, WithMiddleware(Middleware{
		DidOpen: func(context.Context, *protocol.DidOpenNotebookDocumentParams, func(context.Context, *protocol.DidOpenNotebookDocumentParams) error) error {
			return nil
		},
	}))

	ob.enqueue("r1", protocol.MethodNotebookDidOpen, &protocol.DidOpenNotebookDocumentParams{})
	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	ob.Drain(context.Background())

	assert.Equal(t, []string{protocol.MethodNotebookDidSave}, rec.Methods())
	assert.Empty(t, *errs)
}

func TestOutbox_MiddlewareError(t *testing.T) {
	rec := testutil.NewRecordingSender()
	denied := errors.New("denied")
	ob, errs := newTestOutbox(rec, WithMiddleware(Middleware{
		DidClose: func(context.Context, *protocol.DidCloseNotebookDocumentParams, func(context.Context, *protocol.DidCloseNotebookDocumentParams) error) error {
			return denied
		},
	}))

	ob.enqueue("r1", protocol.MethodNotebookDidClose, &protocol.DidCloseNotebookDocumentParams{})
	ob.Drain(context.Background())

	require.Len(t, *errs, 1)
	assert.True(t, IsMiddlewareError((*errs)[0]))
	assert.ErrorIs(t, (*errs)[0], denied)
	assert.Zero(t, rec.Len())
}

func TestOutbox_MiddlewareKeepsTransportCode(t *testing.T) {
	boom := errors.New("boom")
	ob, errs := newTestOutbox(&testutil.FailingSender{Err: boom}, WithMiddleware(Middleware{
		DidSave: func(ctx context.Context, p *protocol.DidSaveNotebookDocumentParams, next func(context.Context, *protocol.DidSaveNotebookDocumentParams) error) error {
			return next(ctx, p)
		},
	}))

	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	ob.Drain(context.Background())

	require.Len(t, *errs, 1)
	assert.True(t, IsTransportError((*errs)[0]))
}

func TestOutbox_StampsSequence(t *testing.T) {
	var seqs []int64
	clock := NewClockAt(41)
	ob, _ := newTestOutbox(SenderFunc(func(context.Context, string, any) error { return nil }), WithClock(clock))

	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	for {
		d, ok := ob.queue.TryDequeue()
		if !ok {
			break
		}
		seqs = append(seqs, d.Seq)
		assert.Equal(t, "file:///1", d.Document)
	}
	assert.Equal(t, []int64{42, 43}, seqs)
}

func TestOutbox_StopDropsLaterNotifications(t *testing.T) {
	rec := testutil.NewRecordingSender()
	ob, _ := newTestOutbox(rec)

	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	ob.Stop()
	ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///2"))

	assert.Equal(t, 1, ob.Drain(context.Background()))
	assert.Equal(t, 1, rec.Len())
}

func TestOutbox_RunDeliversUntilStopped(t *testing.T) {
	rec := testutil.NewRecordingSender()
	ob, _ := newTestOutbox(rec)

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = ob.Run(context.Background())
	}()

	for i := 0; i < 10; i++ {
		ob.enqueue("r1", protocol.MethodNotebookDidSave, saveParams("file:///1"))
	}
	require.Eventually(t, func() bool { return rec.Len() == 10 }, time.Second, time.Millisecond)

	ob.Stop()
	wg.Wait()
	assert.NoError(t, runErr)
}

func TestOutbox_RunStopsOnCancel(t *testing.T) {
	ob, _ := newTestOutbox(testutil.NewRecordingSender())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ob.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
