package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
	"github.com/roach88/nbsync/internal/testutil"
)

func TestLoop_DispatchesEventsOfDoAfterIt(t *testing.T) {
	ws := editor.NewWorkspace()
	loop := NewLoop(ws, discardLogger())

	var seen []string
	loop.Subscribe(func(ev editor.Event) {
		switch e := ev.(type) {
		case editor.NotebookOpened:
			seen = append(seen, "open "+e.Notebook.URI)
		case editor.TextDocumentOpened:
			seen = append(seen, "doc "+e.Document.URI)
		}
	})

	loop.Do(func() {
		_, err := ws.OpenNotebook(testNotebook, "jupyter-notebook", nil, editor.CellData{ID: "A"})
		require.NoError(t, err)
		seen = append(seen, "do returned")
	})
	assert.Equal(t, 1, loop.Len())
	assert.Equal(t, 1, loop.Drain())

	assert.Equal(t, []string{
		"do returned",
		"open " + testNotebook,
		"doc " + cellURI("A"),
	}, seen)
}

func TestLoop_EventsOutsideDoAreQueued(t *testing.T) {
	ws := editor.NewWorkspace()
	loop := NewLoop(ws, discardLogger())

	var seen int
	loop.Subscribe(func(editor.Event) { seen++ })

	_, err := ws.OpenNotebook(testNotebook, "jupyter-notebook", nil)
	require.NoError(t, err)
	assert.Zero(t, seen)
	assert.Equal(t, 1, loop.Len())

	loop.Drain()
	assert.Equal(t, 1, seen)
}

func TestLoop_PanicInDoIsContained(t *testing.T) {
	loop := NewLoop(editor.NewWorkspace(), discardLogger())

	ran := false
	loop.Do(func() { panic("boom") })
	loop.Do(func() { ran = true })

	assert.NotPanics(t, func() { loop.Drain() })
	assert.True(t, ran)
}

func TestLoop_UnsubscribeStopsDelivery(t *testing.T) {
	loop := NewLoop(editor.NewWorkspace(), discardLogger())

	var seen int
	unsub := loop.Subscribe(func(editor.Event) { seen++ })
	loop.Post(editor.NotebookSaved{Notebook: &editor.Notebook{URI: testNotebook}})
	loop.Drain()
	unsub()
	unsub()
	loop.Post(editor.NotebookSaved{Notebook: &editor.Notebook{URI: testNotebook}})
	loop.Drain()

	assert.Equal(t, 1, seen)
}

func TestLoop_DrivesRegistryOnOneGoroutine(t *testing.T) {
	ws := editor.NewWorkspace()
	loop := NewLoop(ws, discardLogger())
	rec := testutil.NewRecordingSender()
	reg := NewRegistry(loop, rec, WithLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = loop.Run(ctx) }()
	go func() { defer wg.Done(); _ = reg.Outbox().Run(ctx) }()

	loop.Do(func() {
		_, err := reg.Register(pythonNotebooks("r1"))
		assert.NoError(t, err)
	})
	loop.Do(func() {
		_, err := ws.OpenNotebook(testNotebook, "jupyter-notebook", nil,
			editor.CellData{ID: "B", LanguageID: "python"})
		assert.NoError(t, err)
	})
	loop.Do(func() {
		_, err := ws.InsertCells(testNotebook, 1, editor.CellData{ID: "C", LanguageID: "python"})
		assert.NoError(t, err)
	})

	require.Eventually(t, func() bool { return rec.Len() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{protocol.MethodNotebookDidOpen, protocol.MethodNotebookDidChange}, rec.Methods())

	loop.Do(reg.Dispose)
	loop.Stop()
	cancel()
	wg.Wait()
}

func TestLoop_RunReturnsAfterStop(t *testing.T) {
	loop := NewLoop(editor.NewWorkspace(), discardLogger())

	ran := make(chan struct{})
	loop.Do(func() { close(ran) })
	loop.Stop()

	err := loop.Run(context.Background())
	require.NoError(t, err)
	select {
	case <-ran:
	default:
		t.Fatal("queued work was not run before Run returned")
	}
	assert.False(t, loop.Post(editor.NotebookSaved{}))
}
