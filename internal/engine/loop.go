package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/nbsync/internal/editor"
)

// loopItem is either an editor event to dispatch or a function to run.
type loopItem struct {
	event editor.Event
	fn    func()
}

// Loop serialises editor events onto a single goroutine.
//
// Producers on any goroutine Post events or submit work with Do; Run
// dispatches them one at a time, in arrival order, to the Loop's own
// subscribers. Providers subscribe to the Loop instead of the editor, so
// their handlers and stores are only ever touched from Run's goroutine.
//
// Events that the upstream editor fires while a Do function is running on
// the loop (the usual way to mutate an editor.Workspace) are dispatched as
// soon as that function returns, before anything queued later.
//
// Thread-safety model:
//   - Post, Do, Subscribe: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - upstream mutations: must happen inside Do. An upstream event fired on
//     another goroutine while a Do function runs would be appended to the
//     pending list concurrently with the loop.
type Loop struct {
	upstream Workspace
	queue    *queue[loopItem]
	logger   *slog.Logger
	unsub    editor.Unsubscribe

	mu        sync.Mutex
	listeners map[int]editor.Listener
	order     []int
	nextID    int

	// pending is only touched on the Run goroutine, while inDo is set.
	inDo    atomic.Bool
	pending []editor.Event
}

// NewLoop subscribes to upstream and returns a loop ready to Run.
func NewLoop(upstream Workspace, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		upstream:  upstream,
		queue:     newQueue[loopItem](),
		logger:    logger,
		listeners: make(map[int]editor.Listener),
	}
	l.unsub = upstream.Subscribe(l.receive)
	return l
}

func (l *Loop) receive(ev editor.Event) {
	if l.inDo.Load() {
		l.pending = append(l.pending, ev)
		return
	}
	l.Post(ev)
}

// Post queues an editor event. Returns false once the loop is stopped.
func (l *Loop) Post(ev editor.Event) bool {
	return l.queue.Enqueue(loopItem{event: ev})
}

// Do queues fn to run on the loop goroutine. Returns false once the loop
// is stopped.
func (l *Loop) Do(fn func()) bool {
	return l.queue.Enqueue(loopItem{fn: fn})
}

// Subscribe registers a listener called on the loop goroutine.
func (l *Loop) Subscribe(fn editor.Listener) editor.Unsubscribe {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.listeners, id)
			for i, v := range l.order {
				if v == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Notebooks delegates to the upstream editor.
func (l *Loop) Notebooks() []*editor.Notebook {
	return l.upstream.Notebooks()
}

// FindCell delegates to the upstream editor.
func (l *Loop) FindCell(documentURI string) (*editor.Notebook, *editor.Cell, bool) {
	return l.upstream.FindCell(documentURI)
}

// Len returns the number of queued items.
func (l *Loop) Len() int {
	return l.queue.Len()
}

// Run processes queued items until ctx is cancelled or Stop is called.
// Items queued before Stop are still processed.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("event loop starting")

	for {
		if item, ok := l.queue.TryDequeue(); ok {
			l.process(item)
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Info("event loop stopping: context cancelled")
			l.queue.Close()
			l.unsub()
			return ctx.Err()

		case <-l.queue.Wait():
			if l.queue.Closed() && l.queue.Len() == 0 {
				l.logger.Info("event loop stopping: closed")
				l.unsub()
				return nil
			}
		}
	}
}

// Drain processes everything queued so far on the calling goroutine.
// It is meant for tests and tools that do not call Run.
func (l *Loop) Drain() int {
	n := 0
	for {
		item, ok := l.queue.TryDequeue()
		if !ok {
			return n
		}
		l.process(item)
		n++
	}
}

// Stop closes the queue; Run returns once it is empty.
func (l *Loop) Stop() {
	l.queue.Close()
}

func (l *Loop) process(item loopItem) {
	if item.fn != nil {
		l.inDo.Store(true)
		l.runFn(item.fn)
		l.inDo.Store(false)

		events := l.pending
		l.pending = nil
		for _, ev := range events {
			l.dispatch(ev)
		}
		return
	}
	l.dispatch(item.event)
}

// runFn runs fn, logging a panic instead of killing the loop.
func (l *Loop) runFn(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop task panicked", "panic", r)
		}
	}()
	fn()
}

func (l *Loop) dispatch(ev editor.Event) {
	l.mu.Lock()
	ls := make([]editor.Listener, 0, len(l.order))
	for _, id := range l.order {
		ls = append(ls, l.listeners[id])
	}
	l.mu.Unlock()

	for _, fn := range ls {
		fn(ev)
	}
}
