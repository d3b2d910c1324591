package testutil

import (
	"context"
	"encoding/json"
	"sync"
)

// Notification is one notification captured by a RecordingSender.
type Notification struct {
	Method string
	Params any
}

// JSON returns the params encoded as JSON, for assertions on wire shape.
// Panics on encoding failure, which points at a broken test fixture.
func (n Notification) JSON() string {
	data, err := json.Marshal(n.Params)
	if err != nil {
		panic("testutil: encode params: " + err.Error())
	}
	return string(data)
}

// RecordingSender captures every notification it is given, in order.
//
// Thread-safety: All methods are safe for concurrent use.
type RecordingSender struct {
	mu   sync.Mutex
	sent []Notification
}

// NewRecordingSender returns an empty recorder.
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{}
}

// SendNotification records the notification and never fails.
func (r *RecordingSender) SendNotification(_ context.Context, method string, params any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{Method: method, Params: params})
	return nil
}

// Notifications returns a copy of everything recorded so far.
func (r *RecordingSender) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Methods returns the recorded methods in order.
func (r *RecordingSender) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Method
	}
	return out
}

// Len returns the number of recorded notifications.
func (r *RecordingSender) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// Reset forgets everything recorded.
func (r *RecordingSender) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// FailingSender rejects notifications. With no Methods set it rejects all
// of them; otherwise only the listed methods fail and the rest are passed
// to Next, when set.
type FailingSender struct {
	Err     error
	Methods []string
	Next    *RecordingSender
}

// SendNotification returns Err for the selected methods.
func (f *FailingSender) SendNotification(ctx context.Context, method string, params any) error {
	if len(f.Methods) == 0 {
		return f.Err
	}
	for _, m := range f.Methods {
		if m == method {
			return f.Err
		}
	}
	if f.Next != nil {
		return f.Next.SendNotification(ctx, method, params)
	}
	return nil
}
