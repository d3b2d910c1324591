package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/nbsync/internal/engine"
	"github.com/roach88/nbsync/internal/metadata"
	"github.com/roach88/nbsync/internal/protocol"
)

// Recorder is an engine.Sender that forwards to another Sender and
// journals every attempt with its outcome.
//
// A journal write failure is logged and never masks the send result.
type Recorder struct {
	journal *Journal
	next    engine.Sender
	clock   *engine.Clock
	now     func() time.Time
	logger  *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithNow sets the wall clock used for recorded_at. Defaults to time.Now.
func WithNow(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRecorderLogger sets the logger. Defaults to slog.Default().
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder wraps next. Sequence numbers continue after the journal's
// last entry, so one database can hold several runs.
func NewRecorder(ctx context.Context, j *Journal, next engine.Sender, opts ...RecorderOption) (*Recorder, error) {
	last, err := j.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}
	r := &Recorder{
		journal: j,
		next:    next,
		clock:   engine.NewClockAt(last),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SendNotification forwards to the wrapped sender and journals the result.
func (r *Recorder) SendNotification(ctx context.Context, method string, params any) error {
	sendErr := r.next.SendNotification(ctx, method, params)

	registration, _ := engine.RegistrationFromContext(ctx)
	seq := r.clock.Next()
	if err := r.record(ctx, seq, registration, method, params, sendErr); err != nil {
		r.logger.Error("journal write failed",
			"seq", seq,
			"method", method,
			"registration", registration,
			"error", err,
		)
	}
	return sendErr
}

func (r *Recorder) record(ctx context.Context, seq int64, registration, method string, params any, sendErr error) error {
	payload, err := metadata.MarshalCanonical(params)
	if err != nil {
		return err
	}
	id, err := metadata.NotificationID(registration, method, params, seq)
	if err != nil {
		return err
	}
	doc, version := protocol.DocumentURI(params)

	e := Entry{
		ID:           id,
		Seq:          seq,
		Registration: registration,
		Method:       method,
		Document:     doc,
		Version:      version,
		Params:       string(payload),
		Outcome:      OutcomeSent,
		RecordedAt:   r.now(),
	}
	if sendErr != nil {
		e.Outcome = OutcomeFailed
		e.Error = sendErr.Error()
	}
	return r.journal.Append(ctx, e)
}
