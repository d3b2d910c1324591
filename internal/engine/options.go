package engine

import "log/slog"

type options struct {
	logger     *slog.Logger
	middleware Middleware
	idGen      IDGenerator
	clock      *Clock
	onError    func(error)
}

func defaultOptions() *options {
	return &options{
		logger: slog.Default(),
		idGen:  UUIDv7Generator{},
		clock:  NewClock(),
	}
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMiddleware installs notification interceptors.
func WithMiddleware(m Middleware) Option {
	return func(o *options) {
		o.middleware = m
	}
}

// WithIDGenerator sets the generator for registrations without an ID.
// Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.idGen = g
		}
	}
}

// WithClock sets the clock that numbers deliveries.
func WithClock(c *Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithErrorHandler receives every *SyncError after it has been logged:
// serialization errors from handlers and delivery failures from the outbox.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}
