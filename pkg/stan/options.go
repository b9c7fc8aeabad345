package stan

import (
	"context"
	"log/slog"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	observers  []Observer
	dispatcher func(func())
	ctx        context.Context
}

// WithLogger sets the logger used for synchronizer failures and debug
// records. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver adds observers notified of store events.
func WithObserver(obs ...Observer) Option {
	return func(o *options) {
		for _, ob := range obs {
			if ob != nil {
				o.observers = append(o.observers, ob)
			}
		}
	}
}

// WithDispatcher routes work produced off the store's goroutine (deferred
// snapshot results and external synchronizer changes) through dispatch.
// dispatch must run the function on the store's goroutine, typically by
// queueing it on the host's event loop.
//
// Without a dispatcher, deferred snapshot results wait in an internal queue
// until ApplyPending or Settle runs them, and external changes are applied
// on whatever goroutine the synchronizer calls from.
func WithDispatcher(dispatch func(func())) Option {
	return func(o *options) {
		o.dispatcher = dispatch
	}
}

// WithContext sets the parent context of deferred snapshot reads.
// Close cancels it.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

func applyOptions(opts []Option) options {
	o := options{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.ctx == nil {
		o.ctx = context.Background()
	}
	return o
}
