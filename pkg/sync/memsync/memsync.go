// Package memsync shares field values between stores in one process.
//
// A Hub is a key space. Every field bound to the same hub key sees the
// writes of the others:
//
//	hub := memsync.NewHub()
//	a, _ := stan.New(stan.Fields{stan.Synchronized("theme", hub.Field("light"))})
//	b, _ := stan.New(stan.Fields{stan.Synchronized("theme", hub.Field("light"))})
//	a.Set("theme", "dark") // b's theme is now "dark"
//
// Broadcasts run on the writer's goroutine. Stores living on different
// goroutines should be built with stan.WithDispatcher.
package memsync

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/vango-dev/stan/pkg/stan"
)

// Option configures a Hub.
type Option func(*Hub)

// Async makes snapshots Deferred, the way a remote source would report
// them. Useful to exercise deferred loading without a network.
func Async() Option {
	return func(h *Hub) {
		h.async = true
	}
}

// WithLogger sets the hub's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}

// Hub holds the shared values and the subscribed bindings.
type Hub struct {
	mu     sync.Mutex
	values map[string]any
	subs   map[string][]*subscription
	async  bool
	logger *slog.Logger
}

type subscription struct {
	origin uuid.UUID
	set    func(any)
}

// NewHub returns an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		values: make(map[string]any),
		subs:   make(map[string][]*subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Field returns a binding for one synchronized field declaration.
func (h *Hub) Field(initial any) *Binding {
	return &Binding{hub: h, id: uuid.New(), initial: initial}
}

// Get returns the shared value of key.
func (h *Hub) Get(key string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[key]
	return v, ok
}

// Set stores v under key and broadcasts it to every subscribed binding.
func (h *Hub) Set(key string, v any) {
	h.publish(uuid.Nil, key, v)
}

// Keys returns the keys holding a value, sorted.
func (h *Hub) Keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.values))
	for k := range h.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (h *Hub) publish(origin uuid.UUID, key string, v any) {
	h.mu.Lock()
	h.values[key] = v
	var targets []func(any)
	for _, sub := range h.subs[key] {
		if sub.origin != origin {
			targets = append(targets, sub.set)
		}
	}
	h.mu.Unlock()

	h.logger.Debug("memsync: broadcast", "key", key, "origin", origin, "targets", len(targets))
	for _, set := range targets {
		set(v)
	}
}

func (h *Hub) subscribe(origin uuid.UUID, key string, set func(any)) func() {
	sub := &subscription{origin: origin, set: set}
	h.mu.Lock()
	h.subs[key] = append(h.subs[key], sub)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.subs[key] = slices.DeleteFunc(h.subs[key], func(s *subscription) bool { return s == sub })
		})
	}
}

// Binding connects one field to a hub. It implements stan.Synchronizer
// and stan.Subscriber.
type Binding struct {
	hub     *Hub
	id      uuid.UUID
	initial any
}

var (
	_ stan.Synchronizer = (*Binding)(nil)
	_ stan.Subscriber   = (*Binding)(nil)
)

// ID identifies the binding in broadcasts.
func (b *Binding) ID() uuid.UUID {
	return b.id
}

func (b *Binding) InitialValue() any {
	return b.initial
}

func (b *Binding) GetSnapshot(key string) (stan.Snapshot, error) {
	if b.hub.async {
		return stan.Deferred(func(ctx context.Context) (any, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			v, _ := b.hub.Get(key)
			return v, nil
		}), nil
	}
	v, ok := b.hub.Get(key)
	if !ok {
		return stan.Missing(), nil
	}
	return stan.Found(v), nil
}

// Update stores v and broadcasts it to the other bindings of key.
func (b *Binding) Update(v any, key string) error {
	b.hub.publish(b.id, key, v)
	return nil
}

// Subscribe delivers the values other bindings write to key.
func (b *Binding) Subscribe(set func(any), key string) func() {
	return b.hub.subscribe(b.id, key, set)
}
