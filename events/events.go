// Package events provides a synchronous, typed publish/subscribe bus.
//
// Listeners run in registration order on the caller's goroutine. A failing
// listener does not stop the others: every listener runs, and their errors
// (including recovered panics) are joined into the error Dispatch returns.
package events

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/errors"
)

// Event is anything with a name listeners subscribe to.
type Event interface {
	Name() string
}

// Listener handles one event.
type Listener func(ctx context.Context, e Event) error

// Bus dispatches events to listeners. Event names are case-insensitive.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{listeners: make(map[string][]Listener)}
}

func normalize(name string) string { return strings.ToLower(name) }

// AddListener subscribes l to events named name.
func (b *Bus) AddListener(name string, l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := normalize(name)
	b.listeners[key] = append(b.listeners[key], l)
}

// HasListeners reports whether anything listens for name.
func (b *Bus) HasListeners(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[normalize(name)]) > 0
}

// Listeners returns a copy of the listeners for name in order.
func (b *Bus) Listeners(name string) []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Listener(nil), b.listeners[normalize(name)]...)
}

// RemoveListeners drops every listener for name.
func (b *Bus) RemoveListeners(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, normalize(name))
}

// Dispatch runs every listener for e. Listeners added while dispatching
// are not called for this event.
func (b *Bus) Dispatch(ctx context.Context, e Event) error {
	listeners := b.Listeners(e.Name())
	var errs []error
	for i, l := range listeners {
		if err := call(ctx, l, e); err != nil {
			errs = append(errs, fmt.Errorf("listener %d: %w", i, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.ListenerFailed(e.Name(), stderrors.Join(errs...))
}

func call(ctx context.Context, l Listener, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l(ctx, e)
}

// FromConfig builds a bus from the "events.listen" map of event name to a
// Listener or a list of Listeners.
func FromConfig(store *config.Store) (*Bus, error) {
	b := New()
	for name, raw := range store.GetStringMap("events.listen") {
		switch v := raw.(type) {
		case Listener:
			b.AddListener(name, v)
		case func(context.Context, Event) error:
			b.AddListener(name, v)
		case []Listener:
			for _, l := range v {
				b.AddListener(name, l)
			}
		case []any:
			for i, item := range v {
				l, ok := asListener(item)
				if !ok {
					return nil, errors.InvalidConfig(fmt.Sprintf("events.listen.%s.%d", name, i),
						fmt.Errorf("%T is not a listener", item))
				}
				b.AddListener(name, l)
			}
		default:
			return nil, errors.InvalidConfig("events.listen."+name, fmt.Errorf("%T is not a listener", raw))
		}
	}
	return b, nil
}

func asListener(v any) (Listener, bool) {
	switch l := v.(type) {
	case Listener:
		return l, true
	case func(context.Context, Event) error:
		return l, true
	}
	return nil, false
}
