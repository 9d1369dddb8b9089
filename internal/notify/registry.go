package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured sinks and fans notifications out to all of them.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewRegistry creates an empty sink registry
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Register adds a sink; names must be unique.
func (r *Registry) Register(sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := sink.Name()
	if name == "" {
		return fmt.Errorf("sink name cannot be empty")
	}
	if _, exists := r.sinks[name]; exists {
		return fmt.Errorf("sink %s is already registered", name)
	}
	r.sinks[name] = sink
	return nil
}

// Get returns a sink by name
func (r *Registry) Get(name string) (Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, exists := r.sinks[name]
	if !exists {
		return nil, fmt.Errorf("sink %s not found", name)
	}
	return sink, nil
}

// Names lists registered sinks in name order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeliveryError reports the sinks that failed a fan-out and how many others
// still delivered.
type DeliveryError struct {
	Delivered int
	Errs      []error
}

func (e *DeliveryError) Error() string { return errors.Join(e.Errs...).Error() }

func (e *DeliveryError) Unwrap() []error { return e.Errs }

// Partial reports whether at least one sink delivered the notification.
func (e *DeliveryError) Partial() bool { return e.Delivered > 0 }

// Notify delivers n to every sink. A failing sink does not stop the others;
// any failure comes back as a *DeliveryError.
func (r *Registry) Notify(ctx context.Context, n Notification) error {
	var errs []error
	delivered := 0
	for _, name := range r.Names() {
		sink, err := r.Get(name)
		if err != nil {
			continue
		}
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		delivered++
	}
	if len(errs) == 0 {
		return nil
	}
	return &DeliveryError{Delivered: delivered, Errs: errs}
}
