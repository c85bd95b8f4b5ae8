// Package lifecycle exposes store change events as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/datastore/pkg/core"
)

// Watcher is the part of the DataStore a Source depends on.
type Watcher interface {
	Watch(ctx context.Context, pattern string) (<-chan core.Event, error)
}

type storeSource struct {
	store   Watcher
	pattern string
	out     chan lifecycle.Event
}

// NewSource creates a lifecycle.Source streaming the store events whose
// "resource/id" key matches pattern.
func NewSource(store Watcher, pattern string) lifecycle.Source {
	return &storeSource{
		store:   store,
		pattern: pattern,
		out:     make(chan lifecycle.Event),
	}
}

func (s *storeSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start subscribes to the store and forwards events until ctx is done.
// It fails fast on an invalid pattern.
func (s *storeSource) Start(ctx context.Context) error {
	events, err := s.store.Watch(ctx, s.pattern)
	if err != nil {
		return err
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
