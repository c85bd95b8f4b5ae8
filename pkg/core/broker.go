package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultEventBuffer is the per-subscriber buffer size used when none is configured.
const DefaultEventBuffer = 100

type subscription struct {
	pattern string
	ch      chan Event
}

// broker fans store events out to watchers without ever blocking the store.
// A subscriber whose buffer is full loses the event.
type broker struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	buffer int
	logger *slog.Logger
}

func newBroker(buffer int, logger *slog.Logger) *broker {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &broker{
		subs:   make(map[*subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// subscribe registers a watcher for keys ("resource/id") matching pattern.
// The returned channel is closed once ctx is done.
func (b *broker) subscribe(ctx context.Context, pattern string) (<-chan Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, &IllegalArgumentError{Message: fmt.Sprintf("DS.watch(pattern): pattern: %q is not a valid glob!", pattern)}
	}

	sub := &subscription{pattern: pattern, ch: make(chan Event, b.buffer)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, sub)
		close(sub.ch)
		b.mu.Unlock()
	}()
	return sub.ch, nil
}

func (b *broker) publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.subs) == 0 {
		return
	}
	name := e.Resource + "/" + e.ID
	for sub := range b.subs {
		ok, err := doublestar.Match(sub.pattern, name)
		if err != nil || !ok {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			if b.logger != nil {
				b.logger.Warn("dropping event for slow watcher", "event", e.String(), "pattern", sub.pattern)
			}
		}
	}
}

func (b *broker) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
