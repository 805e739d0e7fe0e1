package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bus delivers events to in-process subscribers. With a Backend attached, events travel
// through the broker first so every instance subscribed to the channel sees them.
type Bus struct {
	backend Backend
	channel string
	log     *zap.Logger

	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

// NewBus builds a bus. backend may be nil for a single-instance deployment.
func NewBus(backend Backend, channel string, log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	if channel == "" {
		channel = "social.events"
	}
	return &Bus{backend: backend, channel: channel, log: log, subs: map[int]func(Event){}}
}

// Publish sends ev. Broker failures fall back to local delivery and are logged.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if b.backend == nil {
		b.deliver(ev)
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		b.log.Warn("event marshal failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	attrs := map[string]string{"type": ev.Type}
	if _, err := b.backend.Publish(ctx, b.channel, data, attrs); err != nil {
		b.log.Warn("event publish failed, delivering locally", zap.String("type", ev.Type), zap.Error(err))
		b.deliver(ev)
	}
}

// Subscribe registers fn for every event and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Run relays broker messages to local subscribers until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	if b.backend == nil {
		<-ctx.Done()
		return nil
	}
	err := b.backend.Subscribe(ctx, b.channel, func(ctx context.Context, msg Message) error {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.log.Warn("dropping malformed event", zap.String("id", msg.ID), zap.Error(err))
			return nil
		}
		b.deliver(ev)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close releases the broker connection.
func (b *Bus) Close() error {
	if b.backend == nil {
		return nil
	}
	return b.backend.Close()
}

func (b *Bus) deliver(ev Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
