package transport

import (
	"context"
	"sync"

	"github.com/decred/slog"

	"github.com/halcyon-games/matchd/wire"
)

// MemoryBus is an in-process Transport: per-key channel fan-out with
// non-blocking sends. A key with no subscriber swallows the message, which
// matches the best-effort Publish contract.
type MemoryBus struct {
	log slog.Logger

	mu   sync.RWMutex
	subs map[string]map[chan wire.Message]struct{}
}

func NewMemoryBus(log slog.Logger) *MemoryBus {
	return &MemoryBus{
		log:  log,
		subs: make(map[string]map[chan wire.Message]struct{}),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, key string, msg wire.Message) error {
	b.mu.RLock()
	set := b.subs[key]
	chs := make([]chan wire.Message, 0, len(set))
	for ch := range set {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	if len(chs) == 0 {
		b.log.Debugf("bus: no subscriber for %s, dropping code %d", key, msg.Code)
		return nil
	}
	for _, ch := range chs {
		select {
		case ch <- msg:
		default:
			// Drop if receiver is slow.
			b.log.Warnf("bus: slow subscriber on %s, dropping code %d", key, msg.Code)
		}
	}
	return nil
}

// Subscribe adds a listener for key and returns the channel plus an
// unsubscribe func.
func (b *MemoryBus) Subscribe(key string) (<-chan wire.Message, func()) {
	ch := make(chan wire.Message, 16)

	b.mu.Lock()
	if _, ok := b.subs[key]; !ok {
		b.subs[key] = make(map[chan wire.Message]struct{})
	}
	b.subs[key][ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		if set, ok := b.subs[key]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, key)
			}
		}
		b.mu.Unlock()
	}
	return ch, unsub
}
