package chain

import (
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"
)

// WithdrawalStarted is emitted when the contract observes an account
// beginning to withdraw its stake.
type WithdrawalStarted struct {
	Account common.Address
	At      time.Time
}

// Watcher fans WithdrawalStarted events out to subscribers. Producers call
// Notify; sends are non-blocking and drop if a receiver is slow.
type Watcher struct {
	log slog.Logger

	mu   sync.RWMutex
	subs map[chan WithdrawalStarted]struct{}

	quit chan struct{}
}

func NewWatcher(log slog.Logger) *Watcher {
	return &Watcher{
		log:  log,
		subs: make(map[chan WithdrawalStarted]struct{}),
		quit: make(chan struct{}),
	}
}

func (w *Watcher) Stop() { close(w.quit) }

// Subscribe adds a listener and returns the channel plus an unsubscribe
// func. No replay of past events; first data arrives on the next Notify.
func (w *Watcher) Subscribe() (<-chan WithdrawalStarted, func()) {
	ch := make(chan WithdrawalStarted, 8)

	w.mu.Lock()
	w.subs[ch] = struct{}{}
	n := len(w.subs)
	w.mu.Unlock()
	w.log.Debugf("watcher: withdrawal subscriber added (subs=%d)", n)

	unsub := func() {
		w.mu.Lock()
		delete(w.subs, ch)
		remaining := len(w.subs)
		w.mu.Unlock()
		w.log.Debugf("watcher: withdrawal subscriber removed (subs=%d)", remaining)
		// Do not close(ch): a producer may still be sending; receivers
		// stop via their own context.
	}
	return ch, unsub
}

// Notify broadcasts ev to every subscriber.
func (w *Watcher) Notify(ev WithdrawalStarted) {
	select {
	case <-w.quit:
		return
	default:
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	w.mu.RLock()
	chs := make([]chan WithdrawalStarted, 0, len(w.subs))
	for ch := range w.subs {
		chs = append(chs, ch)
	}
	w.mu.RUnlock()
	w.log.Debugf("watcher: withdrawal started by %s, notifying %d listeners", ev.Account, len(chs))

	for _, ch := range chs {
		select {
		case ch <- ev:
		default:
			// Drop if receiver is slow.
		}
	}
}
