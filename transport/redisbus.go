package transport

import (
	"context"
	"fmt"

	"github.com/decred/slog"
	"github.com/redis/go-redis/v9"

	"github.com/halcyon-games/matchd/wire"
)

const channelPrefix = "matchd:bus:"

// RedisBus is a redis pub/sub Transport carrying the JSON wire envelope,
// for deployments where connection handlers run in separate processes.
type RedisBus struct {
	log slog.Logger
	rdb *redis.Client
}

func NewRedisBus(log slog.Logger, rdb *redis.Client) *RedisBus {
	return &RedisBus{log: log, rdb: rdb}
}

func (b *RedisBus) Publish(ctx context.Context, key string, msg wire.Message) error {
	raw, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s: %w", key, err)
	}
	if err := b.rdb.Publish(ctx, channelPrefix+key, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", key, err)
	}
	return nil
}

// Subscribe follows messages for key until ctx is done. Undecodable
// payloads are logged and skipped.
func (b *RedisBus) Subscribe(ctx context.Context, key string) (<-chan wire.Message, func()) {
	ps := b.rdb.Subscribe(ctx, channelPrefix+key)
	out := make(chan wire.Message, 16)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok {
					return
				}
				msg, err := wire.Unmarshal([]byte(m.Payload))
				if err != nil {
					b.log.Errorf("bus: undecodable message on %s: %v", key, err)
					continue
				}
				select {
				case out <- msg:
				default:
					b.log.Warnf("bus: slow subscriber on %s, dropping code %d", key, msg.Code)
				}
			}
		}
	}()

	unsub := func() {
		if err := ps.Close(); err != nil {
			b.log.Errorf("bus: failed to close subscription for %s: %v", key, err)
		}
	}
	return out, unsub
}
