package transport

import (
	"context"

	"github.com/halcyon-games/matchd/wire"
)

// Transport delivers wire messages to whatever connection currently owns a
// routing key. Delivery is best effort.
type Transport interface {
	Publish(ctx context.Context, key string, msg wire.Message) error
}
