package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/halcyon-games/matchd/matchdb"
	"github.com/halcyon-games/matchd/wire"
)

// OnMessage handles one wire message from a connected, sessioned subkey.
// Timestamp proofs feed the verification protocol; everything else is
// relayed unmodified to the opponent once the session is fully verified.
func (s *Service) OnMessage(ctx context.Context, msg *wire.Message) error {
	if msg.Meta == nil || msg.SubKey == nil {
		return ErrUnknownSession
	}
	sess, err := s.store.GetBySubKey(ctx, *msg.SubKey)
	if errors.Is(err, matchdb.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownSession, msg.SubKey.Hex())
	}
	if err != nil {
		return fmt.Errorf("failed to load session for %s: %w", msg.SubKey, err)
	}

	if msg.Code == wire.SIGNED_TIMESTAMP {
		return s.handleSignedTimestamp(ctx, sess, msg)
	}
	if !sess.IsVerified() {
		return ErrSessionNotVerified
	}

	opponent := sess.FindOpponent(msg.SubKey)
	if opponent == nil {
		// Should not happen in a consistent session; swallow rather than
		// fail the sender.
		s.log.Warnf("session %s has no opponent for %s, swallowing message", sess.ID, msg.SubKey)
		return nil
	}
	if err := s.bus.Publish(ctx, opponent.SubKey.Hex(), *msg); err != nil {
		s.log.Errorf("failed to relay message to %s: %v", opponent.SubKey, err)
	}
	return nil
}
