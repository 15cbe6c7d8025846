package matcher

import (
	"context"

	"github.com/halcyon-games/matchd/chain"
)

// OnWithdrawalStarted reacts to a chain-visible withdrawal by the given
// account. If the account is mid-match and the co-signed timestamp proof
// shows the withdrawal to be illegitimate, the matcher submits a slashing
// transaction with its own signing key. Lookup misses are expected: a
// player may legitimately withdraw outside of any match.
func (s *Service) OnWithdrawalStarted(ctx context.Context, ev chain.WithdrawalStarted) {
	sess, err := s.store.GetByAccount(ctx, ev.Account)
	if err != nil {
		s.log.Infof("watchdog: no active session for withdrawing account %s: %v", ev.Account, err)
		return
	}

	withdrawing, err := s.chain.IsWithdrawing(ctx, ev.Account)
	if err != nil {
		s.log.Errorf("watchdog: failed to read withdrawal state for %s: %v", ev.Account, err)
		return
	}
	if !withdrawing {
		// Already completed; no remediation exists at this boundary.
		s.log.Warnf("watchdog: withdrawal by %s already completed", ev.Account)
		return
	}

	player := sess.FindPlayerByAccount(ev.Account)
	if player == nil {
		s.log.Errorf("watchdog: account %s not found in session %s", ev.Account, sess.ID)
		return
	}
	if player.TimestampSig == nil || sess.Signature == nil {
		s.log.Warnf("watchdog: session %s has no co-signed timestamp proof yet for %s", sess.ID, ev.Account)
		return
	}

	canStop, err := s.chain.CanStopWithdrawal(ctx, sess.Timestamp, player.TimestampSig, sess.Signature)
	if err != nil {
		s.log.Errorf("watchdog: failed to read CanStopWithdrawal for %s: %v", ev.Account, err)
		return
	}
	if !canStop {
		return
	}

	res, err := s.chain.StopWithdrawal(ctx, sess.Timestamp, player.TimestampSig, sess.Signature)
	if err != nil {
		// No automatic retry on submission failure.
		s.log.Errorf("watchdog: failed to slash withdrawal by %s: %v", ev.Account, err)
		return
	}
	s.log.Infof("watchdog: submitted slashing tx %s against %s (session %s)", res.Hash, ev.Account, sess.ID)
}
