package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/halcyon-games/matchd/matchsession"
)

// match pairs one authenticated request. It runs only on the match-loop
// goroutine, so two concurrent equal-rank requests can never both miss each
// other or both take the same waiting session.
func (s *Service) match(ctx context.Context, rp *matchsession.MatchResponse) {
	id, ok := s.pool.Take(rp.Rank)
	if !ok {
		if err := s.addToPool(ctx, rp); err != nil {
			s.log.Errorf("failed to add %s to match pool: %v", rp.Account, err)
			s.close(ctx, err, rp)
		}
		return
	}
	if err := s.initGame(ctx, id, rp); err != nil {
		// Restore pool consistency before reporting; the waiting player
		// is unaffected.
		s.pool.Add(rp.Rank, id)
		s.log.Errorf("failed to pair %s with session %s: %v", rp.Account, id, err)
		s.close(ctx, err, rp)
	}
}

// addToPool creates a waiting session holding rp as Player1.
func (s *Service) addToPool(ctx context.Context, rp *matchsession.MatchResponse) error {
	sess, err := s.createSession(ctx, rp)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return err
	}
	s.pool.Add(rp.Rank, sess.ID)
	s.log.Debugf("session %s waiting at rank %d (pool size %d)", sess.ID, rp.Rank, s.pool.Len())
	return nil
}

// initGame merges rp into the waiting session id: rp becomes Player2 with
// index 1, the pairing time becomes the authoritative match timestamp, and
// the timestamp-proof protocol starts for both sides.
func (s *Service) initGame(ctx context.Context, id matchsession.UUID, rp *matchsession.MatchResponse) error {
	sess, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load waiting session %s: %w", id, err)
	}
	if sess.IsEmpty() {
		return fmt.Errorf("waiting session %s is empty", id)
	}

	player, err := s.buildPlayerInfo(ctx, rp)
	if err != nil {
		return err
	}
	player.Index = 1
	sess.Player2 = player
	sess.Timestamp = time.Now().Unix()

	if err := s.store.Put(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist paired session %s: %w", sess.ID, err)
	}
	if err := s.requestTimestampProof(ctx, sess); err != nil {
		s.rollbackPairing(ctx, sess)
		return err
	}
	s.log.Infof("session %s paired: %s (0) vs %s (1) at rank %d", sess.ID, sess.Player1.Account, player.Account, rp.Rank)
	return nil
}

// rollbackPairing returns a session to its waiting shape after a failed
// merge so it can safely re-enter the pool.
func (s *Service) rollbackPairing(ctx context.Context, sess *matchsession.Session) {
	sess.Player2 = nil
	sess.Timestamp = 0
	if err := s.store.Put(ctx, sess); err != nil {
		s.log.Errorf("failed to roll back session %s: %v", sess.ID, err)
	}
}

func (s *Service) createSession(ctx context.Context, rp *matchsession.MatchResponse) (*matchsession.Session, error) {
	player, err := s.buildPlayerInfo(ctx, rp)
	if err != nil {
		return nil, err
	}
	return matchsession.NewSession(rp.GameID, player), nil
}

func (s *Service) buildPlayerInfo(ctx context.Context, rp *matchsession.MatchResponse) (*matchsession.PlayerInfo, error) {
	seedHash, err := s.chain.PublicSeed(ctx, rp.GameID, rp.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public seed for %s: %w", rp.Account, err)
	}
	account := rp.Account
	return &matchsession.PlayerInfo{
		Token:    rp.Token,
		Account:  &account,
		Rank:     rp.Rank,
		SeedHash: seedHash,
	}, nil
}

// close terminates the given requesters' connections. Waiting sessions are
// left in the pool; absence of further traffic is their terminal signal.
func (s *Service) close(ctx context.Context, err error, rps ...*matchsession.MatchResponse) {
	for _, rp := range rps {
		s.terminate(ctx, rp.SubKey, fmt.Sprintf("error looking for match: %v", err))
	}
}
