package matcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyon-games/matchd/chain"
	"github.com/halcyon-games/matchd/matchsession"
	"github.com/halcyon-games/matchd/mcrypto"
	"github.com/halcyon-games/matchd/wire"
)

// requestTimestampProof sends both players an INIT carrying the session
// timestamp for them to sign.
func (s *Service) requestTimestampProof(ctx context.Context, sess *matchsession.Session) error {
	s.log.Debugf("requesting timestamp proof from both players of session %s", sess.ID)
	payload, err := json.Marshal(wire.InitPayload{Timestamp: sess.Timestamp})
	if err != nil {
		return err
	}
	for _, p := range []*matchsession.PlayerInfo{sess.Player1, sess.Player2} {
		msg := wire.Message{
			Meta: &wire.Meta{
				Code:   wire.INIT,
				Index:  p.Index,
				SubKey: p.SubKey,
			},
			Payload: string(payload),
		}
		if err := s.bus.Publish(ctx, p.SubKey.Hex(), msg); err != nil {
			return fmt.Errorf("failed to send INIT to %s: %w", p.SubKey, err)
		}
	}
	return nil
}

// handleSignedTimestamp processes one player's SIGNED_TIMESTAMP proof and,
// once both players are verified, begins the match.
func (s *Service) handleSignedTimestamp(ctx context.Context, sess *matchsession.Session, msg *wire.Message) error {
	player := sess.FindPlayerBySubKey(msg.SubKey)
	if player == nil {
		return ErrUnknownPlayer
	}

	var req wire.SignedTimestampPayload
	if err := json.Unmarshal([]byte(msg.Payload), &req); err != nil {
		return fmt.Errorf("%w: undecodable payload: %v", ErrInvalidTimestampProof, err)
	}
	if req.Timestamp != sess.Timestamp {
		return fmt.Errorf("%w: signed %d, session timestamp is %d", ErrInvalidTimestampProof, req.Timestamp, sess.Timestamp)
	}

	verified, err := s.verifyTimestamp(ctx, &req, player)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimestampProof, err)
	}
	if !verified {
		return ErrInvalidTimestampProof
	}
	player.Verified = true
	player.TimestampSig = req.Signature

	if err := s.beginVerifiedMatch(ctx, sess); err != nil {
		return err
	}
	return s.store.Put(ctx, sess)
}

// verifyTimestamp checks that the proof's signer is the player's subkey and
// that the subkey derives to the player's claimed account under the chain's
// subkey scheme.
func (s *Service) verifyTimestamp(ctx context.Context, req *wire.SignedTimestampPayload, player *matchsession.PlayerInfo) (bool, error) {
	if req.Signature == nil {
		return false, nil
	}
	signer, err := mcrypto.Recover(mcrypto.TimestampHash(req.Timestamp), req.Signature)
	if err != nil {
		return false, err
	}
	account, err := s.chain.SubKeyParent(ctx, signer, player.SubKeySignature)
	if err != nil {
		return false, err
	}
	return *player.Account == account, nil
}

// beginVerifiedMatch is a no-op until both players are verified. It then
// builds the match-hash commitment, co-signs it, and notifies each player
// independently; one player may see MATCH_VERIFIED before the other.
func (s *Service) beginVerifiedMatch(ctx context.Context, sess *matchsession.Session) error {
	if !sess.IsVerified() {
		return nil
	}
	msg, err := s.buildMatchVerifiedMessage(ctx, sess)
	if err != nil {
		return err
	}
	sess.Signature = msg.SignatureMatchHash

	if err := s.sendMatchVerified(ctx, msg, sess.Player1, sess.Player2); err != nil {
		return err
	}
	return s.sendMatchVerified(ctx, msg, sess.Player2, sess.Player1)
}

// buildMatchVerifiedMessage constructs the commitment binding both
// accounts, both subkeys, the game contract, the timestamp, both ranks,
// both public seeds, and both timestamp signatures, hashed by the chain's
// canonical function and signed by the matcher.
func (s *Service) buildMatchVerifiedMessage(ctx context.Context, sess *matchsession.Session) (*chain.MatchVerifiedMessage, error) {
	p1, p2 := sess.Player1, sess.Player2
	msg := &chain.MatchVerifiedMessage{
		Accounts:    [2]common.Address{*p1.Account, *p2.Account},
		SubKeys:     [2]common.Address{*p1.SubKey, *p2.SubKey},
		GameAddress: s.gameAddress[sess.GameID],
		Timestamp:   sess.Timestamp,
		Players: [2]*chain.MatchVerifiedPlayerInfo{
			{
				SeedRating:         p1.Rank,
				PublicSeed:         p1.SeedHash,
				SignatureTimestamp: p1.TimestampSig,
			},
			{
				SeedRating:         p2.Rank,
				PublicSeed:         p2.SeedHash,
				SignatureTimestamp: p2.TimestampSig,
			},
		},
	}

	hash, err := s.chain.MatchHash(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute match hash for session %s: %w", sess.ID, err)
	}
	msg.MatchHash = hash

	sig, err := mcrypto.Sign(hash, s.priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign match hash for session %s: %w", sess.ID, err)
	}
	msg.SignatureMatchHash = sig
	return msg, nil
}

// sendMatchVerified delivers the commitment to one player, stamped with its
// own index and the opponent's subkey signature.
func (s *Service) sendMatchVerified(ctx context.Context, msg *chain.MatchVerifiedMessage, to, opponent *matchsession.PlayerInfo) error {
	msg.PlayerIndex = to.Index
	msg.SignatureOpponentSubKey = opponent.SubKeySignature
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	out := wire.Message{
		Meta: &wire.Meta{
			Code:   wire.MATCH_VERIFIED,
			Index:  to.Index,
			SubKey: to.SubKey,
		},
		Payload: string(payload),
	}
	if err := s.bus.Publish(ctx, to.SubKey.Hex(), out); err != nil {
		return fmt.Errorf("failed to send MATCH_VERIFIED to %s: %w", to.SubKey, err)
	}
	return nil
}
