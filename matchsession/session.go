package matchsession

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/halcyon-games/matchd/mcrypto"
)

// UUID identifies one match session.
type UUID string

func (u UUID) IsEmpty() bool { return u == "" }

func (u UUID) String() string { return string(u) }

// Token is the connection token presented by a player: an ephemeral session
// subkey, the owner account's signature authorizing it, and the player's
// private seed for the chosen game.
type Token struct {
	SubKey          *common.Address    `json:"subkey"`
	SubKeySignature *mcrypto.Signature `json:"subkeySignature"`
	GameID          uint32             `json:"gameId"`
	Seed            []byte             `json:"seed"`
}

// MatchResponse is an authenticated match request in flight. Account is
// derived from the subkey signature; Rank is calculated from the seed.
type MatchResponse struct {
	Account common.Address
	Rank    uint32
	*Token
}

// PlayerInfo is one participant's authenticated identity and match-relevant
// claims.
type PlayerInfo struct {
	*Token
	Account *common.Address `json:"account"`
	Rank    uint32          `json:"rank"`
	// SeedHash is the public commitment derived from the private seed.
	SeedHash []byte `json:"seedHash"`
	// Index is the player's slot, assigned exactly once at pairing time:
	// the waiting player keeps 0, the joiner becomes 1.
	Index        uint8              `json:"index"`
	TimestampSig *mcrypto.Signature `json:"timestampSig,omitempty"`
	Verified     bool               `json:"verified"`
}

// Session is one match between two players. Player2 is nil until the
// session is paired. Timestamp is set once, at pairing time, and is
// immutable afterwards. Signature is the matcher's co-signature over the
// match hash, set once both players verified their timestamps.
type Session struct {
	ID        UUID               `json:"id"`
	GameID    uint32             `json:"gameId"`
	Player1   *PlayerInfo        `json:"player1"`
	Player2   *PlayerInfo        `json:"player2,omitempty"`
	Timestamp int64              `json:"timestamp,omitempty"`
	Signature *mcrypto.Signature `json:"signature,omitempty"`
}

// NewSession creates a waiting session holding only player.
func NewSession(gameID uint32, player *PlayerInfo) *Session {
	return &Session{
		ID:      UUID(uuid.NewString()),
		GameID:  gameID,
		Player1: player,
	}
}

func (s *Session) IsEmpty() bool {
	return s == nil || s.ID.IsEmpty()
}

// Rank returns the session's matchmaking rank. Both players in a session
// have the same rank so the first one's is authoritative.
func (s *Session) Rank() uint32 {
	return s.Player1.Rank
}

// IsVerified reports whether both players have supplied a valid
// timestamp-signature proof.
func (s *Session) IsVerified() bool {
	return s.Player1 != nil && s.Player2 != nil &&
		s.Player1.Verified && s.Player2.Verified
}

func (s *Session) FindPlayerBySubKey(subKey *common.Address) *PlayerInfo {
	if subKey == nil {
		return nil
	}
	if s.Player1 != nil && *s.Player1.SubKey == *subKey {
		return s.Player1
	}
	if s.Player2 != nil && *s.Player2.SubKey == *subKey {
		return s.Player2
	}
	return nil
}

func (s *Session) FindPlayerByAccount(account common.Address) *PlayerInfo {
	if s.Player1 != nil && *s.Player1.Account == account {
		return s.Player1
	}
	if s.Player2 != nil && *s.Player2.Account == account {
		return s.Player2
	}
	return nil
}

// FindOpponent returns the other participant of the session, or nil when
// subKey does not belong to the session.
func (s *Session) FindOpponent(subKey *common.Address) *PlayerInfo {
	if subKey == nil {
		return nil
	}
	if s.Player1 != nil && *s.Player1.SubKey == *subKey {
		return s.Player2
	}
	if s.Player2 != nil && *s.Player2.SubKey == *subKey {
		return s.Player1
	}
	return nil
}
