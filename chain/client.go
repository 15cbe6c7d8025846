package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyon-games/matchd/mcrypto"
)

// StakeStatus is the contract's staking state for an account, modeled as
// explicit variants rather than a raw integer tag.
type StakeStatus int

const (
	Unstaked StakeStatus = iota
	Staked
	StakedInsufficientBalance
)

func (s StakeStatus) String() string {
	switch s {
	case Unstaked:
		return "unstaked"
	case Staked:
		return "staked"
	case StakedInsufficientBalance:
		return "staked-insufficient-balance"
	default:
		return "unknown"
	}
}

// MatchVerifiedPlayerInfo is one player's slice of the match commitment.
type MatchVerifiedPlayerInfo struct {
	SeedRating         uint32             `json:"seedRating"`
	PublicSeed         []byte             `json:"publicSeed"`
	SignatureTimestamp *mcrypto.Signature `json:"signatureTimestamp"`
}

// MatchVerifiedMessage binds every agreed-upon match parameter. MatchHash
// and SignatureMatchHash are filled in by the matcher once both players are
// verified. PlayerIndex and SignatureOpponentSubKey are recipient-specific
// and rewritten per delivery.
type MatchVerifiedMessage struct {
	Accounts    [2]common.Address           `json:"accounts"`
	SubKeys     [2]common.Address           `json:"subkeys"`
	GameAddress common.Address              `json:"gameAddress"`
	Timestamp   int64                       `json:"timestamp"`
	Players     [2]*MatchVerifiedPlayerInfo `json:"players"`

	MatchHash          common.Hash        `json:"matchHash"`
	SignatureMatchHash *mcrypto.Signature `json:"signatureMatchHash"`

	PlayerIndex             uint8              `json:"playerIndex"`
	SignatureOpponentSubKey *mcrypto.Signature `json:"signatureOpponentSubkey"`
}

// TxResult is the outcome of a submitted contract transaction.
type TxResult struct {
	Hash common.Hash
}

// Client is the boundary to the on-chain game contract. The matcher
// consumes it; rule evaluation, staking, and slashing all live behind it.
type Client interface {
	// SubKeyParent recovers the account that authorized subKey with sig.
	SubKeyParent(ctx context.Context, subKey common.Address, sig *mcrypto.Signature) (common.Address, error)

	GetStakedStatus(ctx context.Context, account common.Address) (StakeStatus, error)

	// IsSecretSeedValid reports whether account owns seed for gameID.
	IsSecretSeedValid(ctx context.Context, gameID uint32, account common.Address, seed []byte) (bool, error)

	CalculateRank(ctx context.Context, gameID uint32, seed []byte) (uint32, error)

	// PublicSeed derives the public commitment for a private seed.
	PublicSeed(ctx context.Context, gameID uint32, seed []byte) ([]byte, error)

	// MatchHash computes the canonical hash binding msg's parameters.
	MatchHash(ctx context.Context, msg *MatchVerifiedMessage) (common.Hash, error)

	IsWithdrawing(ctx context.Context, account common.Address) (bool, error)

	// CanStopWithdrawal reports whether the given co-signed timestamp
	// proof entitles the matcher to stop (slash) the withdrawal.
	CanStopWithdrawal(ctx context.Context, timestamp int64, timestampSig, matcherSig *mcrypto.Signature) (bool, error)

	// StopWithdrawal submits the matcher-authored slashing transaction.
	StopWithdrawal(ctx context.Context, timestamp int64, timestampSig, matcherSig *mcrypto.Signature) (*TxResult, error)
}
