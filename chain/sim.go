package chain

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyon-games/matchd/mcrypto"
)

// StopCall records one StopWithdrawal submission to the simulated chain.
type StopCall struct {
	Timestamp    int64
	TimestampSig *mcrypto.Signature
	MatcherSig   *mcrypto.Signature
}

// SimClient is an in-process stand-in for the game contract used by tests
// and --simchain dev runs. Signature recovery and hashing are real;
// staking and withdrawal state are plain maps mutated through setters.
type SimClient struct {
	log    slog.Logger
	events *Watcher

	mu          sync.RWMutex
	stakes      map[common.Address]StakeStatus
	seeds       map[common.Address][]byte
	withdrawing map[common.Address]bool
	stopVerdict bool
	stopErr     error
	stopped     []StopCall
}

func NewSimClient(log slog.Logger) *SimClient {
	return &SimClient{
		log:         log,
		events:      NewWatcher(log),
		stakes:      make(map[common.Address]StakeStatus),
		seeds:       make(map[common.Address][]byte),
		withdrawing: make(map[common.Address]bool),
	}
}

// Events is the withdrawal event source for this chain.
func (c *SimClient) Events() *Watcher { return c.events }

func (c *SimClient) SetStake(account common.Address, status StakeStatus) {
	c.mu.Lock()
	c.stakes[account] = status
	c.mu.Unlock()
}

func (c *SimClient) SetSeed(account common.Address, seed []byte) {
	c.mu.Lock()
	c.seeds[account] = append([]byte(nil), seed...)
	c.mu.Unlock()
}

func (c *SimClient) SetWithdrawing(account common.Address, v bool) {
	c.mu.Lock()
	c.withdrawing[account] = v
	c.mu.Unlock()
}

// SetStopVerdict fixes the answer CanStopWithdrawal gives for structurally
// valid proofs.
func (c *SimClient) SetStopVerdict(v bool) {
	c.mu.Lock()
	c.stopVerdict = v
	c.mu.Unlock()
}

// SetStopError injects a StopWithdrawal submission failure.
func (c *SimClient) SetStopError(err error) {
	c.mu.Lock()
	c.stopErr = err
	c.mu.Unlock()
}

// StopCalls returns the recorded slashing submissions.
func (c *SimClient) StopCalls() []StopCall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]StopCall(nil), c.stopped...)
}

// StartWithdrawal flips the account into withdrawing state and emits the
// chain event, mimicking the contract's WithdrawalStarted log.
func (c *SimClient) StartWithdrawal(account common.Address) {
	c.SetWithdrawing(account, true)
	c.events.Notify(WithdrawalStarted{Account: account})
}

func (c *SimClient) SubKeyParent(ctx context.Context, subKey common.Address, sig *mcrypto.Signature) (common.Address, error) {
	return mcrypto.Recover(mcrypto.SubKeyChallengeHash(subKey), sig)
}

func (c *SimClient) GetStakedStatus(ctx context.Context, account common.Address) (StakeStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stakes[account], nil
}

func (c *SimClient) IsSecretSeedValid(ctx context.Context, gameID uint32, account common.Address, seed []byte) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	owned, ok := c.seeds[account]
	return ok && bytes.Equal(owned, seed), nil
}

// CalculateRank derives a deterministic rank from the seed commitment, in
// the spirit of the contract's seed-quality scoring.
func (c *SimClient) CalculateRank(ctx context.Context, gameID uint32, seed []byte) (uint32, error) {
	h := mcrypto.Keccak(mcrypto.Str("rank"), mcrypto.Uint32(gameID), mcrypto.Bytes(seed))
	return binary.BigEndian.Uint32(h[:4]) % 100, nil
}

func (c *SimClient) PublicSeed(ctx context.Context, gameID uint32, seed []byte) ([]byte, error) {
	h := mcrypto.Keccak(mcrypto.Str("seed"), mcrypto.Uint32(gameID), mcrypto.Bytes(seed))
	return h[:], nil
}

func (c *SimClient) MatchHash(ctx context.Context, msg *MatchVerifiedMessage) (common.Hash, error) {
	if msg.Players[0] == nil || msg.Players[1] == nil {
		return common.Hash{}, fmt.Errorf("match hash requires both players")
	}
	if msg.Players[0].SignatureTimestamp == nil || msg.Players[1].SignatureTimestamp == nil {
		return common.Hash{}, fmt.Errorf("match hash requires both timestamp signatures")
	}
	return mcrypto.Keccak(
		mcrypto.Addr(msg.Accounts[0]), mcrypto.Addr(msg.Accounts[1]),
		mcrypto.Addr(msg.SubKeys[0]), mcrypto.Addr(msg.SubKeys[1]),
		mcrypto.Addr(msg.GameAddress),
		mcrypto.Int64(msg.Timestamp),
		mcrypto.Uint32(msg.Players[0].SeedRating), mcrypto.Uint32(msg.Players[1].SeedRating),
		mcrypto.Bytes(msg.Players[0].PublicSeed), mcrypto.Bytes(msg.Players[1].PublicSeed),
		mcrypto.Sig(*msg.Players[0].SignatureTimestamp), mcrypto.Sig(*msg.Players[1].SignatureTimestamp),
	), nil
}

func (c *SimClient) IsWithdrawing(ctx context.Context, account common.Address) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.withdrawing[account], nil
}

func (c *SimClient) CanStopWithdrawal(ctx context.Context, timestamp int64, timestampSig, matcherSig *mcrypto.Signature) (bool, error) {
	if timestampSig == nil || matcherSig == nil {
		return false, nil
	}
	// Both signatures must at least be recoverable before the verdict
	// applies.
	if _, err := mcrypto.Recover(mcrypto.TimestampHash(timestamp), timestampSig); err != nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopVerdict, nil
}

func (c *SimClient) StopWithdrawal(ctx context.Context, timestamp int64, timestampSig, matcherSig *mcrypto.Signature) (*TxResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopErr != nil {
		return nil, c.stopErr
	}
	c.stopped = append(c.stopped, StopCall{
		Timestamp:    timestamp,
		TimestampSig: timestampSig,
		MatcherSig:   matcherSig,
	})
	hash := mcrypto.Keccak(mcrypto.Str("stop"), mcrypto.Int64(timestamp), mcrypto.Sig(*timestampSig), mcrypto.Sig(*matcherSig))
	c.log.Infof("simchain: recorded StopWithdrawal tx %s", hash)
	return &TxResult{Hash: hash}, nil
}
