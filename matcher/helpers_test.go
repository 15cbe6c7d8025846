package matcher

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-games/matchd/chain"
	"github.com/halcyon-games/matchd/matchdb"
	"github.com/halcyon-games/matchd/matchsession"
	"github.com/halcyon-games/matchd/mcrypto"
	"github.com/halcyon-games/matchd/transport"
	"github.com/halcyon-games/matchd/wire"
)

const testGameID uint32 = 1

var testGameAddr = common.HexToAddress("0x00000000000000000000000000000000000000ee")

func newTestService(t *testing.T) (*Service, *chain.SimClient, *transport.MemoryBus, *matchdb.MemStore) {
	t.Helper()

	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	sim := chain.NewSimClient(slog.Disabled)
	store := matchdb.NewMemStore()
	bus := transport.NewMemoryBus(slog.Disabled)

	svc, err := NewService(Config{
		Chain:       sim,
		Store:       store,
		Bus:         bus,
		Events:      sim.Events(),
		PrivKey:     priv,
		GameAddress: map[uint32]common.Address{testGameID: testGameAddr},
		Log:         slog.Disabled,
	})
	require.NoError(t, err)
	return svc, sim, bus, store
}

type testPlayer struct {
	accountKey *ecdsa.PrivateKey
	subKeyPriv *ecdsa.PrivateKey
	account    common.Address
	subKey     common.Address
	token      *matchsession.Token
}

// newTestPlayer generates a staked player whose subkey authorization and
// seed ownership check out on the simulated chain.
func newTestPlayer(t *testing.T, sim *chain.SimClient, seed []byte) *testPlayer {
	t.Helper()

	accountKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	subKeyPriv, err := crypto.GenerateKey()
	require.NoError(t, err)

	account := crypto.PubkeyToAddress(accountKey.PublicKey)
	subKey := crypto.PubkeyToAddress(subKeyPriv.PublicKey)

	subKeySig, err := mcrypto.Sign(mcrypto.SubKeyChallengeHash(subKey), accountKey)
	require.NoError(t, err)

	sim.SetStake(account, chain.Staked)
	sim.SetSeed(account, seed)

	return &testPlayer{
		accountKey: accountKey,
		subKeyPriv: subKeyPriv,
		account:    account,
		subKey:     subKey,
		token: &matchsession.Token{
			SubKey:          &subKey,
			SubKeySignature: subKeySig,
			GameID:          testGameID,
			Seed:            seed,
		},
	}
}

// signedTimestampMsg builds the SIGNED_TIMESTAMP message p would send after
// receiving INIT, signed with key (normally p's subkey).
func (p *testPlayer) signedTimestampMsg(t *testing.T, ts int64, key *ecdsa.PrivateKey, index uint8) *wire.Message {
	t.Helper()

	sig, err := mcrypto.Sign(mcrypto.TimestampHash(ts), key)
	require.NoError(t, err)
	payload, err := json.Marshal(wire.SignedTimestampPayload{Timestamp: ts, Signature: sig})
	require.NoError(t, err)

	return &wire.Message{
		Meta: &wire.Meta{
			Code:   wire.SIGNED_TIMESTAMP,
			Index:  index,
			SubKey: &p.subKey,
		},
		Payload: string(payload),
	}
}

func recvMsg(t *testing.T, ch <-chan wire.Message) wire.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
		return wire.Message{}
	}
}

// pairPlayers runs the match loop for two equal-rank players and returns
// them together with their bus subscriptions, after both INITs arrived.
func pairPlayers(t *testing.T, svc *Service, sim *chain.SimClient, bus *transport.MemoryBus) (a, b *testPlayer, chA, chB <-chan wire.Message, ts int64) {
	t.Helper()
	ctx := context.Background()

	seed := []byte("shared-test-seed")
	a = newTestPlayer(t, sim, seed)
	b = newTestPlayer(t, sim, seed)

	chA, unsubA := bus.Subscribe(a.subKey.Hex())
	t.Cleanup(unsubA)
	chB, unsubB := bus.Subscribe(b.subKey.Hex())
	t.Cleanup(unsubB)

	rpA, err := svc.Authenticate(ctx, a.token)
	require.NoError(t, err)
	rpB, err := svc.Authenticate(ctx, b.token)
	require.NoError(t, err)
	require.Equal(t, rpA.Rank, rpB.Rank)

	svc.match(ctx, rpA)
	require.Equal(t, 1, svc.pool.Len())
	svc.match(ctx, rpB)
	require.Equal(t, 0, svc.pool.Len())

	initA := recvMsg(t, chA)
	require.Equal(t, wire.INIT, initA.Code)
	initB := recvMsg(t, chB)
	require.Equal(t, wire.INIT, initB.Code)

	var init wire.InitPayload
	require.NoError(t, json.Unmarshal([]byte(initA.Payload), &init))
	require.NotZero(t, init.Timestamp)
	return a, b, chA, chB, init.Timestamp
}

// verifySession drives both players through the timestamp proof and drains
// the two MATCH_VERIFIED notifications.
func verifySession(t *testing.T, svc *Service, a, b *testPlayer, chA, chB <-chan wire.Message, ts int64) (mvA, mvB *chain.MatchVerifiedMessage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, svc.OnMessage(ctx, a.signedTimestampMsg(t, ts, a.subKeyPriv, 0)))
	require.NoError(t, svc.OnMessage(ctx, b.signedTimestampMsg(t, ts, b.subKeyPriv, 1)))

	msgA := recvMsg(t, chA)
	require.Equal(t, wire.MATCH_VERIFIED, msgA.Code)
	msgB := recvMsg(t, chB)
	require.Equal(t, wire.MATCH_VERIFIED, msgB.Code)

	mvA = &chain.MatchVerifiedMessage{}
	require.NoError(t, json.Unmarshal([]byte(msgA.Payload), mvA))
	mvB = &chain.MatchVerifiedMessage{}
	require.NoError(t, json.Unmarshal([]byte(msgB.Payload), mvB))
	return mvA, mvB
}

// differentRankSeed finds a seed whose rank differs from rank on the
// simulated chain, keeping the ranked-pool tests deterministic.
func differentRankSeed(t *testing.T, sim *chain.SimClient, rank uint32) []byte {
	t.Helper()
	for i := 0; ; i++ {
		seed := []byte(fmt.Sprintf("other-seed-%d", i))
		r, err := sim.CalculateRank(context.Background(), testGameID, seed)
		require.NoError(t, err)
		if r != rank {
			return seed
		}
	}
}
