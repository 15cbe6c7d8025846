package matcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-games/matchd/wire"
)

func TestMatchFirstRequestWaits(t *testing.T) {
	svc, sim, _, store := newTestService(t)
	ctx := context.Background()
	p := newTestPlayer(t, sim, []byte("lonely seed"))

	rp, err := svc.Authenticate(ctx, p.token)
	require.NoError(t, err)
	svc.match(ctx, rp)

	assert.Equal(t, 1, svc.pool.Len())
	assert.Equal(t, 1, svc.pool.LenByRank(rp.Rank))

	sess, err := store.GetBySubKey(ctx, p.subKey)
	require.NoError(t, err)
	assert.Nil(t, sess.Player2)
	assert.Zero(t, sess.Timestamp)
	assert.Equal(t, rp.Rank, sess.Rank())
	assert.EqualValues(t, 0, sess.Player1.Index)
	assert.NotEmpty(t, sess.Player1.SeedHash)
}

func TestMatchPairsEqualRank(t *testing.T) {
	svc, sim, bus, store := newTestService(t)
	a, b, _, _, ts := pairPlayers(t, svc, sim, bus)

	sess, err := store.GetBySubKey(context.Background(), a.subKey)
	require.NoError(t, err)
	require.NotNil(t, sess.Player2)
	assert.Equal(t, a.account, *sess.Player1.Account)
	assert.Equal(t, b.account, *sess.Player2.Account)
	assert.EqualValues(t, 0, sess.Player1.Index)
	assert.EqualValues(t, 1, sess.Player2.Index)
	assert.Equal(t, ts, sess.Timestamp)
	assert.NotZero(t, sess.Timestamp)
	assert.False(t, sess.IsVerified())

	// Both subkeys resolve to the same session.
	other, err := store.GetBySubKey(context.Background(), b.subKey)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, other.ID)
}

func TestMatchInitCarriesPlayerIndex(t *testing.T) {
	svc, sim, bus, _ := newTestService(t)
	ctx := context.Background()

	seed := []byte("indexed seed")
	a := newTestPlayer(t, sim, seed)
	b := newTestPlayer(t, sim, seed)

	chA, unsubA := bus.Subscribe(a.subKey.Hex())
	defer unsubA()
	chB, unsubB := bus.Subscribe(b.subKey.Hex())
	defer unsubB()

	rpA, err := svc.Authenticate(ctx, a.token)
	require.NoError(t, err)
	rpB, err := svc.Authenticate(ctx, b.token)
	require.NoError(t, err)
	svc.match(ctx, rpA)
	svc.match(ctx, rpB)

	initA := recvMsg(t, chA)
	require.Equal(t, wire.INIT, initA.Code)
	assert.EqualValues(t, 0, initA.Index)
	assert.Equal(t, a.subKey, *initA.SubKey)

	initB := recvMsg(t, chB)
	require.Equal(t, wire.INIT, initB.Code)
	assert.EqualValues(t, 1, initB.Index)
	assert.Equal(t, b.subKey, *initB.SubKey)

	// Both sides sign the same timestamp.
	assert.Equal(t, initA.Payload, initB.Payload)
}

func TestMatchDifferentRanksNeverPair(t *testing.T) {
	svc, sim, _, _ := newTestService(t)
	ctx := context.Background()

	a := newTestPlayer(t, sim, []byte("rank seed"))
	rpA, err := svc.Authenticate(ctx, a.token)
	require.NoError(t, err)

	b := newTestPlayer(t, sim, differentRankSeed(t, sim, rpA.Rank))
	rpB, err := svc.Authenticate(ctx, b.token)
	require.NoError(t, err)
	require.NotEqual(t, rpA.Rank, rpB.Rank)

	svc.match(ctx, rpA)
	svc.match(ctx, rpB)

	// Both wait at their own rank.
	assert.Equal(t, 2, svc.pool.Len())
	assert.Equal(t, 1, svc.pool.LenByRank(rpA.Rank))
	assert.Equal(t, 1, svc.pool.LenByRank(rpB.Rank))
}

func TestRunPairsConcurrentRequests(t *testing.T) {
	svc, sim, bus, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	const players = 8
	seed := []byte("crowded seed")
	inits := make(chan wire.Message, players)
	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		p := newTestPlayer(t, sim, seed)
		ch, unsub := bus.Subscribe(p.subKey.Hex())
		defer unsub()

		go func() {
			select {
			case msg := <-ch:
				inits <- msg
			case <-time.After(5 * time.Second):
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.FindMatch(ctx, p.token)
		}()
	}
	wg.Wait()

	// Every player ends up in exactly one pair.
	for i := 0; i < players; i++ {
		select {
		case msg := <-inits:
			assert.Equal(t, wire.INIT, msg.Code)
		case <-time.After(5 * time.Second):
			t.Fatalf("player %d never received INIT", i)
		}
	}
	assert.Equal(t, 0, svc.pool.Len())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
