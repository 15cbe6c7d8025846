package matchdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-games/matchd/matchsession"
	"github.com/halcyon-games/matchd/mcrypto"
)

func testSession() *matchsession.Session {
	sub1 := common.BytesToAddress([]byte{0x11})
	sub2 := common.BytesToAddress([]byte{0x22})
	acct1 := common.BytesToAddress([]byte{0x01})
	acct2 := common.BytesToAddress([]byte{0x02})

	sess := matchsession.NewSession(1, &matchsession.PlayerInfo{
		Token:   &matchsession.Token{SubKey: &sub1, GameID: 1, Seed: []byte("seed1")},
		Account: &acct1,
		Rank:    5,
	})
	sess.Player2 = &matchsession.PlayerInfo{
		Token:   &matchsession.Token{SubKey: &sub2, GameID: 1, Seed: []byte("seed2")},
		Account: &acct2,
		Rank:    5,
		Index:   1,
	}
	sess.Timestamp = 1700000000
	return sess
}

// testStore exercises one SessionStore implementation through the full key
// scheme: id, subkey, and account lookups plus delete cleanup.
func testStore(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sess := testSession()

	// Misses before any write.
	_, err := store.GetByID(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetBySubKey(ctx, *sess.Player1.SubKey)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetByAccount(ctx, *sess.Player1.Account)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, sess))

	got, err := store.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.Timestamp, got.Timestamp)
	require.NotNil(t, got.Player2)
	assert.EqualValues(t, 1, got.Player2.Index)

	// Both participants resolve through both index dimensions.
	got, err = store.GetBySubKey(ctx, *sess.Player2.SubKey)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	got, err = store.GetByAccount(ctx, *sess.Player2.Account)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	// Updates overwrite in place.
	sess.Signature = &mcrypto.Signature{V: 27, R: make([]byte, 32), S: make([]byte, 32)}
	require.NoError(t, store.Put(ctx, sess))
	got, err = store.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Signature)
	assert.EqualValues(t, 27, got.Signature.V)

	// Delete removes the record and every index entry.
	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.GetByID(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetBySubKey(ctx, *sess.Player1.SubKey)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetByAccount(ctx, *sess.Player2.Account)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, sess.ID), ErrNotFound)
}

func TestMemStore(t *testing.T) {
	store := NewMemStore()
	defer store.Close()
	testStore(t, store)
}

func TestBoltStore(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "match.db"))
	require.NoError(t, err)
	defer store.Close()
	testStore(t, store)
}

func TestBoltStoreWaitingSession(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "match.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	sub := common.BytesToAddress([]byte{0x31})
	acct := common.BytesToAddress([]byte{0x03})
	sess := matchsession.NewSession(2, &matchsession.PlayerInfo{
		Token:   &matchsession.Token{SubKey: &sub, GameID: 2},
		Account: &acct,
		Rank:    9,
	})

	require.NoError(t, store.Put(ctx, sess))
	got, err := store.GetBySubKey(ctx, sub)
	require.NoError(t, err)
	assert.Nil(t, got.Player2)
	assert.Equal(t, uint32(9), got.Rank())
}
