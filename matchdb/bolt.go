package matchdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"

	"github.com/halcyon-games/matchd/matchsession"
)

var (
	sessionsBucket = []byte("sessions")
	subKeysBucket  = []byte("subkeys")
	accountsBucket = []byte("accounts")
)

// BoltStore is a bbolt-backed SessionStore. Sessions are stored as JSON
// under their ID; subkey and account lookups go through index buckets
// mapping address bytes to the session ID.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{sessionsBucket, subKeysBucket, accountsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) GetByID(ctx context.Context, id matchsession.UUID) (*matchsession.Session, error) {
	var sess *matchsession.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return ErrSessionBucketNotFound
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		sess = &matchsession.Session{}
		return json.Unmarshal(raw, sess)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *BoltStore) GetBySubKey(ctx context.Context, subKey common.Address) (*matchsession.Session, error) {
	return s.getByIndex(subKeysBucket, subKey)
}

func (s *BoltStore) GetByAccount(ctx context.Context, account common.Address) (*matchsession.Session, error) {
	return s.getByIndex(accountsBucket, account)
}

func (s *BoltStore) getByIndex(bucket []byte, addr common.Address) (*matchsession.Session, error) {
	var sess *matchsession.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(bucket)
		if idx == nil {
			return ErrIndexBucketNotFound
		}
		id := idx.Get(addr.Bytes())
		if id == nil {
			return ErrNotFound
		}
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return ErrSessionBucketNotFound
		}
		raw := b.Get(id)
		if raw == nil {
			return ErrNotFound
		}
		sess = &matchsession.Session{}
		return json.Unmarshal(raw, sess)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *BoltStore) Put(ctx context.Context, sess *matchsession.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return ErrSessionBucketNotFound
		}
		if err := b.Put([]byte(sess.ID), raw); err != nil {
			return err
		}
		subs, accts := tx.Bucket(subKeysBucket), tx.Bucket(accountsBucket)
		if subs == nil || accts == nil {
			return ErrIndexBucketNotFound
		}
		for _, p := range []*matchsession.PlayerInfo{sess.Player1, sess.Player2} {
			if p == nil {
				continue
			}
			if err := subs.Put(p.SubKey.Bytes(), []byte(sess.ID)); err != nil {
				return err
			}
			if err := accts.Put(p.Account.Bytes(), []byte(sess.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Delete(ctx context.Context, id matchsession.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return ErrSessionBucketNotFound
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		var sess matchsession.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return err
		}
		subs, accts := tx.Bucket(subKeysBucket), tx.Bucket(accountsBucket)
		if subs == nil || accts == nil {
			return ErrIndexBucketNotFound
		}
		for _, p := range []*matchsession.PlayerInfo{sess.Player1, sess.Player2} {
			if p == nil {
				continue
			}
			if err := subs.Delete(p.SubKey.Bytes()); err != nil {
				return err
			}
			if err := accts.Delete(p.Account.Bytes()); err != nil {
				return err
			}
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
