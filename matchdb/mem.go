package matchdb

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyon-games/matchd/matchsession"
)

// MemStore is an in-memory SessionStore for tests and dev runs.
type MemStore struct {
	mu        sync.RWMutex
	byID      map[matchsession.UUID]*matchsession.Session
	bySubKey  map[common.Address]matchsession.UUID
	byAccount map[common.Address]matchsession.UUID
}

func NewMemStore() *MemStore {
	return &MemStore{
		byID:      make(map[matchsession.UUID]*matchsession.Session),
		bySubKey:  make(map[common.Address]matchsession.UUID),
		byAccount: make(map[common.Address]matchsession.UUID),
	}
}

func (s *MemStore) GetByID(ctx context.Context, id matchsession.UUID) (*matchsession.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *MemStore) GetBySubKey(ctx context.Context, subKey common.Address) (*matchsession.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySubKey[subKey]
	if !ok {
		return nil, ErrNotFound
	}
	sess, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *MemStore) GetByAccount(ctx context.Context, account common.Address) (*matchsession.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAccount[account]
	if !ok {
		return nil, ErrNotFound
	}
	sess, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *MemStore) Put(ctx context.Context, sess *matchsession.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sess.ID] = sess
	for _, p := range []*matchsession.PlayerInfo{sess.Player1, sess.Player2} {
		if p == nil {
			continue
		}
		s.bySubKey[*p.SubKey] = sess.ID
		s.byAccount[*p.Account] = sess.ID
	}
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id matchsession.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	for _, p := range []*matchsession.PlayerInfo{sess.Player1, sess.Player2} {
		if p == nil {
			continue
		}
		delete(s.bySubKey, *p.SubKey)
		delete(s.byAccount, *p.Account)
	}
	delete(s.byID, id)
	return nil
}

func (s *MemStore) Close() error { return nil }
