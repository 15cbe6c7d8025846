package matchdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/halcyon-games/matchd/matchsession"
)

const (
	sessionKeyPrefix = "matchd:session:"
	subKeyKeyPrefix  = "matchd:subkey:"
	accountKeyPrefix = "matchd:account:"
)

// RedisStore is a redis-backed SessionStore using JSON values and
// subkey/account pointer keys written in one transactional pipeline.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) GetByID(ctx context.Context, id matchsession.UUID) (*matchsession.Session, error) {
	return s.get(ctx, sessionKeyPrefix+id.String())
}

func (s *RedisStore) GetBySubKey(ctx context.Context, subKey common.Address) (*matchsession.Session, error) {
	return s.getIndirect(ctx, subKeyKeyPrefix+subKey.Hex())
}

func (s *RedisStore) GetByAccount(ctx context.Context, account common.Address) (*matchsession.Session, error) {
	return s.getIndirect(ctx, accountKeyPrefix+account.Hex())
}

func (s *RedisStore) get(ctx context.Context, key string) (*matchsession.Session, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	sess := &matchsession.Session{}
	if err := json.Unmarshal(raw, sess); err != nil {
		return nil, fmt.Errorf("corrupt session at %s: %w", key, err)
	}
	return sess, nil
}

func (s *RedisStore) getIndirect(ctx context.Context, indexKey string) (*matchsession.Session, error) {
	id, err := s.rdb.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", indexKey, err)
	}
	return s.get(ctx, sessionKeyPrefix+id)
}

func (s *RedisStore) Put(ctx context.Context, sess *matchsession.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+sess.ID.String(), raw, 0)
		for _, p := range []*matchsession.PlayerInfo{sess.Player1, sess.Player2} {
			if p == nil {
				continue
			}
			pipe.Set(ctx, subKeyKeyPrefix+p.SubKey.Hex(), sess.ID.String(), 0)
			pipe.Set(ctx, accountKeyPrefix+p.Account.Hex(), sess.ID.String(), 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id matchsession.UUID) error {
	sess, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	keys := []string{sessionKeyPrefix + id.String()}
	for _, p := range []*matchsession.PlayerInfo{sess.Player1, sess.Player2} {
		if p == nil {
			continue
		}
		keys = append(keys, subKeyKeyPrefix+p.SubKey.Hex(), accountKeyPrefix+p.Account.Hex())
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
