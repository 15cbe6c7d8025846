package matchdb

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyon-games/matchd/matchsession"
)

var (
	ErrNotFound              = errors.New("session not found")
	ErrSessionBucketNotFound = errors.New("session bucket not found")
	ErrIndexBucketNotFound   = errors.New("index bucket not found")
)

// SessionStore is the durable mapping from session identifier, participant
// subkey, and participant account to session records. Sessions are never
// expired by the store; Delete exists for cleanup on failure.
type SessionStore interface {
	GetByID(ctx context.Context, id matchsession.UUID) (*matchsession.Session, error)
	GetBySubKey(ctx context.Context, subKey common.Address) (*matchsession.Session, error)
	GetByAccount(ctx context.Context, account common.Address) (*matchsession.Session, error)

	// Put persists the session and its subkey/account index entries.
	Put(ctx context.Context, sess *matchsession.Session) error

	// Delete removes the session and its index entries.
	Delete(ctx context.Context, id matchsession.UUID) error

	Close() error
}
