package matcher

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/halcyon-games/matchd/chain"
	"github.com/halcyon-games/matchd/matchdb"
	"github.com/halcyon-games/matchd/matchsession"
	"github.com/halcyon-games/matchd/transport"
	"github.com/halcyon-games/matchd/wire"
)

type Config struct {
	Chain chain.Client
	Store matchdb.SessionStore
	Bus   transport.Transport

	// Events is the withdrawal event source driving the watchdog. May be
	// nil, in which case the watchdog never fires.
	Events *chain.Watcher

	// PrivKeyFile holds the matcher's hex-encoded signing key. Ignored
	// when PrivKey is set directly.
	PrivKeyFile string
	PrivKey     *ecdsa.PrivateKey

	// GameAddress maps game IDs to their governing contract addresses.
	GameAddress map[uint32]common.Address

	Log slog.Logger
}

// Service is the matchmaking and session-synchronization engine. It holds
// typed references to its chain, store, and transport capabilities; pairing
// decisions are serialized through a single-consumer request channel.
type Service struct {
	log   slog.Logger
	chain chain.Client
	store matchdb.SessionStore
	bus   transport.Transport

	events      *chain.Watcher
	pool        *matchsession.Pool
	priv        *ecdsa.PrivateKey
	addr        common.Address
	gameAddress map[uint32]common.Address

	// requests feeds the one match-loop consumer in Run. Entries have
	// already been authenticated.
	requests chan *matchsession.MatchResponse
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Chain == nil || cfg.Store == nil || cfg.Bus == nil {
		return nil, fmt.Errorf("chain, store, and bus are all required")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}

	priv := cfg.PrivKey
	if priv == nil {
		var err error
		priv, err = crypto.LoadECDSA(cfg.PrivKeyFile)
		if err != nil {
			// The service cannot sign anything without its key.
			return nil, fmt.Errorf("failed to load matcher private key from %s: %w", cfg.PrivKeyFile, err)
		}
	}

	return &Service{
		log:         log,
		chain:       cfg.Chain,
		store:       cfg.Store,
		bus:         cfg.Bus,
		events:      cfg.Events,
		pool:        matchsession.NewPool(),
		priv:        priv,
		addr:        crypto.PubkeyToAddress(priv.PublicKey),
		gameAddress: cfg.GameAddress,
		requests:    make(chan *matchsession.MatchResponse),
	}, nil
}

// Address is the matcher's signing address.
func (s *Service) Address() common.Address { return s.addr }

// Run drives the single match-loop consumer and the withdrawal watchdog
// until ctx is done. Only the pairing decision is serialized here;
// authentication and relay I/O run on the callers' goroutines.
func (s *Service) Run(ctx context.Context) error {
	var withdrawals <-chan chain.WithdrawalStarted
	if s.events != nil {
		var unsub func()
		withdrawals, unsub = s.events.Subscribe()
		defer unsub()
	}

	s.log.Infof("matcher %s: started", s.addr)
	defer s.log.Infof("matcher %s: stopped", s.addr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case rp := <-s.requests:
			s.match(ctx, rp)
		case ev := <-withdrawals:
			go s.OnWithdrawalStarted(ctx, ev)
		}
	}
}

// FindMatch authenticates the connection token and hands the request to the
// match loop. An authentication failure terminates only this connection.
func (s *Service) FindMatch(ctx context.Context, token *matchsession.Token) {
	rp, err := s.Authenticate(ctx, token)
	if err != nil {
		s.log.Errorf("authentication failed for subkey %s: %v", token.SubKey, err)
		s.terminate(ctx, token.SubKey, fmt.Sprintf("error authenticating match request, closing connection: %v", err))
		return
	}
	select {
	case s.requests <- rp:
	case <-ctx.Done():
	}
}

func (s *Service) terminate(ctx context.Context, subKey *common.Address, message string) {
	if err := s.bus.Publish(ctx, subKey.Hex(), wire.NewTerminate(message)); err != nil {
		s.log.Errorf("failed to publish terminate to %s: %v", subKey, err)
	}
}
