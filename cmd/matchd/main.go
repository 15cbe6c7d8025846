package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/vctt94/bisonbotkit/logging"
	"golang.org/x/sync/errgroup"

	"github.com/halcyon-games/matchd/chain"
	"github.com/halcyon-games/matchd/matchdb"
	"github.com/halcyon-games/matchd/matcher"
	"github.com/halcyon-games/matchd/transport"
)

func main() {
	cfg := &config{}

	cmd := &cobra.Command{
		Use:   "matchd",
		Short: "Matchmaking and session-synchronization daemon for staked on-chain games",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&cfg.DataDir, "datadir", "matchd-data", "data directory for logs and the session db")
	cmd.Flags().StringVar(&cfg.PrivKeyFile, "privkey", "", "path to the matcher's hex-encoded signing key")
	cmd.Flags().StringVar(&cfg.DebugLevel, "debuglevel", "info", "log verbosity")
	cmd.Flags().StringVar(&cfg.RedisAddr, "redis", "", "redis address for session store and pub/sub (empty = bolt + in-process bus)")
	cmd.Flags().BoolVar(&cfg.SimChain, "simchain", false, "run against the in-process simulated chain")
	cmd.Flags().StringArrayVar(&cfg.Games, "game", nil, "game contract mapping id=0xaddress (repeatable)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfg *config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	games, err := cfg.gameAddresses()
	if err != nil {
		return err
	}

	logBknd, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:        filepath.Join(cfg.DataDir, "logs", "matchd.log"),
		DebugLevel:     cfg.DebugLevel,
		MaxLogFiles:    10,
		MaxBufferLines: 1000,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logBknd.Logger("MTCH")

	var (
		store matchdb.SessionStore
		bus   transport.Transport
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = matchdb.NewRedisStore(rdb)
		bus = transport.NewRedisBus(logBknd.Logger("BUS"), rdb)
		log.Infof("Using redis session store and bus at %s", cfg.RedisAddr)
	} else {
		bolt, err := matchdb.NewBoltStore(filepath.Join(cfg.DataDir, "match.db"))
		if err != nil {
			return err
		}
		store = bolt
		bus = transport.NewMemoryBus(logBknd.Logger("BUS"))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("Error closing session store: %v", err)
		}
	}()

	if !cfg.SimChain {
		// The production chain RPC client lives with the contract
		// deployment; this binary only ships the simulated chain.
		return fmt.Errorf("no chain client configured; run with --simchain or embed the matcher library")
	}
	sim := chain.NewSimClient(logBknd.Logger("CHN"))

	svc, err := matcher.NewService(matcher.Config{
		Chain:       sim,
		Store:       store,
		Bus:         bus,
		Events:      sim.Events(),
		PrivKeyFile: cfg.PrivKeyFile,
		GameAddress: games,
		Log:         log,
	})
	if err != nil {
		return err
	}
	log.Infof("Matcher signing address: %s", svc.Address())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })

	return g.Wait()
}
