package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type config struct {
	DataDir     string
	PrivKeyFile string
	DebugLevel  string

	// RedisAddr switches the session store and pub/sub transport from the
	// local bolt db + in-process bus to redis.
	RedisAddr string

	// SimChain runs against the in-process simulated chain. A real chain
	// RPC client is wired by embedders of the matcher library.
	SimChain bool

	// Games maps game IDs to contract addresses, each entry "id=0xaddr".
	Games []string
}

func (c *config) gameAddresses() (map[uint32]common.Address, error) {
	out := make(map[uint32]common.Address, len(c.Games))
	for _, entry := range c.Games {
		id, addr, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid game mapping %q, want id=0xaddress", entry)
		}
		gameID, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid game id in %q: %w", entry, err)
		}
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid contract address in %q", entry)
		}
		out[uint32(gameID)] = common.HexToAddress(addr)
	}
	return out, nil
}
