package matcher

import (
	"context"
	"fmt"

	"github.com/halcyon-games/matchd/chain"
	"github.com/halcyon-games/matchd/matchsession"
)

// Authenticate validates a connecting player's subkey signature and
// on-chain stake and seed claims. It runs to completion before the
// connection is ever admitted to the match queue.
func (s *Service) Authenticate(ctx context.Context, token *matchsession.Token) (*matchsession.MatchResponse, error) {
	account, err := s.chain.SubKeyParent(ctx, *token.SubKey, token.SubKeySignature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubKeySignature, err)
	}

	status, err := s.chain.GetStakedStatus(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to read stake status for %s: %w", account, err)
	}
	switch status {
	case chain.Staked:
	case chain.StakedInsufficientBalance:
		return nil, ErrInsufficientStake
	default:
		return nil, ErrNotStaked
	}

	owner, err := s.chain.IsSecretSeedValid(ctx, token.GameID, account, token.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to verify seed ownership for %s: %w", account, err)
	}
	if !owner {
		return nil, ErrInvalidSeedOwnership
	}

	rank, err := s.chain.CalculateRank(ctx, token.GameID, token.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate rank for %s: %w", account, err)
	}

	return &matchsession.MatchResponse{
		Account: account,
		Rank:    rank,
		Token:   token,
	}, nil
}
