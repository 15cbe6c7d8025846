package matcher

import "errors"

// Authentication failures. Any of these terminates the requesting
// connection with a TERMINATE message; the player may reconnect and retry.
var (
	ErrInvalidSubKeySignature = errors.New("invalid subkey signature")
	ErrNotStaked              = errors.New("player has not staked")
	ErrInsufficientStake      = errors.New("insufficient stake balance")
	ErrInvalidSeedOwnership   = errors.New("invalid seed ownership")
)

// Protocol failures. These reject or drop the single offending message and
// never crash the service.
var (
	ErrInvalidTimestampProof = errors.New("invalid timestamp signature proof")
	ErrSessionNotVerified    = errors.New("match session not verified")
	ErrUnknownSession        = errors.New("unknown session for subkey")
	ErrUnknownPlayer         = errors.New("unknown player subkey in session")
)
