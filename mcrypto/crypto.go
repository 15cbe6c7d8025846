package mcrypto

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature is the canonical recoverable secp256k1 triple carried on the
// wire and in contract calls. V is 27 or 28, R and S are 32 bytes each.
type Signature struct {
	V byte   `json:"v"`
	R []byte `json:"r"`
	S []byte `json:"s"`
}

// NewSignature builds a Signature from a 65-byte [R || S || V] compact
// signature as produced by crypto.Sign.
func NewSignature(compact []byte) (*Signature, error) {
	if len(compact) != 65 {
		return nil, fmt.Errorf("compact signature must be 65 bytes, got %d", len(compact))
	}
	return &Signature{
		V: 27 + compact[64],
		R: append([]byte(nil), compact[:32]...),
		S: append([]byte(nil), compact[32:64]...),
	}, nil
}

// Compact returns the 65-byte [R || S || V] form expected by signature
// recovery.
func (s *Signature) Compact() ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil signature")
	}
	if len(s.R) != 32 || len(s.S) != 32 {
		return nil, fmt.Errorf("signature R/S must be 32 bytes, got %d/%d", len(s.R), len(s.S))
	}
	if s.V != 27 && s.V != 28 {
		return nil, fmt.Errorf("signature V must be 27 or 28, got %d", s.V)
	}
	out := make([]byte, 65)
	copy(out[:32], s.R)
	copy(out[32:64], s.S)
	out[64] = s.V - 27
	return out, nil
}

// Sign produces a recoverable signature over hash with priv.
func Sign(hash common.Hash, priv *ecdsa.PrivateKey) (*Signature, error) {
	compact, err := crypto.Sign(hash[:], priv)
	if err != nil {
		return nil, err
	}
	return NewSignature(compact)
}

// Recover returns the address whose key produced sig over hash.
func Recover(hash common.Hash, sig *Signature) (common.Address, error) {
	compact, err := sig.Compact()
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(hash[:], compact)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// personalHash hashes msg under the EIP-191 personal-message prefix so that
// signatures made here can never double as transaction signatures.
func personalHash(msg []byte) common.Hash {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg))
	return crypto.Keccak256Hash([]byte(prefix), msg)
}

// SubKeyChallengeHash is the fixed challenge an account signs to authorize a
// session subkey. Recovering the signer of this hash yields the subkey's
// parent account.
func SubKeyChallengeHash(subKey common.Address) common.Hash {
	return personalHash([]byte("matchd subkey authorization: " + subKey.Hex()))
}

// TimestampHash is the challenge a player signs to attest the match start
// time.
func TimestampHash(ts int64) common.Hash {
	return personalHash([]byte("matchd match timestamp: " + strconv.FormatInt(ts, 10)))
}
