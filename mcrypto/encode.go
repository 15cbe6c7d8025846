package mcrypto

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Encodable is the closed set of values that can be packed into a canonical
// byte string for hashing. The caller picks the encoder; nothing is
// inspected at runtime.
type Encodable interface {
	encode() []byte
}

type (
	Str    string
	Bytes  []byte
	Uint32 uint32
	Int64  int64
	Addr   common.Address
	Hash   common.Hash
	Sig    Signature
)

func (v Str) encode() []byte { return []byte(v) }

func (v Bytes) encode() []byte { return v }

func (v Uint32) encode() []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func (v Int64) encode() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return b[:]
}

func (v Addr) encode() []byte { return v[:] }

func (v Hash) encode() []byte { return v[:] }

// Sig encodes as V || R || S.
func (v Sig) encode() []byte {
	out := make([]byte, 0, 1+len(v.R)+len(v.S))
	out = append(out, v.V)
	out = append(out, v.R...)
	return append(out, v.S...)
}

// Pack concatenates the canonical encodings of parts.
func Pack(parts ...Encodable) []byte {
	var compact []byte
	for _, p := range parts {
		compact = append(compact, p.encode()...)
	}
	return compact
}

// Keccak hashes the packed encoding of parts.
func Keccak(parts ...Encodable) common.Hash {
	return crypto.Keccak256Hash(Pack(parts...))
}
