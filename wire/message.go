package wire

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyon-games/matchd/mcrypto"
)

// Code identifies the kind of a wire message.
type Code int

const (
	// TERMINATE signals an unrecoverable fatal error and closes the
	// connection.
	TERMINATE Code = -2
	ERROR     Code = -1

	// MSG carries an opaque gameplay payload relayed between players.
	MSG Code = 0
	// INIT announces a found match; the payload carries the match
	// timestamp to be signed by each player.
	INIT Code = 1
	// SIGNED_TIMESTAMP carries a player's signed-timestamp proof.
	SIGNED_TIMESTAMP Code = 2
	// MATCH_VERIFIED means both players in the session have passed every
	// validation test.
	MATCH_VERIFIED Code = 3
)

type Meta struct {
	// Index is the sender's player slot in the match, 0 or 1.
	Index  uint8           `json:"index"`
	Code   Code            `json:"code"`
	SubKey *common.Address `json:"subkey,omitempty"`
}

// Message is the envelope sent over the wire between players and matcher.
type Message struct {
	*Meta   `json:"meta"`
	Payload string `json:"payload"`
}

func NewError(message string) Message {
	return Message{Meta: &Meta{Code: ERROR}, Payload: message}
}

func NewTerminate(message string) Message {
	return Message{Meta: &Meta{Code: TERMINATE}, Payload: message}
}

// InitPayload is the payload of an INIT message.
type InitPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// SignedTimestampPayload is the payload of a SIGNED_TIMESTAMP message: the
// match timestamp and the player's subkey signature over it.
type SignedTimestampPayload struct {
	Timestamp int64              `json:"timestamp"`
	Signature *mcrypto.Signature `json:"signature"`
}

// Marshal encodes m for transport.
func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal decodes a transported message.
func Unmarshal(b []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(b, &m)
	return m, err
}
