package reassembler

import (
	"bytes"

	"github.com/kaspanet/ordindexer/util/chainhash"
)

// ProtocolID is the literal push item every inscription envelope's
// first transaction must lead with.
var ProtocolID = []byte("ord")

// State is a candidate envelope chain's position in the state machine
// described in SPEC_FULL.md's InscriptionReassembler contract.
type State int

// Chain states.
const (
	StateNone State = iota
	StatePartial
	StateComplete
)

// Chain is one candidate inscription envelope, threaded across one or
// more sequentially-chained transactions.
type Chain struct {
	GenesisTxID  chainhash.Hash
	ContentType  []byte
	Body         bytes.Buffer
	nextExpected int64 // index the next (index, body) pair must carry; stays 0 once Complete
	State        State
}

// processGenesis attempts to parse pushes as a chain's first
// transaction: PROTOCOL_ID, remaining_pieces, content_type, followed
// by zero or more inline (piece_index, piece_body) pairs. It mutates
// c in place, moving it to Partial, Complete or None.
func (c *Chain) processGenesis(pushes [][]byte, txID chainhash.Hash) {
	if len(pushes) < 3 || !bytes.Equal(pushes[0], ProtocolID) {
		c.State = StateNone
		return
	}
	remainingPieces, err := DecodeLEUint(pushes[1])
	if err != nil {
		c.State = StateNone
		return
	}

	c.GenesisTxID = txID
	c.ContentType = append([]byte(nil), pushes[2]...)

	// remainingPieces counts every piece still to be consumed,
	// including any inline (piece_index, piece_body) pairs this same
	// tx already carries right after content_type, so the first
	// expected index is simply remainingPieces-1 regardless of how
	// many of those pieces happen to be inlined here.
	inline := pushes[3:]
	c.nextExpected = int64(remainingPieces) - 1
	c.State = StatePartial
	c.consumePairs(inline)
}

// processContinuation feeds a continuation transaction's pushes (pure
// (piece_index, piece_body) pairs) into an already-Partial chain.
func (c *Chain) processContinuation(pushes [][]byte) {
	c.consumePairs(pushes)
}

// consumePairs walks items two at a time as (index, body) pairs,
// requiring a strictly decreasing index starting at c.nextExpected and
// ending at 0. Any violation (wrong index, odd item count left
// dangling, bad integer) discards the whole chain.
func (c *Chain) consumePairs(items [][]byte) {
	i := 0
	for i+1 < len(items) {
		idx, err := DecodeLEUint(items[i])
		if err != nil || int64(idx) != c.nextExpected {
			c.State = StateNone
			return
		}
		c.Body.Write(items[i+1])
		if idx == 0 {
			c.State = StateComplete
			return
		}
		c.nextExpected--
		i += 2
	}
	if i != len(items) {
		// a dangling, bodyless index item: protocol violation
		c.State = StateNone
	}
}
