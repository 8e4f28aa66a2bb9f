// Package reassembler implements C5: joining multi-transaction
// inscription envelopes into completed inscriptions. It is grounded on
// txscript/engine.go's opcode-driven script walking (the general shape
// of stepping through a script byte-by-byte dispatching on the opcode
// value), generalized from script *execution* to push-data
// *extraction* only, since envelope parsing never runs the script.
package reassembler

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	opZero        = 0x00
	opPushData1   = 0x4c
	opPushData2   = 0x4d
	opPushData4   = 0x4e
	op1           = 0x51
	op16          = 0x60
	maxDirectPush = 0x4b
)

// ErrMalformedPush is returned for any push-data opcode whose declared
// length runs past the end of the script.
var ErrMalformedPush = errors.New("malformed push-data item")

// DecodePushes walks script and returns every push-data item in
// order. Non-push opcodes are skipped (the envelope protocol only
// ever reads pushes; control-flow opcodes carry no data of interest).
func DecodePushes(script []byte) ([][]byte, error) {
	var items [][]byte
	i := 0
	for i < len(script) {
		op := script[i]
		i++

		switch {
		case op == opZero:
			items = append(items, []byte{})

		case op >= 1 && op <= maxDirectPush:
			length := int(op)
			if i+length > len(script) {
				return nil, ErrMalformedPush
			}
			items = append(items, script[i:i+length])
			i += length

		case op == opPushData1:
			if i+1 > len(script) {
				return nil, ErrMalformedPush
			}
			length := int(script[i])
			i++
			if i+length > len(script) {
				return nil, ErrMalformedPush
			}
			items = append(items, script[i:i+length])
			i += length

		case op == opPushData2:
			// Two little-endian length bytes strictly after the
			// opcode: script[i], script[i+1], low byte first. The
			// source this protocol is modeled on reads this
			// big-endian-swapped (bytes[1]<<8|bytes[0] against the
			// wrong offset window) -- a bug fixed here.
			if i+2 > len(script) {
				return nil, ErrMalformedPush
			}
			length := int(binary.LittleEndian.Uint16(script[i : i+2]))
			i += 2
			if i+length > len(script) {
				return nil, ErrMalformedPush
			}
			items = append(items, script[i:i+length])
			i += length

		case op == opPushData4:
			if i+4 > len(script) {
				return nil, ErrMalformedPush
			}
			length := int(binary.LittleEndian.Uint32(script[i : i+4]))
			i += 4
			if i+length > len(script) {
				return nil, ErrMalformedPush
			}
			items = append(items, script[i:i+length])
			i += length

		case op >= op1 && op <= op16:
			items = append(items, []byte{op - op1 + 1})

		default:
			// non-push opcode, no operand to skip
		}
	}
	return items, nil
}

// DecodeLEUint interprets a push-data item as a little-endian unsigned
// integer. A zero-length item is 0; items longer than 8 bytes are
// rejected as oversized for any protocol integer field.
func DecodeLEUint(item []byte) (uint64, error) {
	if len(item) == 0 {
		return 0, nil
	}
	if len(item) > 8 {
		return 0, errors.Errorf("push item of %d bytes exceeds 8-byte integer limit", len(item))
	}
	var buf [8]byte
	copy(buf[:], item)
	return binary.LittleEndian.Uint64(buf[:]), nil
}
