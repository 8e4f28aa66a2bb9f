// Package chain implements the consensus-serialized block and
// transaction wire types this indexer consumes (§3, §6 of the spec),
// grounded on wire/common.go's ReadElement/WriteElement/ReadVarInt
// family -- trimmed to a single-parent UTXO chain instead of a DAG,
// and with compact-size varints (the classic Bitcoin-lineage
// encoding) instead of the teacher's discriminant layout, since that
// is the wire format the node this indexer talks to actually produces.
package chain

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ReadVarInt reads a Bitcoin-style compact-size integer from r.
func ReadVarInt(r io.Reader) (uint64, error) {
	var b [9]byte
	if _, err := io.ReadFull(r, b[:1]); err != nil {
		return 0, err
	}
	switch b[0] {
	case 0xff:
		if _, err := io.ReadFull(r, b[1:9]); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint64(b[1:9])
		if v < 0x100000000 {
			return 0, fmt.Errorf("non-canonical varint %x", v)
		}
		return v, nil
	case 0xfe:
		if _, err := io.ReadFull(r, b[1:5]); err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint32(b[1:5]))
		if v < 0x10000 {
			return 0, fmt.Errorf("non-canonical varint %x", v)
		}
		return v, nil
	case 0xfd:
		if _, err := io.ReadFull(r, b[1:3]); err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint16(b[1:3]))
		if v < 0xfd {
			return 0, fmt.Errorf("non-canonical varint %x", v)
		}
		return v, nil
	default:
		return uint64(b[0]), nil
	}
}

// WriteVarInt writes val to w as a Bitcoin-style compact-size integer.
func WriteVarInt(w io.Writer, val uint64) error {
	switch {
	case val < 0xfd:
		_, err := w.Write([]byte{byte(val)})
		return err
	case val <= math.MaxUint16:
		var b [3]byte
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:], uint16(val))
		_, err := w.Write(b[:])
		return err
	case val <= math.MaxUint32:
		var b [5]byte
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:], uint32(val))
		_, err := w.Write(b[:])
		return err
	default:
		var b [9]byte
		b[0] = 0xff
		binary.LittleEndian.PutUint64(b[1:], val)
		_, err := w.Write(b[:])
		return err
	}
}

// VarIntSerializeSize returns the number of bytes writing val would take.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= math.MaxUint16:
		return 3
	case val <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a varint-prefixed byte slice, rejecting lengths
// beyond maxAllowed to bound allocation from untrusted wire data.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, fmt.Errorf("%s exceeds max allowed size (got %d, max %d)", fieldName, count, maxAllowed)
	}
	buf := make([]byte, count)
	if count > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// WriteVarBytes writes a varint-prefixed byte slice to w.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
