package movetracker

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/util/chainhash"
)

// Location is an inscription's current (outpoint, offset): the
// satoshi it rides on, identified by the output that holds it and the
// position of that satoshi within the output's value.
type Location struct {
	TxID   chainhash.Hash
	Vout   uint32
	Offset uint64
}

// ExtraData is the mutable record kept at an inscription's current
// Location: its genesis identity plus everything that does not change
// across a move.
type ExtraData struct {
	Number        uint64
	GenesisTxID   chainhash.Hash
	ContentType   []byte
	ContentLength uint64
	BlockHeight   uint64
	Owner         string
	Value         uint64
}

// encodeExtraData lays out: number(8) genesis-txid(32) height(8)
// value(8) content-length(8) content-type-len(4) content-type
// owner-len(4) owner. All multi-byte integers here are
// little-endian -- this row never participates in an ordered scan,
// only point lookups by Location key.
func encodeExtraData(d *ExtraData) []byte {
	buf := make([]byte, 0, 8+32+8+8+8+4+len(d.ContentType)+4+len(d.Owner))
	buf = appendUint64(buf, d.Number)
	buf = append(buf, d.GenesisTxID[:]...)
	buf = appendUint64(buf, d.BlockHeight)
	buf = appendUint64(buf, d.Value)
	buf = appendUint64(buf, d.ContentLength)
	buf = appendVarBytes(buf, d.ContentType)
	buf = appendVarBytes(buf, []byte(d.Owner))
	return buf
}

func decodeExtraData(raw []byte) (*ExtraData, error) {
	if len(raw) < 8+32+8+8+8 {
		return nil, errors.New("corrupt InscriptionExtraData row")
	}
	d := &ExtraData{}
	d.Number = binary.LittleEndian.Uint64(raw[0:8])
	copy(d.GenesisTxID[:], raw[8:40])
	d.BlockHeight = binary.LittleEndian.Uint64(raw[40:48])
	d.Value = binary.LittleEndian.Uint64(raw[48:56])
	d.ContentLength = binary.LittleEndian.Uint64(raw[56:64])
	rest := raw[64:]

	contentType, rest, err := readVarBytes(rest)
	if err != nil {
		return nil, err
	}
	d.ContentType = contentType

	owner, _, err := readVarBytes(rest)
	if err != nil {
		return nil, err
	}
	d.Owner = string(owner)
	return d, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendVarBytes(buf, b []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, b...)
}

func readVarBytes(raw []byte) (value, rest []byte, err error) {
	if len(raw) < 4 {
		return nil, nil, errors.New("corrupt var-length field")
	}
	n := binary.LittleEndian.Uint32(raw[0:4])
	raw = raw[4:]
	if uint32(len(raw)) < n {
		return nil, nil, errors.New("corrupt var-length field: short body")
	}
	return raw[:n], raw[n:], nil
}

// ownerHistoryPayload encodes the OrdHistoryRow value: inscription
// number and genesis txid (the InscriptionId; index is always 0 and
// not stored).
func ownerHistoryPayload(number uint64, genesisTxID *chainhash.Hash) []byte {
	buf := make([]byte, 0, 40)
	buf = appendUint64(buf, number)
	return append(buf, genesisTxID[:]...)
}

// UserOrdStats is the derived per-owner sanity aggregate: the count
// and summed value of every InscriptionExtraData row currently owned
// by that owner.
type UserOrdStats struct {
	Amount uint64
	Count  uint64
}

func encodeUserOrdStats(s *UserOrdStats) []byte {
	buf := make([]byte, 0, 16)
	buf = appendUint64(buf, s.Amount)
	return appendUint64(buf, s.Count)
}

func decodeUserOrdStats(raw []byte) (*UserOrdStats, error) {
	if len(raw) < 16 {
		return nil, errors.New("corrupt UserOrdStats row")
	}
	return &UserOrdStats{
		Amount: binary.LittleEndian.Uint64(raw[0:8]),
		Count:  binary.LittleEndian.Uint64(raw[8:16]),
	}, nil
}

// decodeLocationKey parses an "I{txid}{vout-LE}{offset-BE}" row key
// back into a Location.
func decodeLocationKey(key []byte) (*Location, error) {
	if len(key) != 1+32+4+8 {
		return nil, errors.New("corrupt inscription location key")
	}
	var loc Location
	copy(loc.TxID[:], key[1:33])
	loc.Vout = binary.LittleEndian.Uint32(key[33:37])
	loc.Offset = binary.BigEndian.Uint64(key[37:45])
	return &loc, nil
}
