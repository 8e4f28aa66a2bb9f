package tokenengine

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/chain"
)

// encodeTokenValue lays out a Token row: genesis outpoint (32+4),
// max(8), lim(8), dec(1), supply(8). The tick is not duplicated here
// since it is already the row's key.
func encodeTokenValue(genesis chain.Outpoint, d DeployProto) []byte {
	buf := make([]byte, 0, 32+4+8+8+1+8)
	buf = append(buf, genesis.TxID[:]...)
	buf = appendUint32(buf, genesis.Vout)
	buf = appendUint64(buf, d.Max)
	buf = appendUint64(buf, d.Lim)
	buf = append(buf, d.Dec)
	buf = appendUint64(buf, d.Supply)
	return buf
}

func decodeTokenValue(raw []byte) (chain.Outpoint, DeployProto, error) {
	if len(raw) != 32+4+8+8+1+8 {
		return chain.Outpoint{}, DeployProto{}, errors.New("corrupt Token row")
	}
	var genesis chain.Outpoint
	copy(genesis.TxID[:], raw[0:32])
	genesis.Vout = binary.LittleEndian.Uint32(raw[32:36])

	d := DeployProto{
		Max:    binary.LittleEndian.Uint64(raw[36:44]),
		Lim:    binary.LittleEndian.Uint64(raw[44:52]),
		Dec:    raw[52],
		Supply: binary.LittleEndian.Uint64(raw[53:61]),
	}
	return genesis, d, nil
}

func encodeTokenAccountValue(amount uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, amount)
	return buf
}

func decodeTokenAccountValue(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, errors.New("corrupt TokenAccount row")
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// encodeTokenTransferValue lays out an outstanding transfer claim:
// ownerLen(4) + owner + tickLen(4) + tick + amt(8). Since
// TokenTransferKey is keyed purely by location now, owner and tick
// have to travel in the value for the row to be self-describing.
func encodeTokenTransferValue(owner string, p TransferProto) []byte {
	buf := make([]byte, 0, 4+len(owner)+4+len(p.Tick)+8)
	buf = appendUint32(buf, uint32(len(owner)))
	buf = append(buf, owner...)
	buf = appendUint32(buf, uint32(len(p.Tick)))
	buf = append(buf, p.Tick...)
	buf = appendUint64(buf, p.Amt)
	return buf
}

func decodeTokenTransferValue(raw []byte) (owner string, proto TransferProto, err error) {
	if len(raw) < 4 {
		return "", TransferProto{}, errors.New("corrupt TokenTransfer row")
	}
	ownerLen := binary.LittleEndian.Uint32(raw[0:4])
	raw = raw[4:]
	if uint32(len(raw)) < ownerLen+4 {
		return "", TransferProto{}, errors.New("corrupt TokenTransfer row")
	}
	owner = string(raw[:ownerLen])
	raw = raw[ownerLen:]
	tickLen := binary.LittleEndian.Uint32(raw[0:4])
	raw = raw[4:]
	if uint32(len(raw)) < tickLen+8 {
		return "", TransferProto{}, errors.New("corrupt TokenTransfer row")
	}
	tick := string(raw[:tickLen])
	raw = raw[tickLen:]
	amt := binary.LittleEndian.Uint64(raw[0:8])
	return owner, TransferProto{Tick: tick, Amt: amt}, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
