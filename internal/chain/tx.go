package chain

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/kaspanet/ordindexer/util/chainhash"
)

// MaxScriptSize bounds a single script's length during deserialization.
const MaxScriptSize = 10_000_000

// Outpoint identifies a single transaction output: a (txid, vout) pair.
type Outpoint struct {
	TxID chainhash.Hash
	Vout uint32
}

// NewOutpoint builds an Outpoint from a txid and vout.
func NewOutpoint(txID *chainhash.Hash, vout uint32) Outpoint {
	return Outpoint{TxID: *txID, Vout: vout}
}

// TxIn is a transaction input: the previous outpoint it spends, the
// unlocking script carried in that input, and the witness stack (nil
// for pre-segwit-style inputs).
type TxIn struct {
	PreviousOutpoint Outpoint
	SignatureScript  []byte
	Witness          [][]byte
	Sequence         uint32
}

// TxOut is a transaction output: its value in satoshis and locking script.
type TxOut struct {
	Value    uint64
	PkScript []byte
}

// Tx is a fully-decoded transaction.
type Tx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32

	// cached on first call to TxID
	cachedTxID *chainhash.Hash
}

// TxID returns the transaction's double-SHA256 identity hash over its
// non-witness serialization, computed once and cached.
func (tx *Tx) TxID() *chainhash.Hash {
	if tx.cachedTxID != nil {
		return tx.cachedTxID
	}
	var buf bytes.Buffer
	_ = tx.serialize(&buf, false)
	h := chainhash.DoubleHashH(buf.Bytes())
	tx.cachedTxID = &h
	return tx.cachedTxID
}

// Deserialize decodes a transaction from r, handling the optional
// segwit marker/flag the same way Bitcoin-lineage nodes do: a
// zero-valued input count followed by a flag byte signals a witness
// transaction.
func (tx *Tx) Deserialize(r io.Reader) error {
	var versionBuf [4]byte
	if _, err := io.ReadFull(r, versionBuf[:]); err != nil {
		return err
	}
	tx.Version = int32(binary.LittleEndian.Uint32(versionBuf[:]))

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}

	hasWitness := false
	if count == 0 {
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return err
		}
		if flag[0] != 1 {
			return errInvalidWitnessFlag
		}
		hasWitness = true
		count, err = ReadVarInt(r)
		if err != nil {
			return err
		}
	}

	tx.TxIn = make([]*TxIn, count)
	for i := range tx.TxIn {
		in, err := readTxIn(r)
		if err != nil {
			return err
		}
		tx.TxIn[i] = in
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	tx.TxOut = make([]*TxOut, outCount)
	for i := range tx.TxOut {
		out, err := readTxOut(r)
		if err != nil {
			return err
		}
		tx.TxOut[i] = out
	}

	if hasWitness {
		for _, in := range tx.TxIn {
			witCount, err := ReadVarInt(r)
			if err != nil {
				return err
			}
			in.Witness = make([][]byte, witCount)
			for i := range in.Witness {
				item, err := ReadVarBytes(r, MaxScriptSize, "witness item")
				if err != nil {
					return err
				}
				in.Witness[i] = item
			}
		}
	}

	var lockTimeBuf [4]byte
	if _, err := io.ReadFull(r, lockTimeBuf[:]); err != nil {
		return err
	}
	tx.LockTime = binary.LittleEndian.Uint32(lockTimeBuf[:])
	return nil
}

func readTxIn(r io.Reader) (*TxIn, error) {
	in := &TxIn{}
	if _, err := io.ReadFull(r, in.PreviousOutpoint.TxID[:]); err != nil {
		return nil, err
	}
	var voutBuf [4]byte
	if _, err := io.ReadFull(r, voutBuf[:]); err != nil {
		return nil, err
	}
	in.PreviousOutpoint.Vout = binary.LittleEndian.Uint32(voutBuf[:])

	script, err := ReadVarBytes(r, MaxScriptSize, "signature script")
	if err != nil {
		return nil, err
	}
	in.SignatureScript = script

	var seqBuf [4]byte
	if _, err := io.ReadFull(r, seqBuf[:]); err != nil {
		return nil, err
	}
	in.Sequence = binary.LittleEndian.Uint32(seqBuf[:])
	return in, nil
}

func readTxOut(r io.Reader) (*TxOut, error) {
	out := &TxOut{}
	var valueBuf [8]byte
	if _, err := io.ReadFull(r, valueBuf[:]); err != nil {
		return nil, err
	}
	out.Value = binary.LittleEndian.Uint64(valueBuf[:])

	script, err := ReadVarBytes(r, MaxScriptSize, "pk script")
	if err != nil {
		return nil, err
	}
	out.PkScript = script
	return out, nil
}

// serialize writes the transaction to w, including witness data iff
// withWitness and any input carries one.
func (tx *Tx) serialize(w io.Writer, withWitness bool) error {
	var versionBuf [4]byte
	binary.LittleEndian.PutUint32(versionBuf[:], uint32(tx.Version))
	if _, err := w.Write(versionBuf[:]); err != nil {
		return err
	}

	hasWitness := withWitness && tx.hasWitness()
	if hasWitness {
		if _, err := w.Write([]byte{0x00, 0x01}); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, in := range tx.TxIn {
		if err := writeTxIn(w, in); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, out := range tx.TxOut {
		if err := writeTxOut(w, out); err != nil {
			return err
		}
	}

	if hasWitness {
		for _, in := range tx.TxIn {
			if err := WriteVarInt(w, uint64(len(in.Witness))); err != nil {
				return err
			}
			for _, item := range in.Witness {
				if err := WriteVarBytes(w, item); err != nil {
					return err
				}
			}
		}
	}

	var lockTimeBuf [4]byte
	binary.LittleEndian.PutUint32(lockTimeBuf[:], tx.LockTime)
	_, err := w.Write(lockTimeBuf[:])
	return err
}

// Serialize writes the full (witness-included) wire encoding of tx to w.
func (tx *Tx) Serialize(w io.Writer) error {
	return tx.serialize(w, true)
}

func (tx *Tx) hasWitness() bool {
	for _, in := range tx.TxIn {
		if len(in.Witness) > 0 {
			return true
		}
	}
	return false
}

func writeTxIn(w io.Writer, in *TxIn) error {
	if _, err := w.Write(in.PreviousOutpoint.TxID[:]); err != nil {
		return err
	}
	var voutBuf [4]byte
	binary.LittleEndian.PutUint32(voutBuf[:], in.PreviousOutpoint.Vout)
	if _, err := w.Write(voutBuf[:]); err != nil {
		return err
	}
	if err := WriteVarBytes(w, in.SignatureScript); err != nil {
		return err
	}
	var seqBuf [4]byte
	binary.LittleEndian.PutUint32(seqBuf[:], in.Sequence)
	_, err := w.Write(seqBuf[:])
	return err
}

func writeTxOut(w io.Writer, out *TxOut) error {
	var valueBuf [8]byte
	binary.LittleEndian.PutUint64(valueBuf[:], out.Value)
	if _, err := w.Write(valueBuf[:]); err != nil {
		return err
	}
	return WriteVarBytes(w, out.PkScript)
}

// SerializeSize returns the number of bytes the witness-included
// encoding of tx occupies.
func (tx *Tx) SerializeSize() int {
	var buf bytes.Buffer
	_ = tx.Serialize(&buf)
	return buf.Len()
}

// Weight approximates SegWit transaction weight as 3*base-size +
// total-size, the same formula Block.Weight uses at the block level.
func (tx *Tx) Weight() int {
	var base bytes.Buffer
	_ = tx.serialize(&base, false)
	total := tx.SerializeSize()
	return base.Len()*3 + total
}

// VSize returns the virtual size in vbytes: weight divided by 4,
// rounded up.
func (tx *Tx) VSize() int {
	return (tx.Weight() + 3) / 4
}

// IsCoinbase reports whether tx is a block's coinbase transaction: a
// single input whose previous outpoint is the all-zero txid at vout
// 0xffffffff.
func (tx *Tx) IsCoinbase() bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prev := tx.TxIn[0].PreviousOutpoint
	return prev.TxID == chainhash.Hash{} && prev.Vout == 0xffffffff
}

var errInvalidWitnessFlag = txError("invalid witness flag byte")

type txError string

func (e txError) Error() string { return string(e) }
