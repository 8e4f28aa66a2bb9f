package chain

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/kaspanet/ordindexer/util/chainhash"
)

// BlockHeaderSize is the fixed wire size of a BlockHeader.
const BlockHeaderSize = 80

// BlockHeader is the 80-byte fixed-size block header, grounded on
// wire/blockheader.go but trimmed from a multi-parent DAG header down
// to the single PrevBlock a UTXO chain uses.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// BlockHash returns the double-SHA256 hash of the serialized header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	_ = h.Serialize(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize writes the fixed 80-byte header encoding to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	var buf [BlockHeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], h.PrevBlock[:])
	copy(buf[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buf[68:72], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	_, err := w.Write(buf[:])
	return err
}

// Deserialize reads a fixed 80-byte header encoding from r.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	var buf [BlockHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	h.Version = int32(binary.LittleEndian.Uint32(buf[0:4]))
	copy(h.PrevBlock[:], buf[4:36])
	copy(h.MerkleRoot[:], buf[36:68])
	h.Timestamp = binary.LittleEndian.Uint32(buf[68:72])
	h.Bits = binary.LittleEndian.Uint32(buf[72:76])
	h.Nonce = binary.LittleEndian.Uint32(buf[76:80])
	return nil
}

// Block is a full, parsed block: its header and ordered transactions.
type Block struct {
	Header       BlockHeader
	Transactions []*Tx

	cachedHash *chainhash.Hash
}

// Hash returns (and caches) the block's hash.
func (b *Block) Hash() *chainhash.Hash {
	if b.cachedHash != nil {
		return b.cachedHash
	}
	h := b.Header.BlockHash()
	b.cachedHash = &h
	return b.cachedHash
}

// Deserialize decodes a full block (header + transactions) from r.
func (b *Block) Deserialize(r io.Reader) error {
	if err := b.Header.Deserialize(r); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	b.Transactions = make([]*Tx, count)
	for i := range b.Transactions {
		tx := &Tx{}
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		b.Transactions[i] = tx
	}
	return nil
}

// Serialize writes a full block (header + transactions) to w.
func (b *Block) Serialize(w io.Writer) error {
	if err := b.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(b.Transactions))); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// SerializeSize returns the number of bytes Serialize would write.
func (b *Block) SerializeSize() int {
	var buf bytes.Buffer
	_ = b.Serialize(&buf)
	return buf.Len()
}

// Weight approximates SegWit block weight as 3*base-size + total-size,
// matching how the node reports it; the indexer only ever stores this
// for the block-meta row, never uses it for validation.
func (b *Block) Weight() int {
	var base bytes.Buffer
	_ = b.Header.Serialize(&base)
	_ = WriteVarInt(&base, uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		_ = tx.serialize(&base, false)
	}
	total := b.SerializeSize()
	return base.Len()*3 + total
}
