// Package reorgbuffer implements C8: shadow-writing the last
// HEIGHT_DELAY blocks of inscription-domain state so a reorg can be
// rewound without replaying the chain from genesis. It is grounded on
// original_source/src/new_index/inscriptions_updater.rs's
// reorg_handler and temp_updater.rs's to_temp_db_row/copy_from_main_block
// shadow-row pattern, adapted from the original's single shared temp
// column family to this module's own Temp table.
package reorgbuffer

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

// Buffer owns the shadow-writing and reorg-rewind logic over a Store's
// Inscription and Temp tables. It implements movetracker.ShadowRecorder.
type Buffer struct {
	st *store.Store
}

// New constructs a Buffer bound to st.
func New(st *store.Store) *Buffer {
	return &Buffer{st: st}
}

// ShadowInscription records value as the pre-move InscriptionExtraData
// row at key, under height's shadow bucket, so a reorg below height
// can restore it.
func (b *Buffer) ShadowInscription(height uint64, key, value []byte) error {
	return b.st.Temp.Put(store.TempInscriptionShadowKey(height, key), value)
}

// ShadowOwnerHistory records value as the pre-move OrdHistoryRow row at
// key, under height's shadow bucket.
func (b *Buffer) ShadowOwnerHistory(height uint64, key, value []byte) error {
	return b.st.Temp.Put(store.TempOwnerHistoryShadowKey(height, key), value)
}

// SnapshotLastNumber copies the current LastInscriptionNumber counter
// into height's shadow bucket, unless a snapshot for height already
// exists (idempotent per height, mirroring copy_from_main_block's
// early-return). Call once before indexing any inscription-domain
// changes for height.
func (b *Buffer) SnapshotLastNumber(height uint64) error {
	key := store.TempLastNumberKey(height)
	has, err := b.st.Temp.Has(key)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	raw, found, err := b.st.Inscription.Get(store.LastInscriptionNumberKey)
	if err != nil {
		return err
	}
	if !found {
		raw = encodeUint64(0)
	}
	return b.st.Temp.Put(key, raw)
}

// PruneHeight deletes every shadow row recorded for height. Call once
// height exits the "recent" window (tip_height - HEIGHT_DELAY), since
// the change is now considered confirmed.
func (b *Buffer) PruneHeight(height uint64) error {
	prefix := store.TempHeightPrefix(height)
	var keys [][]byte
	c := b.st.Temp.IterScan(prefix)
	for c.Next() {
		keys = append(keys, append([]byte(nil), c.Key()...))
	}
	if err := c.Error(); err != nil {
		c.Close()
		return err
	}
	c.Close()
	return b.st.Temp.DeleteBatch(keys)
}

// Block is one reorged-away block's height and transactions, the input
// Reorg needs to undo its forward-direction effects.
type Block struct {
	Height uint64
	Txs    []*chain.Tx
}

// Reorg rewinds the effects of the blocks in removed (must be ordered
// highest-height first, as chainindexer.UpdateResult.Removed already
// is): restores LastInscriptionNumber from the snapshot taken just
// before the lowest reorged height, then for each block (highest
// first) restores every shadow InscriptionExtraData/OrdHistoryRow row
// and deletes any main-table inscription row rooted at an outpoint
// that block's own transactions created (a forward-direction effect
// being undone), then prunes that height's shadow rows. Mirrors
// inscriptions_updater.rs's reorg_handler, indexed against
// SnapshotLastNumber's "value as it stood right before height's own
// changes" convention rather than the original's "value as it stood
// right after height-1 finished" one (the two are equivalent in
// substance; this package's key is simply off by one from the
// original's in which height it's filed under).
func (b *Buffer) Reorg(removed []Block) error {
	if len(removed) == 0 {
		return nil
	}
	minHeight := removed[len(removed)-1].Height

	lastNumberRaw, found, err := b.st.Temp.Get(store.TempLastNumberKey(minHeight))
	if err != nil {
		return err
	}
	if found {
		if err := b.st.Inscription.Put(store.LastInscriptionNumberKey, lastNumberRaw); err != nil {
			return err
		}
	}

	for _, block := range removed {
		if err := b.restoreShadowsForHeight(block.Height); err != nil {
			return errors.Wrapf(err, "restoring shadows for height %d", block.Height)
		}
		if err := b.deleteForwardEffects(block.Txs); err != nil {
			return errors.Wrapf(err, "undoing forward effects for height %d", block.Height)
		}
		if err := b.PruneHeight(block.Height); err != nil {
			return errors.Wrapf(err, "pruning shadows for height %d", block.Height)
		}
	}
	return nil
}

func (b *Buffer) restoreShadowsForHeight(height uint64) error {
	restore := store.NewBatch()

	for _, kind := range []byte{store.PrefixTempInscription, store.PrefixTempOwnerHistory} {
		prefix := append(append([]byte(nil), store.TempHeightPrefix(height)...), kind)
		c := b.st.Temp.IterScan(prefix)
		for c.Next() {
			mainKey := append([]byte(nil), c.Key()[len(prefix):]...)
			mainValue := append([]byte(nil), c.Value()...)
			restore.Put(mainKey, mainValue)
		}
		if err := c.Error(); err != nil {
			c.Close()
			return err
		}
		c.Close()
	}

	if restore.Len() == 0 {
		return nil
	}
	return b.st.Inscription.Write(restore, false)
}

// deleteForwardEffects deletes any main-table InscriptionExtraData/
// OrdHistoryRow rows rooted at an outpoint txs created, walked in
// reverse transaction order per the original's undo ordering.
func (b *Buffer) deleteForwardEffects(txs []*chain.Tx) error {
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		txID := tx.TxID()
		for vout := range tx.TxOut {
			prefix := store.InscriptionOutpointPrefix(txID, uint32(vout))
			var toDelete [][]byte
			c := b.st.Inscription.IterScan(prefix)
			for c.Next() {
				key := append([]byte(nil), c.Key()...)
				owner, err := ownerFromExtraDataRow(c.Value())
				if err != nil {
					c.Close()
					return err
				}
				toDelete = append(toDelete, key)
				toDelete = append(toDelete, ownerHistoryKeyFromInscriptionKey(owner, key))
			}
			if err := c.Error(); err != nil {
				c.Close()
				return err
			}
			c.Close()
			if err := b.st.Inscription.DeleteBatch(toDelete); err != nil {
				return err
			}
		}
	}
	return nil
}

// ownerFromExtraDataRow extracts just the owner field out of a raw
// InscriptionExtraData row, mirroring movetracker's encodeExtraData
// layout (number(8) genesis-txid(32) height(8) value(8)
// content-length(8) content-type-len(4) content-type owner-len(4)
// owner, lengths little-endian). Duplicated
// rather than imported to keep reorgbuffer independent of
// movetracker's internal row format.
func ownerFromExtraDataRow(raw []byte) (string, error) {
	const fixed = 8 + 32 + 8 + 8 + 8
	if len(raw) < fixed+4 {
		return "", errors.New("reorgbuffer: corrupt InscriptionExtraData row")
	}
	rest := raw[fixed:]
	contentTypeLen := binary.LittleEndian.Uint32(rest[0:4])
	rest = rest[4:]
	if uint32(len(rest)) < contentTypeLen+4 {
		return "", errors.New("reorgbuffer: corrupt InscriptionExtraData row")
	}
	rest = rest[contentTypeLen:]
	ownerLen := binary.LittleEndian.Uint32(rest[0:4])
	rest = rest[4:]
	if uint32(len(rest)) < ownerLen {
		return "", errors.New("reorgbuffer: corrupt InscriptionExtraData row")
	}
	return string(rest[:ownerLen]), nil
}

// ownerHistoryKeyFromInscriptionKey rebuilds an OrdHistoryRow key from
// owner plus an InscriptionKey's "I{txid}{vout-LE}{offset-BE}" layout.
func ownerHistoryKeyFromInscriptionKey(owner string, inscriptionKey []byte) []byte {
	txID := inscriptionKey[1:33]
	vout := binary.LittleEndian.Uint32(inscriptionKey[33:37])
	offset := binary.BigEndian.Uint64(inscriptionKey[37:45])
	var h chainhash.Hash
	copy(h[:], txID)
	return store.OwnerHistoryKey(owner, &h, vout, offset)
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}
