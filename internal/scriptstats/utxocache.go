package scriptstats

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/headerlist"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

// CachedUtxo is one unspent output belonging to a cached scripthash
// snapshot. Only the minting height is stored, not the owning block's
// hash, mirroring UtxoCacheRow/CachedUtxoMap in schema.rs (whose
// comment there notes BlockId doesn't serialize cleanly, so only the
// height travels with the row).
type CachedUtxo struct {
	TxID   chainhash.Hash
	Vout   uint32
	Height uint64
	Value  uint64
}

// WriteUtxoCache replaces sh's cached UTXO snapshot with utxos,
// stamped with the block hash the snapshot is valid as of. Any
// previously-cached rows for sh are dropped first so a shrinking UTXO
// set (outputs spent since the last snapshot) doesn't leave stale
// entries behind.
func WriteUtxoCache(st *store.Store, sh store.ScriptHash, utxos []CachedUtxo, asOf chainhash.Hash) error {
	if err := clearUtxoCache(st, sh); err != nil {
		return err
	}

	batch := store.NewBatch()
	for _, u := range utxos {
		buf := make([]byte, 8+8+32)
		binary.LittleEndian.PutUint64(buf[0:8], u.Height)
		binary.LittleEndian.PutUint64(buf[8:16], u.Value)
		copy(buf[16:48], asOf[:])
		batch.Put(store.UtxoCacheKey(sh, &u.TxID, u.Vout), buf)
	}
	return st.Cache.Write(batch, false)
}

func clearUtxoCache(st *store.Store, sh store.ScriptHash) error {
	prefix := store.UtxoCachePrefix(sh)
	cur := st.Cache.IterScan(prefix)
	defer cur.Close()

	var keys [][]byte
	for cur.Next() {
		k := append([]byte(nil), cur.Key()...)
		keys = append(keys, k)
	}
	if err := cur.Error(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return st.Cache.DeleteBatch(keys)
}

// ReadUtxoCache returns sh's cached UTXO snapshot; each entry carries
// its stored height only. If any cached row's stamped asOf hash is no
// longer on hl's best chain (the snapshot was taken against a block
// since reorged away), the whole snapshot is considered stale and ok
// is false. ok is also false when no rows are cached for sh.
func ReadUtxoCache(st *store.Store, hl *headerlist.List, sh store.ScriptHash) (utxos []CachedUtxo, ok bool, err error) {
	prefix := store.UtxoCachePrefix(sh)
	cur := st.Cache.IterScan(prefix)
	defer cur.Close()

	const keyLen = 1 + 32 + 32 + 4
	const valLen = 8 + 8 + 32

	for cur.Next() {
		key := cur.Key()
		val := cur.Value()
		if len(key) != keyLen || len(val) != valLen {
			return nil, false, errors.New("scriptstats: corrupt utxo cache row")
		}

		var txid chainhash.Hash
		copy(txid[:], key[33:65])
		vout := binary.LittleEndian.Uint32(key[65:69])

		height := binary.LittleEndian.Uint64(val[0:8])
		value := binary.LittleEndian.Uint64(val[8:16])
		var asOf chainhash.Hash
		copy(asOf[:], val[16:48])

		if _, found := hl.NodeByHash(&asOf); !found {
			return nil, false, nil
		}

		utxos = append(utxos, CachedUtxo{TxID: txid, Vout: vout, Height: height, Value: value})
	}
	if err := cur.Error(); err != nil {
		return nil, false, err
	}
	if len(utxos) == 0 {
		return nil, false, nil
	}
	return utxos, true, nil
}

// Outpoint builds the chain.Outpoint u was minted at.
func (u CachedUtxo) Outpoint() chain.Outpoint {
	return chain.Outpoint{TxID: u.TxID, Vout: u.Vout}
}
