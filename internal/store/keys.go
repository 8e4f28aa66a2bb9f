package store

import (
	"encoding/binary"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

// Single-byte prefix codes namespacing rows within a table, per §4.1/§6.
const (
	// txstore
	PrefixTx       = 'T' // tx bytes
	PrefixTxConf   = 'C' // tx confirmation (block hash)
	PrefixTxOut    = 'O' // spendable txout, for UTXO lookups
	PrefixBlockHdr = 'B' // block header
	PrefixBlockTxs = 'X' // block txid list
	PrefixBlockMeta = 'M' // block meta (size, weight)
	PrefixBlockDone = 'D' // block-done marker
	PrefixTip       = 't' // best-block-hash tip marker (unprefixed sentinel key "t")

	// history
	PrefixHistory = 'H' // per-scripthash history row
	PrefixEdge    = 'S' // funding-outpoint -> spending-input edge row
	PrefixAddr    = 'a' // address-prefix search row

	// inscription
	PrefixInscription  = 'I' // InscriptionExtraData, keyed by current location
	PrefixOwnerHistory = 'o' // OrdHistoryRow, keyed by (owner, location)
	PrefixUserOrdStats = 'u' // UserOrdStats, keyed by owner
	PrefixTokenKey     = 'k' // bel-20 deploy row, keyed by tick
	PrefixTokenAccount = 'b' // bel-20 account balance, keyed by (owner, tick)
	PrefixTokenTransfer = 'x' // live TokenTransfer, keyed by location
	PrefixTokenTransferOwnerIndex = 'y' // live TokenTransfer secondary index, keyed by (owner, tick, location)

	// cache (Cache table)
	PrefixStatsCache = 'A' // cached ScriptStats + last-seen blockhash, keyed by scripthash
	PrefixUtxoCache  = 'U' // cached UTXO snapshot row, keyed by (scripthash, txid, vout)

	// shared
	PrefixFullCompactionDone = 'F' // full-compaction-done sentinel, per table

	// temp (reorg shadow rows, all keyed with block_height first so a
	// height's shadows can be scanned and pruned as a contiguous range)
	PrefixTempInscription  = 'I' // shadow InscriptionExtraData pre-image
	PrefixTempOwnerHistory = 'o' // shadow OrdHistoryRow pre-image
	PrefixTempLastNumber   = 'n' // shadow LastInscriptionNumber snapshot
)

// LastInscriptionNumberKey is the single-key sentinel ("n") in the
// inscription table holding the global monotonic counter.
var LastInscriptionNumberKey = []byte{'n'}

// LastIndexedHashKey is the "ot" sentinel in the inscription table:
// the last successfully-indexed inscription-domain block hash.
var LastIndexedHashKey = []byte("ot")

// History row kinds, encoded as the single byte following the height
// in a PrefixHistory key.
const (
	HistoryFund  = 'f'
	HistorySpend = 's'
)

// ScriptHash is the SHA-256 digest of an output script, the primary
// index key for history and UTXO queries.
type ScriptHash [32]byte

// HashScript computes the ScriptHash of a raw output script.
func HashScript(script []byte) ScriptHash {
	var sh ScriptHash
	copy(sh[:], chainhash.HashB(script))
	return sh
}

// htobe64 encodes v as 8 big-endian bytes, mandatory for any key field
// participating in an ordered scan (heights, most critically) so that
// byte-lexicographic order matches numeric order.
func htobe64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func htobe32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// TxKey builds the "T{txid}" key.
func TxKey(txID *chainhash.Hash) []byte {
	return append([]byte{PrefixTx}, txID[:]...)
}

// TxConfKey builds the "C{txid}" key.
func TxConfKey(txID *chainhash.Hash) []byte {
	return append([]byte{PrefixTxConf}, txID[:]...)
}

// TxOutKey builds the "O{txid}{vout-LE}" key.
func TxOutKey(op chain.Outpoint) []byte {
	k := make([]byte, 0, 1+32+4)
	k = append(k, PrefixTxOut)
	k = append(k, op.TxID[:]...)
	voutLE := make([]byte, 4)
	binary.LittleEndian.PutUint32(voutLE, op.Vout)
	return append(k, voutLE...)
}

// BlockHeaderKey builds the "B{hash}" key.
func BlockHeaderKey(hash *chainhash.Hash) []byte {
	return append([]byte{PrefixBlockHdr}, hash[:]...)
}

// BlockTxsKey builds the "X{hash}" key.
func BlockTxsKey(hash *chainhash.Hash) []byte {
	return append([]byte{PrefixBlockTxs}, hash[:]...)
}

// BlockMetaKey builds the "M{hash}" key.
func BlockMetaKey(hash *chainhash.Hash) []byte {
	return append([]byte{PrefixBlockMeta}, hash[:]...)
}

// BlockDoneKey builds the "D{hash}" key.
func BlockDoneKey(hash *chainhash.Hash) []byte {
	return append([]byte{PrefixBlockDone}, hash[:]...)
}

// TipKey is the single-byte sentinel key "t" holding the best-block hash.
var TipKey = []byte{PrefixTip}

// HistoryFundKey builds "H{scripthash}{height-BE}f{txid}{vout-LE}".
func HistoryFundKey(sh ScriptHash, height uint64, txID *chainhash.Hash, vout uint32) []byte {
	k := make([]byte, 0, 1+32+8+1+32+4)
	k = append(k, PrefixHistory)
	k = append(k, sh[:]...)
	k = append(k, htobe64(height)...)
	k = append(k, HistoryFund)
	k = append(k, txID[:]...)
	voutLE := make([]byte, 4)
	binary.LittleEndian.PutUint32(voutLE, vout)
	return append(k, voutLE...)
}

// HistorySpendKey builds "H{scripthash}{height-BE}s{txid}{vin-LE}".
func HistorySpendKey(sh ScriptHash, height uint64, txID *chainhash.Hash, vin uint32) []byte {
	k := make([]byte, 0, 1+32+8+1+32+4)
	k = append(k, PrefixHistory)
	k = append(k, sh[:]...)
	k = append(k, htobe64(height)...)
	k = append(k, HistorySpend)
	k = append(k, txID[:]...)
	vinLE := make([]byte, 4)
	binary.LittleEndian.PutUint32(vinLE, vin)
	return append(k, vinLE...)
}

// HistoryPrefix builds the "H{scripthash}" scan prefix, every history
// row (fund and spend) for that script.
func HistoryPrefix(sh ScriptHash) []byte {
	return append([]byte{PrefixHistory}, sh[:]...)
}

// EdgeKey builds "S{funding-txid}{funding-vout-LE}{spending-txid}{spending-vin-LE}".
func EdgeKey(fundingTxID *chainhash.Hash, fundingVout uint32, spendingTxID *chainhash.Hash, spendingVin uint32) []byte {
	k := make([]byte, 0, 1+32+4+32+4)
	k = append(k, PrefixEdge)
	k = append(k, fundingTxID[:]...)
	fv := make([]byte, 4)
	binary.LittleEndian.PutUint32(fv, fundingVout)
	k = append(k, fv...)
	k = append(k, spendingTxID[:]...)
	sv := make([]byte, 4)
	binary.LittleEndian.PutUint32(sv, spendingVin)
	return append(k, sv...)
}

// EdgePrefix builds the "S{funding-txid}{funding-vout-LE}" scan prefix.
func EdgePrefix(fundingTxID *chainhash.Hash, fundingVout uint32) []byte {
	k := make([]byte, 0, 1+32+4)
	k = append(k, PrefixEdge)
	k = append(k, fundingTxID[:]...)
	fv := make([]byte, 4)
	binary.LittleEndian.PutUint32(fv, fundingVout)
	return append(k, fv...)
}

// AddrKey builds the "a{address}" address-prefix-search row key.
func AddrKey(addr string) []byte {
	return append([]byte{PrefixAddr}, []byte(addr)...)
}

// InscriptionOutpointPrefix builds the "I{txid}{vout-LE}" scan prefix:
// every inscription currently located anywhere in that output,
// regardless of offset.
func InscriptionOutpointPrefix(txID *chainhash.Hash, vout uint32) []byte {
	k := make([]byte, 0, 1+32+4)
	k = append(k, PrefixInscription)
	k = append(k, txID[:]...)
	voutLE := make([]byte, 4)
	binary.LittleEndian.PutUint32(voutLE, vout)
	return append(k, voutLE...)
}

// InscriptionKey builds the full "I{txid}{vout-LE}{offset-BE}" location
// key. Offset is big-endian so that a scan of InscriptionOutpointPrefix
// naturally yields inscriptions ordered by offset ascending.
func InscriptionKey(txID *chainhash.Hash, vout uint32, offset uint64) []byte {
	k := InscriptionOutpointPrefix(txID, vout)
	return append(k, htobe64(offset)...)
}

// OwnerHistoryKey builds the "o{owner}{txid}{vout-LE}{offset-BE}"
// OrdHistoryRow key.
func OwnerHistoryKey(owner string, txID *chainhash.Hash, vout uint32, offset uint64) []byte {
	k := make([]byte, 0, 1+len(owner)+32+4+8)
	k = append(k, PrefixOwnerHistory)
	k = append(k, []byte(owner)...)
	k = append(k, txID[:]...)
	voutLE := make([]byte, 4)
	binary.LittleEndian.PutUint32(voutLE, vout)
	k = append(k, voutLE...)
	return append(k, htobe64(offset)...)
}

// OwnerHistoryPrefix builds the "o{owner}" scan prefix for every
// OrdHistoryRow belonging to owner.
func OwnerHistoryPrefix(owner string) []byte {
	return append([]byte{PrefixOwnerHistory}, []byte(owner)...)
}

// UserOrdStatsKey builds the "u{owner}" stats-row key.
func UserOrdStatsKey(owner string) []byte {
	return append([]byte{PrefixUserOrdStats}, []byte(owner)...)
}

// TokenKeyKey builds the "k{tick}" bel-20 deploy-row key.
func TokenKeyKey(tick string) []byte {
	return append([]byte{PrefixTokenKey}, []byte(tick)...)
}

// TokenAccountKey builds the "b{owner}{tick}" balance-row key, owner
// first so a scan of TokenAccountPrefix(owner) yields every tick an
// owner holds.
func TokenAccountKey(owner, tick string) []byte {
	k := make([]byte, 0, 1+len(owner)+len(tick))
	k = append(k, PrefixTokenAccount)
	k = append(k, []byte(owner)...)
	return append(k, []byte(tick)...)
}

// TokenAccountPrefix builds the "b{owner}" scan prefix.
func TokenAccountPrefix(owner string) []byte {
	return append([]byte{PrefixTokenAccount}, []byte(owner)...)
}

// TokenTransferKey builds the "x{txid}{vout-LE}" live TokenTransfer
// key, keyed purely by the outpoint an outstanding transferable
// balance object sits at: the primary lookup MoveTracker's
// TryTransfer hook needs to answer "is this location still a live,
// unredeemed transfer claim" in O(1), independent of which owner
// holds it.
func TokenTransferKey(txID *chainhash.Hash, vout uint32) []byte {
	k := make([]byte, 0, 1+32+4)
	k = append(k, PrefixTokenTransfer)
	k = append(k, txID[:]...)
	voutLE := make([]byte, 4)
	binary.LittleEndian.PutUint32(voutLE, vout)
	return append(k, voutLE...)
}

// TokenTransferOwnerIndexKey builds the "y{owner}{tick}{txid}{vout-LE}"
// secondary index: every outstanding transfer claim an owner can
// redeem, for balance-listing queries. Mirrors the ordering of
// original_source's TokenTransferKey (owner, tick, location) even
// though the primary lookup above is keyed differently.
func TokenTransferOwnerIndexKey(owner, tick string, txID *chainhash.Hash, vout uint32) []byte {
	k := make([]byte, 0, 1+len(owner)+len(tick)+32+4)
	k = append(k, PrefixTokenTransferOwnerIndex)
	k = append(k, []byte(owner)...)
	k = append(k, []byte(tick)...)
	k = append(k, txID[:]...)
	voutLE := make([]byte, 4)
	binary.LittleEndian.PutUint32(voutLE, vout)
	return append(k, voutLE...)
}

// TokenTransferOwnerIndexPrefix builds the "y{owner}" scan prefix.
func TokenTransferOwnerIndexPrefix(owner string) []byte {
	return append([]byte{PrefixTokenTransferOwnerIndex}, []byte(owner)...)
}

// TempHeightPrefix builds the "{height-BE}" prefix shared by every
// shadow row recorded for height, letting reorgbuffer scan and prune
// a height's shadows as one contiguous range regardless of row kind.
func TempHeightPrefix(height uint64) []byte {
	return htobe64(height)
}

// TempInscriptionShadowKey builds the temp-table shadow key
// "{height-BE}I{rest-of-the-main-table-key}" recording an
// InscriptionExtraData row's pre-move value.
func TempInscriptionShadowKey(height uint64, mainKey []byte) []byte {
	return tempShadowKey(height, PrefixTempInscription, mainKey)
}

// TempOwnerHistoryShadowKey builds the temp-table shadow key
// "{height-BE}o{rest-of-the-main-table-key}" recording an
// OrdHistoryRow's pre-move value.
func TempOwnerHistoryShadowKey(height uint64, mainKey []byte) []byte {
	return tempShadowKey(height, PrefixTempOwnerHistory, mainKey)
}

func tempShadowKey(height uint64, kind byte, mainKey []byte) []byte {
	k := make([]byte, 0, 8+1+len(mainKey))
	k = append(k, htobe64(height)...)
	k = append(k, kind)
	return append(k, mainKey...)
}

// TempLastNumberKey builds the "{height-BE}n" key snapshotting
// LastInscriptionNumber as it stood just before height's changes.
func TempLastNumberKey(height uint64) []byte {
	return append(htobe64(height), PrefixTempLastNumber)
}

// HistoryHeightStartKey builds a synthetic "H{scripthash}{height-BE}"
// key. It is never written as a row; it exists only to serve as the
// startKey argument of IterScanFrom(HistoryPrefix(sh), ...), letting a
// scan resume partway through a scripthash's history at a given
// height.
func HistoryHeightStartKey(sh ScriptHash, height uint64) []byte {
	k := make([]byte, 0, 1+32+8)
	k = append(k, PrefixHistory)
	k = append(k, sh[:]...)
	return append(k, htobe64(height)...)
}

// StatsCacheKey builds the "A{scripthash}" cached-ScriptStats row key.
func StatsCacheKey(sh ScriptHash) []byte {
	return append([]byte{PrefixStatsCache}, sh[:]...)
}

// UtxoCacheKey builds the "U{scripthash}{txid}{vout-LE}" cached-UTXO
// row key.
func UtxoCacheKey(sh ScriptHash, txID *chainhash.Hash, vout uint32) []byte {
	k := make([]byte, 0, 1+32+32+4)
	k = append(k, PrefixUtxoCache)
	k = append(k, sh[:]...)
	k = append(k, txID[:]...)
	voutLE := make([]byte, 4)
	binary.LittleEndian.PutUint32(voutLE, vout)
	return append(k, voutLE...)
}

// UtxoCachePrefix builds the "U{scripthash}" scan prefix: every cached
// UTXO belonging to sh.
func UtxoCachePrefix(sh ScriptHash) []byte {
	return append([]byte{PrefixUtxoCache}, sh[:]...)
}
