// Package scriptstats implements C10: derived per-scripthash summaries
// over the confirmed History table, with a blockhash-stamped cache row
// so a repeated query only has to walk the history recorded since the
// last cached block. It is grounded on
// original_source/src/new_index/schema.rs's ScriptStats/is_sane and its
// stats()/stats_delta() cache-then-incremental-update flow.
package scriptstats

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/headerlist"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

// minHistoryItemsToCache is the smallest total row count (funded+spent)
// worth paying a cache write for; a scripthash touched by only a
// handful of transactions is cheap enough to recompute from scratch
// every time, matching MIN_HISTORY_ITEMS_TO_CACHE in schema.rs.
const minHistoryItemsToCache = 100

// ScriptStats is the derived summary over every confirmed transaction
// that funds or spends outputs locked to one script.
type ScriptStats struct {
	TxCount        uint32
	FundedTxoCount uint32
	SpentTxoCount  uint32
	FundedTxoSum   uint64
	SpentTxoSum    uint64
}

// IsSane reports whether s is internally consistent: spent outputs
// can never outnumber or out-sum funded ones, a transaction can't be
// counted more times than it has funding+spending events against this
// script, and funded/spent counts balance to equal exactly when
// funded/spent sums do too.
func (s ScriptStats) IsSane() bool {
	if s.SpentTxoCount > s.FundedTxoCount {
		return false
	}
	if s.TxCount > s.SpentTxoCount+s.FundedTxoCount {
		return false
	}
	if s.SpentTxoSum > s.FundedTxoSum {
		return false
	}
	countsBalanced := s.FundedTxoCount == s.SpentTxoCount
	sumsBalanced := s.FundedTxoSum == s.SpentTxoSum
	return countsBalanced == sumsBalanced
}

func (s ScriptStats) add(delta ScriptStats) ScriptStats {
	return ScriptStats{
		TxCount:        s.TxCount + delta.TxCount,
		FundedTxoCount: s.FundedTxoCount + delta.FundedTxoCount,
		SpentTxoCount:  s.SpentTxoCount + delta.SpentTxoCount,
		FundedTxoSum:   s.FundedTxoSum + delta.FundedTxoSum,
		SpentTxoSum:    s.SpentTxoSum + delta.SpentTxoSum,
	}
}

// Stats computes the ScriptStats for sh as of the current chain tip
// known to hl, reading a cached row from st.Cache when one exists and
// is still sane and anchored to a block hl still recognizes, and
// otherwise recomputing from height zero. A fresh cache row is written
// back once the result crosses minHistoryItemsToCache.
func Stats(st *store.Store, hl *headerlist.List, sh store.ScriptHash) (ScriptStats, error) {
	tip := hl.Tip()
	if tip == nil {
		return ScriptStats{}, nil
	}

	cached, cachedHash, ok, err := readCache(st, sh)
	if err != nil {
		return ScriptStats{}, err
	}

	startHeight := uint64(0)
	base := ScriptStats{}
	if ok && cached.IsSane() {
		if node, found := hl.NodeByHash(&cachedHash); found {
			base = cached
			startHeight = node.Height + 1
		}
		// cachedHash no longer on hl's best chain (reorged away):
		// fall back to a full recompute from height zero.
	}

	delta, err := scanDelta(st, sh, startHeight)
	if err != nil {
		return ScriptStats{}, err
	}
	stats := base.add(delta)

	if int(stats.FundedTxoCount)+int(stats.SpentTxoCount) >= minHistoryItemsToCache {
		if err := writeCache(st, sh, stats, tip.Hash); err != nil {
			return ScriptStats{}, err
		}
	}
	return stats, nil
}

// scanDelta walks every history row recorded for sh from startHeight
// onward, tallying funded/spent counts and sums and counting each
// distinct txid once. The per-height seen-txid set is reset whenever
// the row's height changes, since a confirmed transaction belongs to
// exactly one height and can never reappear at another.
func scanDelta(st *store.Store, sh store.ScriptHash, startHeight uint64) (ScriptStats, error) {
	var stats ScriptStats
	prefix := store.HistoryPrefix(sh)
	cur := st.History.IterScanFrom(prefix, store.HistoryHeightStartKey(sh, startHeight))
	defer cur.Close()

	const keyLen = 1 + 32 + 8 + 1 + 32 + 4
	var curHeight uint64
	haveHeight := false
	seen := make(map[chainhash.Hash]struct{})

	for cur.Next() {
		key := cur.Key()
		if len(key) < keyLen {
			return ScriptStats{}, errors.New("scriptstats: corrupt history row key")
		}
		height := binary.BigEndian.Uint64(key[33:41])
		kind := key[41]
		var txid chainhash.Hash
		copy(txid[:], key[42:74])

		if !haveHeight || height != curHeight {
			curHeight = height
			haveHeight = true
			seen = make(map[chainhash.Hash]struct{})
		}

		val := cur.Value()
		switch kind {
		case store.HistoryFund:
			if len(val) < 8 {
				return ScriptStats{}, errors.New("scriptstats: corrupt funding row")
			}
			stats.FundedTxoCount++
			stats.FundedTxoSum += binary.LittleEndian.Uint64(val[:8])
		case store.HistorySpend:
			if len(val) < 32+4+8 {
				return ScriptStats{}, errors.New("scriptstats: corrupt spending row")
			}
			stats.SpentTxoCount++
			stats.SpentTxoSum += binary.LittleEndian.Uint64(val[36:44])
		default:
			return ScriptStats{}, errors.Errorf("scriptstats: unknown history row kind %q", kind)
		}

		if _, ok := seen[txid]; !ok {
			seen[txid] = struct{}{}
			stats.TxCount++
		}
	}
	if err := cur.Error(); err != nil {
		return ScriptStats{}, err
	}
	return stats, nil
}

// readCache reads and decodes the cached stats row for sh, if present.
func readCache(st *store.Store, sh store.ScriptHash) (ScriptStats, chainhash.Hash, bool, error) {
	val, found, err := st.Cache.Get(store.StatsCacheKey(sh))
	if err != nil || !found {
		return ScriptStats{}, chainhash.Hash{}, false, err
	}
	if len(val) != 28+32 {
		return ScriptStats{}, chainhash.Hash{}, false, errors.New("scriptstats: corrupt stats cache row")
	}
	stats := ScriptStats{
		TxCount:        binary.LittleEndian.Uint32(val[0:4]),
		FundedTxoCount: binary.LittleEndian.Uint32(val[4:8]),
		SpentTxoCount:  binary.LittleEndian.Uint32(val[8:12]),
		FundedTxoSum:   binary.LittleEndian.Uint64(val[12:20]),
		SpentTxoSum:    binary.LittleEndian.Uint64(val[20:28]),
	}
	var hash chainhash.Hash
	copy(hash[:], val[28:60])
	return stats, hash, true, nil
}

// writeCache stamps stats with blockHash (the chain tip stats was
// computed as of) and writes it back to st.Cache.
func writeCache(st *store.Store, sh store.ScriptHash, stats ScriptStats, blockHash chainhash.Hash) error {
	buf := make([]byte, 28+32)
	binary.LittleEndian.PutUint32(buf[0:4], stats.TxCount)
	binary.LittleEndian.PutUint32(buf[4:8], stats.FundedTxoCount)
	binary.LittleEndian.PutUint32(buf[8:12], stats.SpentTxoCount)
	binary.LittleEndian.PutUint64(buf[12:20], stats.FundedTxoSum)
	binary.LittleEndian.PutUint64(buf[20:28], stats.SpentTxoSum)
	copy(buf[28:60], blockHash[:])
	return st.Cache.Put(store.StatsCacheKey(sh), buf)
}
