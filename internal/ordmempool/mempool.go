// Package ordmempool implements C9: a read-mostly mirror of the node's
// unconfirmed transaction set. It is grounded on
// original_source/src/new_index/mempool.rs's Mempool type (txstore/
// feeinfo/history/edges/recent fields), translated from that file's
// BTreeMap+HashMap shape into explicit Go maps guarded by a single
// RWMutex, the same locking granularity domain/mempool.TxPool uses for
// its own pool map.
package ordmempool

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/fetcher"
	"github.com/kaspanet/ordindexer/internal/rpcclient"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

// HistoryKind distinguishes a funding entry (tx created this output)
// from a spending entry (tx consumed it).
type HistoryKind int

const (
	HistoryFunding HistoryKind = iota
	HistorySpending
)

// HistoryEntry is one funding or spending event against a scripthash,
// mirroring TxHistoryInfo::Funding/Spending.
type HistoryEntry struct {
	Kind  HistoryKind
	TxID  chainhash.Hash
	Vout  uint32 // set when Kind == HistoryFunding
	Vin   uint32 // set when Kind == HistorySpending
	Value uint64
}

// SpendingEdge records which input of which transaction spends a given
// outpoint, mirroring the edges: HashMap<OutPoint, (Txid, vin)> field.
type SpendingEdge struct {
	TxID chainhash.Hash
	Vin  uint32
}

// TxOverview is the simplified view kept in the bounded recent-tx ring.
type TxOverview struct {
	TxID  chainhash.Hash
	Fee   uint64
	VSize uint64
	Value uint64
}

// Mempool mirrors the node's unconfirmed set: a txid->tx map, a
// per-scripthash history index, an outpoint->spending-input edge map, a
// bounded ring of the most recently seen transactions, and a TTL-cached
// backlog summary. Guarded by a single RWMutex: writes happen
// exclusively during Update, reads come from query/REST callers.
type Mempool struct {
	mu sync.RWMutex

	st      *store.Store
	fetcher *fetcher.Fetcher
	rpc     *rpcclient.Client

	recentSize int
	backlogTTL time.Duration

	txs     map[chainhash.Hash]*chain.Tx
	feeInfo map[chainhash.Hash]TxFeeInfo
	history map[store.ScriptHash][]HistoryEntry
	edges   map[chain.Outpoint]SpendingEdge

	recent []TxOverview // front (index 0) is newest

	backlog     BacklogStats
	backlogAt   time.Time
	backlogOnce bool
}

// New constructs an empty Mempool. recentSize bounds the recent-tx
// ring (mempool_recent_txs_size); backlogTTL bounds how long a computed
// BacklogStats snapshot is reused before being recomputed
// (mempool_backlog_stats_ttl).
func New(st *store.Store, rpc *rpcclient.Client, f *fetcher.Fetcher, recentSize int, backlogTTL time.Duration) *Mempool {
	return &Mempool{
		st:         st,
		rpc:        rpc,
		fetcher:    f,
		recentSize: recentSize,
		backlogTTL: backlogTTL,
		txs:        make(map[chainhash.Hash]*chain.Tx),
		feeInfo:    make(map[chainhash.Hash]TxFeeInfo),
		history:    make(map[store.ScriptHash][]HistoryEntry),
		edges:      make(map[chain.Outpoint]SpendingEdge),
	}
}

// Update diffs the node's current mempool txid set against the local
// one: newly-seen txids are fetched and inserted, locally-held txids no
// longer on the node are removed. A transaction whose prevouts cannot
// all be resolved (from the confirmed chain or from the mempool itself)
// is skipped entirely and retried on the next call; no partial state
// for it is ever recorded.
func (m *Mempool) Update() error {
	nodeTxIDs, err := m.rpc.GetRawMempool()
	if err != nil {
		return errors.Wrap(err, "ordmempool: fetching node mempool txids")
	}
	nodeSet := make(map[chainhash.Hash]struct{}, len(nodeTxIDs))
	for _, id := range nodeTxIDs {
		nodeSet[*id] = struct{}{}
	}

	m.mu.RLock()
	var toRemove []chainhash.Hash
	for id := range m.txs {
		if _, ok := nodeSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	var toFetch []*chainhash.Hash
	for _, id := range nodeTxIDs {
		if _, ok := m.txs[*id]; !ok {
			toFetch = append(toFetch, id)
		}
	}
	m.mu.RUnlock()

	fetched := make([]*chain.Tx, 0, len(toFetch))
	for _, id := range toFetch {
		tx, err := m.fetcher.FetchTx(id, nil)
		if err != nil {
			// e.g. the tx confirmed or got RBF-ed between
			// getrawmempool and now; leave the mempool as-is
			// and pick it up (or not) on the next cycle.
			continue
		}
		fetched = append(fetched, tx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(toRemove)
	m.insert(fetched)
	return nil
}

// insert indexes each tx's feeinfo, history entries and spend edges.
// Held under m.mu (write-locked).
func (m *Mempool) insert(txs []*chain.Tx) {
	for _, tx := range txs {
		txID := *tx.TxID()

		prevouts, ok := m.resolvePrevoutsLocked(tx)
		if !ok {
			continue
		}
		m.txs[txID] = tx

		var inValue uint64
		for _, out := range prevouts {
			inValue += out.Value
		}
		var outValue uint64
		for _, out := range tx.TxOut {
			outValue += out.Value
		}
		fee := uint64(0)
		if inValue > outValue {
			fee = inValue - outValue
		}
		feeInfo := TxFeeInfo{Fee: fee, VSize: uint64(tx.VSize())}
		m.feeInfo[txID] = feeInfo

		m.recent = append([]TxOverview{{TxID: txID, Fee: fee, VSize: feeInfo.VSize, Value: inValue}}, m.recent...)
		if len(m.recent) > m.recentSize && m.recentSize > 0 {
			m.recent = m.recent[:m.recentSize]
		}

		for i, in := range tx.TxIn {
			prevout, ok := prevouts[in.PreviousOutpoint]
			if !ok {
				continue
			}
			sh := store.HashScript(prevout.PkScript)
			m.history[sh] = append(m.history[sh], HistoryEntry{
				Kind:  HistorySpending,
				TxID:  txID,
				Vin:   uint32(i),
				Value: prevout.Value,
			})
			m.edges[in.PreviousOutpoint] = SpendingEdge{TxID: txID, Vin: uint32(i)}
		}

		for vout, out := range tx.TxOut {
			sh := store.HashScript(out.PkScript)
			m.history[sh] = append(m.history[sh], HistoryEntry{
				Kind:  HistoryFunding,
				TxID:  txID,
				Vout:  uint32(vout),
				Value: out.Value,
			})
		}
	}
}

// remove drops every txid in ids from every index. Held under m.mu
// (write-locked).
func (m *Mempool) remove(ids []chainhash.Hash) {
	if len(ids) == 0 {
		return
	}
	dead := make(map[chainhash.Hash]struct{}, len(ids))
	for _, id := range ids {
		dead[id] = struct{}{}
		delete(m.txs, id)
		delete(m.feeInfo, id)
	}

	for sh, entries := range m.history {
		filtered := entries[:0]
		for _, e := range entries {
			if _, gone := dead[e.TxID]; !gone {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			delete(m.history, sh)
		} else {
			m.history[sh] = filtered
		}
	}

	for op, edge := range m.edges {
		if _, gone := dead[edge.TxID]; gone {
			delete(m.edges, op)
		}
	}
}

// resolvePrevoutsLocked resolves every non-coinbase input's previous
// TxOut, composing mempool-over-chain: a parent still sitting in this
// same mempool is checked first, falling back to the confirmed
// TxStore. Returns ok=false (resolving nothing) if any prevout is
// unresolvable, so the caller can skip the whole transaction rather
// than leave partial state behind.
func (m *Mempool) resolvePrevoutsLocked(tx *chain.Tx) (map[chain.Outpoint]*chain.TxOut, bool) {
	out := make(map[chain.Outpoint]*chain.TxOut, len(tx.TxIn))
	for _, in := range tx.TxIn {
		if tx.IsCoinbase() {
			continue
		}
		txOut, ok := m.lookupTxOutLocked(in.PreviousOutpoint)
		if !ok {
			return nil, false
		}
		out[in.PreviousOutpoint] = txOut
	}
	return out, true
}

func (m *Mempool) lookupTxOutLocked(op chain.Outpoint) (*chain.TxOut, bool) {
	if parent, ok := m.txs[op.TxID]; ok {
		if int(op.Vout) < len(parent.TxOut) {
			return parent.TxOut[op.Vout], true
		}
		return nil, false
	}
	val, found, err := m.st.TxStore.Get(store.TxOutKey(op))
	if err != nil || !found || len(val) < 8 {
		return nil, false
	}
	value := uint64(0)
	for i := 0; i < 8; i++ {
		value |= uint64(val[i]) << (8 * i)
	}
	return &chain.TxOut{Value: value, PkScript: val[8:]}, true
}

// LookupTxOut resolves op's TxOut, mempool first then the confirmed
// chain, the same composition order described in SPEC_FULL.md's query
// layer.
func (m *Mempool) LookupTxOut(op chain.Outpoint) (*chain.TxOut, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupTxOutLocked(op)
}

// LookupTx returns the mempool transaction for txID, if present.
func (m *Mempool) LookupTx(txID chainhash.Hash) (*chain.Tx, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[txID]
	return tx, ok
}

// LookupSpend returns the input spending op, if op is currently spent
// by a mempool transaction.
func (m *Mempool) LookupSpend(op chain.Outpoint) (SpendingEdge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.edges[op]
	return e, ok
}

// History returns every funding/spending entry recorded against sh, in
// insertion order.
func (m *Mempool) History(sh store.ScriptHash) []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.history[sh]
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out
}

// Count returns the number of transactions currently held.
func (m *Mempool) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

// TxIDs returns every held txid, sorted for deterministic iteration
// (the original's BTreeMap ordering).
func (m *Mempool) TxIDs() []chainhash.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]chainhash.Hash, 0, len(m.txs))
	for id := range m.txs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// RecentOverview returns the bounded ring of most-recently-inserted
// transactions, newest first. Entries are never proactively evicted
// when their transaction leaves the mempool; they simply age out as
// newer ones push them past recentSize.
func (m *Mempool) RecentOverview() []TxOverview {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TxOverview, len(m.recent))
	copy(out, m.recent)
	return out
}

// BacklogStats returns the cached backlog summary, recomputing it if
// the cached snapshot has exceeded backlogTTL.
func (m *Mempool) BacklogStats() BacklogStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.backlogOnce || time.Since(m.backlogAt) > m.backlogTTL {
		m.backlog = computeBacklogStats(m.feeInfo)
		m.backlogAt = time.Now()
		m.backlogOnce = true
	}
	return m.backlog
}
