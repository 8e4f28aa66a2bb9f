package scriptstats

import (
	"testing"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/headerlist"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

func openTestStore(t *testing.T) (*store.Store, *headerlist.List) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, headerlist.New(st.TxStore)
}

func connectBlock(t *testing.T, hl *headerlist.List, prev chainhash.Hash, ts uint32) chainhash.Hash {
	t.Helper()
	hdr := chain.BlockHeader{Version: 1, PrevBlock: prev, Timestamp: ts}
	hash := hdr.BlockHash()
	if _, err := hl.Connect(hdr, hash); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return hash
}

func putFund(t *testing.T, st *store.Store, sh store.ScriptHash, height uint64, txID *chainhash.Hash, vout uint32, value uint64) {
	t.Helper()
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(value >> (8 * i))
	}
	if err := st.History.Put(store.HistoryFundKey(sh, height, txID, vout), buf); err != nil {
		t.Fatalf("put fund row: %v", err)
	}
}

func putSpend(t *testing.T, st *store.Store, sh store.ScriptHash, height uint64, txID *chainhash.Hash, vin uint32, prevTxID chainhash.Hash, prevVout uint32, value uint64) {
	t.Helper()
	buf := make([]byte, 0, 32+4+8)
	buf = append(buf, prevTxID[:]...)
	voutBuf := make([]byte, 4)
	for i := 0; i < 4; i++ {
		voutBuf[i] = byte(prevVout >> (8 * i))
	}
	buf = append(buf, voutBuf...)
	valBuf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		valBuf[i] = byte(value >> (8 * i))
	}
	buf = append(buf, valBuf...)
	if err := st.History.Put(store.HistorySpendKey(sh, height, txID, vin), buf); err != nil {
		t.Fatalf("put spend row: %v", err)
	}
}

func TestStatsTalliesFundedAndSpent(t *testing.T) {
	st, hl := openTestStore(t)
	sh := store.HashScript([]byte{0x76, 0xa9})

	h0 := connectBlock(t, hl, chainhash.Hash{}, 1)
	h1 := connectBlock(t, hl, h0, 2)

	fundTx := chainhash.Hash{0x01}
	spendTx := chainhash.Hash{0x02}

	putFund(t, st, sh, 0, &fundTx, 0, 5000)
	putSpend(t, st, sh, 1, &spendTx, 0, fundTx, 0, 5000)

	stats, err := Stats(st, hl, sh)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TxCount != 2 {
		t.Fatalf("expected tx_count 2, got %d", stats.TxCount)
	}
	if stats.FundedTxoCount != 1 || stats.FundedTxoSum != 5000 {
		t.Fatalf("unexpected funded stats: %+v", stats)
	}
	if stats.SpentTxoCount != 1 || stats.SpentTxoSum != 5000 {
		t.Fatalf("unexpected spent stats: %+v", stats)
	}
	if !stats.IsSane() {
		t.Fatalf("expected sane stats, got %+v", stats)
	}
}

func TestStatsIncrementalDeltaFromCache(t *testing.T) {
	st, hl := openTestStore(t)
	sh := store.HashScript([]byte{0x51})

	h0 := connectBlock(t, hl, chainhash.Hash{}, 1)

	fundTx := chainhash.Hash{0x10}
	putFund(t, st, sh, 0, &fundTx, 0, 1000)

	// Force a cache write regardless of minHistoryItemsToCache by
	// writing the cache row directly, anchored at h0.
	stats, err := Stats(st, hl, sh)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if err := writeCache(st, sh, stats, h0); err != nil {
		t.Fatalf("writeCache: %v", err)
	}

	h1 := connectBlock(t, hl, h0, 2)
	fundTx2 := chainhash.Hash{0x11}
	putFund(t, st, sh, 1, &fundTx2, 0, 2000)

	stats2, err := Stats(st, hl, sh)
	if err != nil {
		t.Fatalf("stats after delta: %v", err)
	}
	if stats2.FundedTxoCount != 2 || stats2.FundedTxoSum != 3000 {
		t.Fatalf("expected cumulative funded stats after delta, got %+v", stats2)
	}
	if !stats2.IsSane() {
		t.Fatalf("expected sane stats, got %+v", stats2)
	}
	_ = h1
}

func TestStatsCacheInvalidatedOnReorg(t *testing.T) {
	st, hl := openTestStore(t)
	sh := store.HashScript([]byte{0x6a})

	h0 := connectBlock(t, hl, chainhash.Hash{}, 1)
	fundTx := chainhash.Hash{0x20}
	putFund(t, st, sh, 0, &fundTx, 0, 1000)

	stats, err := Stats(st, hl, sh)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// Stamp the cache row with a blockhash hl does not (and will not)
	// recognize, simulating a stale snapshot left behind by a reorg.
	staleHash := chainhash.Hash{0xff}
	if err := writeCache(st, sh, stats, staleHash); err != nil {
		t.Fatalf("writeCache: %v", err)
	}

	stats2, err := Stats(st, hl, sh)
	if err != nil {
		t.Fatalf("stats after stale cache: %v", err)
	}
	if stats2.FundedTxoCount != 1 || stats2.FundedTxoSum != 1000 {
		t.Fatalf("expected a full recompute ignoring the stale cache, got %+v", stats2)
	}
	_ = h0
}

func TestIsSaneRejectsUnbalancedCounts(t *testing.T) {
	cases := []struct {
		name  string
		stats ScriptStats
		sane  bool
	}{
		{"zero value", ScriptStats{}, true},
		{"balanced", ScriptStats{TxCount: 2, FundedTxoCount: 1, SpentTxoCount: 1, FundedTxoSum: 100, SpentTxoSum: 100}, true},
		{"unspent", ScriptStats{TxCount: 1, FundedTxoCount: 1, SpentTxoCount: 0, FundedTxoSum: 100, SpentTxoSum: 0}, true},
		{"spent exceeds funded count", ScriptStats{FundedTxoCount: 1, SpentTxoCount: 2}, false},
		{"spent exceeds funded sum", ScriptStats{FundedTxoCount: 2, SpentTxoCount: 2, FundedTxoSum: 100, SpentTxoSum: 200}, false},
		{"tx_count too high", ScriptStats{TxCount: 5, FundedTxoCount: 1, SpentTxoCount: 1}, false},
		{"counts equal but sums differ", ScriptStats{FundedTxoCount: 1, SpentTxoCount: 1, FundedTxoSum: 100, SpentTxoSum: 50}, false},
	}
	for _, c := range cases {
		if got := c.stats.IsSane(); got != c.sane {
			t.Errorf("%s: IsSane() = %v, want %v", c.name, got, c.sane)
		}
	}
}

func TestUtxoCacheRoundTrip(t *testing.T) {
	st, hl := openTestStore(t)
	sh := store.HashScript([]byte{0x00, 0x14})

	h0 := connectBlock(t, hl, chainhash.Hash{}, 1)

	utxos := []CachedUtxo{
		{TxID: chainhash.Hash{0x01}, Vout: 0, Height: 0, Value: 1000},
		{TxID: chainhash.Hash{0x02}, Vout: 1, Height: 0, Value: 2000},
	}
	if err := WriteUtxoCache(st, sh, utxos, h0); err != nil {
		t.Fatalf("write utxo cache: %v", err)
	}

	got, ok, err := ReadUtxoCache(st, hl, sh)
	if err != nil {
		t.Fatalf("read utxo cache: %v", err)
	}
	if !ok {
		t.Fatal("expected a valid cached snapshot")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cached utxos, got %d", len(got))
	}

	var total uint64
	for _, u := range got {
		total += u.Value
	}
	if total != 3000 {
		t.Fatalf("expected total cached value 3000, got %d", total)
	}
}

func TestUtxoCacheStaleAfterReorg(t *testing.T) {
	st, hl := openTestStore(t)
	sh := store.HashScript([]byte{0x00, 0x20})

	staleHash := chainhash.Hash{0xaa}
	utxos := []CachedUtxo{{TxID: chainhash.Hash{0x03}, Vout: 0, Height: 0, Value: 500}}
	if err := WriteUtxoCache(st, sh, utxos, staleHash); err != nil {
		t.Fatalf("write utxo cache: %v", err)
	}

	_, ok, err := ReadUtxoCache(st, hl, sh)
	if err != nil {
		t.Fatalf("read utxo cache: %v", err)
	}
	if ok {
		t.Fatal("expected the snapshot to be reported stale: its stamped hash is on no known chain")
	}
}
