package reorgbuffer

import (
	"testing"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/movetracker"
	"github.com/kaspanet/ordindexer/internal/netparams"
	"github.com/kaspanet/ordindexer/internal/reassembler"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func putTxOut(t *testing.T, st *store.Store, op chain.Outpoint, value uint64, script []byte) {
	t.Helper()
	buf := make([]byte, 8, 8+len(script))
	for i := 0; i < 8; i++ {
		buf[i] = byte(value >> (8 * i))
	}
	buf = append(buf, script...)
	if err := st.TxStore.Put(store.TxOutKey(op), buf); err != nil {
		t.Fatalf("put txout: %v", err)
	}
}

func coinbaseTx(outs ...*chain.TxOut) *chain.Tx {
	return &chain.Tx{
		Version: 1,
		TxIn:    []*chain.TxIn{{PreviousOutpoint: chain.Outpoint{Vout: 0xffffffff}}},
		TxOut:   outs,
	}
}

// TestMoveThenReorgRestoresOldLocation runs a single inscription move
// through movetracker with shadow-writing enabled, then reorgs that
// same block away and verifies the inscription lands back at its
// pre-move location, byte-identical to before the move.
func TestMoveThenReorgRestoresOldLocation(t *testing.T) {
	st := openTestStore(t)
	buf := New(st)
	tr := movetracker.New(st, &netparams.MainNetParams, nil)
	tr.SetShadowRecorder(buf)

	genesisTxID := chainhash.Hash{0xaa}
	genesisOutpoint := chain.Outpoint{TxID: genesisTxID, Vout: 0}
	spendScript := []byte{0x6a, 0x01, 0x02}
	putTxOut(t, st, genesisOutpoint, 1000, spendScript)

	spendTx := &chain.Tx{
		Version: 1,
		TxIn:    []*chain.TxIn{{PreviousOutpoint: genesisOutpoint}},
		TxOut:   []*chain.TxOut{{Value: 1000, PkScript: spendScript}},
	}
	block100 := &chain.Block{Transactions: []*chain.Tx{coinbaseTx(&chain.TxOut{Value: 1000})}}
	block101 := &chain.Block{Transactions: []*chain.Tx{coinbaseTx(&chain.TxOut{Value: 1000}), spendTx}}

	completed := []reassembler.NumberedInscription{{
		InscriptionTemplate: reassembler.InscriptionTemplate{
			GenesisTxID:  genesisTxID,
			LocationTxID: genesisTxID,
			ContentType:  []byte("text/plain"),
			Body:         []byte("hi"),
			Owner:        "genesis-owner",
			Value:        1000,
			Height:       100,
		},
		Number: 0,
	}}

	if err := buf.SnapshotLastNumber(100); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := tr.ProcessBlocks([]movetracker.BlockInput{
		{Height: 100, Block: block100, Completed: completed},
	}); err != nil {
		t.Fatalf("ProcessBlocks (genesis): %v", err)
	}

	if err := buf.SnapshotLastNumber(101); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := tr.ProcessBlocks([]movetracker.BlockInput{
		{Height: 101, Block: block101, Completed: nil},
	}); err != nil {
		t.Fatalf("ProcessBlocks (move): %v", err)
	}

	newOutpoint := chain.Outpoint{TxID: *spendTx.TxID(), Vout: 0}
	_, found, err := st.Inscription.Get(store.InscriptionKey(&newOutpoint.TxID, 0, 0))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected the inscription to have moved to the spend tx's output")
	}

	if err := buf.Reorg([]Block{{Height: 101, Txs: block101.Transactions}}); err != nil {
		t.Fatalf("reorg: %v", err)
	}

	_, stillAtNew, err := st.Inscription.Get(store.InscriptionKey(&newOutpoint.TxID, 0, 0))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stillAtNew {
		t.Fatal("expected the moved-to row to be deleted by the reorg (forward effect undone)")
	}

	raw, restored, err := st.Inscription.Get(store.InscriptionKey(&genesisTxID, 0, 0))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !restored {
		t.Fatal("expected the genesis location's row to be restored by the reorg")
	}
	if len(raw) == 0 {
		t.Fatal("expected a non-empty restored row")
	}

	_, historyRestored, err := st.Inscription.Get(store.OwnerHistoryKey("genesis-owner", &genesisTxID, 0, 0))
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if !historyRestored {
		t.Fatal("expected the genesis owner's history row to be restored by the reorg")
	}

	counterRaw, counterFound, err := st.Inscription.Get(store.LastInscriptionNumberKey)
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if !counterFound {
		t.Fatal("expected LastInscriptionNumber to be restored by the reorg")
	}
	if counterRaw[0] != 0 {
		t.Fatalf("expected the restored counter to read 0 (nothing had persisted it yet), got %d", counterRaw[0])
	}
}

func TestPruneHeightRemovesShadowRows(t *testing.T) {
	st := openTestStore(t)
	buf := New(st)

	if err := buf.SnapshotLastNumber(50); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	key := store.InscriptionKey(&chainhash.Hash{0x01}, 0, 0)
	if err := buf.ShadowInscription(50, key, []byte("old-value")); err != nil {
		t.Fatalf("shadow: %v", err)
	}

	if err := buf.PruneHeight(50); err != nil {
		t.Fatalf("prune: %v", err)
	}

	has, err := st.Temp.Has(store.TempLastNumberKey(50))
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if has {
		t.Fatal("expected the last-number snapshot to be pruned")
	}
	has, err = st.Temp.Has(store.TempInscriptionShadowKey(50, key))
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if has {
		t.Fatal("expected the inscription shadow row to be pruned")
	}
}

func TestSnapshotLastNumberIsIdempotentPerHeight(t *testing.T) {
	st := openTestStore(t)
	buf := New(st)

	if err := st.Inscription.Put(store.LastInscriptionNumberKey, []byte{5, 0, 0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := buf.SnapshotLastNumber(10); err != nil {
		t.Fatalf("snapshot 1: %v", err)
	}

	// Advance the live counter, then snapshot again at the same height:
	// the already-recorded pre-height-10 value must not be clobbered.
	if err := st.Inscription.Put(store.LastInscriptionNumberKey, []byte{9, 0, 0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := buf.SnapshotLastNumber(10); err != nil {
		t.Fatalf("snapshot 2: %v", err)
	}

	raw, found, err := st.Temp.Get(store.TempLastNumberKey(10))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected a snapshot to exist")
	}
	if raw[0] != 5 {
		t.Fatalf("expected the first snapshot (5) to survive, got %d", raw[0])
	}
}
