package movetracker

import (
	"encoding/hex"
	"testing"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/netparams"
	"github.com/kaspanet/ordindexer/internal/reassembler"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

func TestQueryAccessorsAfterMove(t *testing.T) {
	st := openTestStore(t)
	tr := New(st, &netparams.MainNetParams, nil)

	genesisTxID := chainhash.Hash{0xbb}
	genesisOutpoint := chain.Outpoint{TxID: genesisTxID, Vout: 0}
	spendScript := []byte{0x6a, 0x03, 0x04, 0x05}
	owner := hex.EncodeToString(spendScript)
	putTxOut(t, st, genesisOutpoint, 2000, spendScript)

	spendTx := &chain.Tx{
		Version: 1,
		TxIn:    []*chain.TxIn{{PreviousOutpoint: genesisOutpoint}},
		TxOut:   []*chain.TxOut{{Value: 2000, PkScript: spendScript}},
	}
	block := &chain.Block{Transactions: []*chain.Tx{coinbaseTx(&chain.TxOut{Value: 2000}), spendTx}}

	completed := []reassembler.NumberedInscription{{
		InscriptionTemplate: reassembler.InscriptionTemplate{
			GenesisTxID:  genesisTxID,
			LocationTxID: genesisTxID,
			ContentType:  []byte("text/plain"),
			Body:         []byte("hello"),
			Owner:        "genesis-owner",
			Value:        2000,
			Height:       100,
		},
		Number: 7,
	}}

	if err := tr.ProcessBlocks([]BlockInput{{Height: 101, Block: block, Completed: completed}}); err != nil {
		t.Fatalf("ProcessBlocks: %v", err)
	}

	newOutpoint := chain.Outpoint{TxID: *spendTx.TxID(), Vout: 0}
	found, err := InscriptionAtOutpoint(st, newOutpoint)
	if err != nil {
		t.Fatalf("InscriptionAtOutpoint: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 inscription at the new outpoint, got %d", len(found))
	}
	if found[0].Number != 7 || found[0].Owner != owner {
		t.Fatalf("unexpected extra data: %+v", found[0])
	}

	history, err := OwnerHistory(st, owner)
	if err != nil {
		t.Fatalf("OwnerHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history row for owner, got %d", len(history))
	}
	if history[0].Number != 7 || history[0].Location.TxID != newOutpoint.TxID {
		t.Fatalf("unexpected history entry: %+v", history[0])
	}
	if history[0].GenesisTxID.TxID != genesisTxID {
		t.Fatalf("expected genesis txid %x, got %x", genesisTxID, history[0].GenesisTxID.TxID)
	}

	stats, err := UserStats(st, owner)
	if err != nil {
		t.Fatalf("UserStats: %v", err)
	}
	if stats.Count != 1 || stats.Amount != 2000 {
		t.Fatalf("unexpected user stats: %+v", stats)
	}

	if empty, err := OwnerHistory(st, "nobody"); err != nil || len(empty) != 0 {
		t.Fatalf("expected no history for an unknown owner, got %+v err=%v", empty, err)
	}
}
