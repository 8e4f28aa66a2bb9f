package tokenengine

import (
	"testing"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func loc(seed byte, vout uint32) chain.Outpoint {
	var txid chainhash.Hash
	txid[0] = seed
	return chain.Outpoint{TxID: txid, Vout: vout}
}

func deployJSON(tick, max, lim string) []byte {
	return []byte(`{"p":"bel-20","op":"deploy","tick":"` + tick + `","max":"` + max + `","lim":"` + lim + `"}`)
}

func mintJSON(tick, amt string) []byte {
	return []byte(`{"p":"bel-20","op":"mint","tick":"` + tick + `","amt":"` + amt + `"}`)
}

func transferJSON(tick, amt string) []byte {
	return []byte(`{"p":"bel-20","op":"transfer","tick":"` + tick + `","amt":"` + amt + `"}`)
}

func TestDeployThenMintCreditsAccount(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	e.ParseTokenAction(100, 0, "", "text/plain", deployJSON("ordi", "21000000", "1000"), loc(1, 0), chain.Outpoint{})
	e.ParseTokenAction(100, 1, "alice", "text/plain", mintJSON("ordi", "1000"), chain.Outpoint{}, chain.Outpoint{})

	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	raw, found, err := st.Inscription.Get(store.TokenAccountKey("alice", "ordi"))
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !found {
		t.Fatal("expected alice's ordi balance row to exist")
	}
	amt, err := decodeTokenAccountValue(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if amt != 1000 {
		t.Fatalf("expected balance 1000, got %d", amt)
	}

	tokRaw, found, err := st.Inscription.Get(store.TokenKeyKey("ordi"))
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if !found {
		t.Fatal("expected ordi deploy row to exist")
	}
	_, d, err := decodeTokenValue(tokRaw)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if d.Supply != 1000 {
		t.Fatalf("expected supply 1000 after mint, got %d", d.Supply)
	}
}

func TestMintRejectedWhenAmountDoesNotMatchLimit(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	e.ParseTokenAction(100, 0, "", "text/plain", deployJSON("ordi", "21000000", "1000"), loc(1, 0), chain.Outpoint{})
	e.ParseTokenAction(100, 1, "alice", "text/plain", mintJSON("ordi", "500"), chain.Outpoint{}, chain.Outpoint{})

	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	_, found, err := st.Inscription.Get(store.TokenAccountKey("alice", "ordi"))
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if found {
		t.Fatal("expected no balance row: mint amt 500 != deploy lim 1000")
	}
}

func TestMintRejectedWhenSupplyWouldExceedMax(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	e.ParseTokenAction(100, 0, "", "text/plain", deployJSON("ordi", "1000", "1000"), loc(1, 0), chain.Outpoint{})
	e.ParseTokenAction(100, 1, "alice", "text/plain", mintJSON("ordi", "1000"), chain.Outpoint{}, chain.Outpoint{})
	e.ParseTokenAction(100, 2, "bob", "text/plain", mintJSON("ordi", "1000"), chain.Outpoint{}, chain.Outpoint{})

	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	_, found, err := st.Inscription.Get(store.TokenAccountKey("bob", "ordi"))
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if found {
		t.Fatal("expected bob's mint to be rejected: supply 1000 + 1000 > max 1000")
	}

	raw, _, err := st.Inscription.Get(store.TokenAccountKey("alice", "ordi"))
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	amt, _ := decodeTokenAccountValue(raw)
	if amt != 1000 {
		t.Fatalf("expected alice's mint to succeed with 1000, got %d", amt)
	}
}

func TestMintRejectedWhenSupplyPlusAmountOverflowsUint64(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	// A deploy claiming a supply just short of 2^64, with a small max
	// and a mint of exactly the overflow amount: plain uint64 addition
	// wraps Supply+Amt back under Max, which would wrongly accept the
	// mint. Saturating addition must clamp instead, so the mint stays
	// rejected.
	deploy := []byte(`{"p":"bel-20","op":"deploy","tick":"ordi","max":"1000000","lim":"100","supply":"18446744073709551516"}`)
	e.ParseTokenAction(100, 0, "", "text/plain", deploy, loc(1, 0), chain.Outpoint{})
	e.ParseTokenAction(100, 1, "alice", "text/plain", mintJSON("ordi", "100"), chain.Outpoint{}, chain.Outpoint{})

	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	_, found, err := st.Inscription.Get(store.TokenAccountKey("alice", "ordi"))
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if found {
		t.Fatal("expected mint to be rejected: supply+amt overflows uint64 and must saturate above max, not wrap below it")
	}
}

func TestTransferInscribeThenSendMovesBalance(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	e.ParseTokenAction(100, 0, "", "text/plain", deployJSON("ordi", "21000000", "1000"), loc(1, 0), chain.Outpoint{})
	e.ParseTokenAction(100, 1, "alice", "text/plain", mintJSON("ordi", "1000"), chain.Outpoint{}, chain.Outpoint{})

	transferLoc := loc(2, 0)
	e.ParseTokenAction(101, 0, "alice", "text/plain", transferJSON("ordi", "400"), chain.Outpoint{}, transferLoc)

	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	raw, _, err := st.Inscription.Get(store.TokenAccountKey("alice", "ordi"))
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	amt, _ := decodeTokenAccountValue(raw)
	if amt != 600 {
		t.Fatalf("expected alice's balance debited to 600 on transfer-inscribe, got %d", amt)
	}

	transferRaw, found, err := st.Inscription.Get(store.TokenTransferKey(&transferLoc.TxID, transferLoc.Vout))
	if err != nil {
		t.Fatalf("get transfer row: %v", err)
	}
	if !found {
		t.Fatal("expected a live TokenTransfer row at the transfer inscription's location")
	}
	owner, proto, err := decodeTokenTransferValue(transferRaw)
	if err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	if owner != "alice" || proto.Tick != "ordi" || proto.Amt != 400 {
		t.Fatalf("unexpected transfer row: owner=%s proto=%+v", owner, proto)
	}

	// Spending the transfer inscription's outpoint notifies TryTransfer,
	// which should recognize it as a live claim and credit bob.
	e.TryTransfer(102, 0, transferLoc, "bob")
	if err := e.Commit(); err != nil {
		t.Fatalf("second commit: %v", err)
	}

	raw, _, err = st.Inscription.Get(store.TokenAccountKey("bob", "ordi"))
	if err != nil {
		t.Fatalf("get bob account: %v", err)
	}
	amt, _ = decodeTokenAccountValue(raw)
	if amt != 400 {
		t.Fatalf("expected bob credited 400, got %d", amt)
	}

	_, found, err = st.Inscription.Get(store.TokenTransferKey(&transferLoc.TxID, transferLoc.Vout))
	if err != nil {
		t.Fatalf("get transfer row: %v", err)
	}
	if found {
		t.Fatal("expected the TokenTransfer row to be deleted after redemption")
	}
}

func TestTryTransferIgnoresUnknownOutpoint(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	e.TryTransfer(100, 0, loc(9, 0), "bob")
	if len(e.actions) != 0 {
		t.Fatal("expected no Transfer-send action logged for an outpoint with no matching claim")
	}
}

func TestUnknownTickActionsDoNotBreakLaterActionsInTheSameBatch(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	// Mint/transfer against a tick with no deploy should be silently
	// skipped, not abort the remaining actions in the batch (the
	// original's Transfered handling used a loop-terminating return
	// here; this engine continues instead).
	e.ParseTokenAction(100, 0, "alice", "text/plain", mintJSON("miss", "1"), chain.Outpoint{}, chain.Outpoint{})
	e.ParseTokenAction(100, 1, "", "text/plain", deployJSON("ordi", "21000000", "1000"), loc(1, 0), chain.Outpoint{})
	e.ParseTokenAction(100, 2, "alice", "text/plain", mintJSON("ordi", "1000"), chain.Outpoint{}, chain.Outpoint{})

	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	raw, found, err := st.Inscription.Get(store.TokenAccountKey("alice", "ordi"))
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !found {
		t.Fatal("expected the later, valid mint to still land despite the earlier unknown-tick mint")
	}
	amt, _ := decodeTokenAccountValue(raw)
	if amt != 1000 {
		t.Fatalf("expected balance 1000, got %d", amt)
	}
}

func TestActionsCommitInHeightThenTxIndexOrder(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	// Logged out of order; Commit must still apply deploy before mint.
	e.ParseTokenAction(101, 0, "alice", "text/plain", mintJSON("ordi", "1000"), chain.Outpoint{}, chain.Outpoint{})
	e.ParseTokenAction(100, 0, "", "text/plain", deployJSON("ordi", "21000000", "1000"), loc(1, 0), chain.Outpoint{})

	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	raw, found, err := st.Inscription.Get(store.TokenAccountKey("alice", "ordi"))
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !found {
		t.Fatal("expected the mint at height 101 to land once sorted after the height 100 deploy")
	}
	amt, _ := decodeTokenAccountValue(raw)
	if amt != 1000 {
		t.Fatalf("expected balance 1000, got %d", amt)
	}
}

func TestLoadLiveTransfersRehydratesFromStore(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	e.ParseTokenAction(100, 0, "", "text/plain", deployJSON("ordi", "21000000", "1000"), loc(1, 0), chain.Outpoint{})
	e.ParseTokenAction(100, 1, "alice", "text/plain", mintJSON("ordi", "1000"), chain.Outpoint{}, chain.Outpoint{})
	transferLoc := loc(2, 0)
	e.ParseTokenAction(101, 0, "alice", "text/plain", transferJSON("ordi", "400"), chain.Outpoint{}, transferLoc)
	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Simulate a process restart: a fresh Engine over the same store
	// starts with an empty in-memory view until rehydrated.
	fresh := New(st)
	fresh.TryTransfer(102, 0, transferLoc, "bob")
	if len(fresh.actions) != 0 {
		t.Fatal("expected a fresh, unloaded engine to not yet recognize the live transfer")
	}

	if err := fresh.LoadLiveTransfers(); err != nil {
		t.Fatalf("load live transfers: %v", err)
	}
	fresh.TryTransfer(102, 0, transferLoc, "bob")
	if len(fresh.actions) != 1 {
		t.Fatal("expected the rehydrated engine to recognize the live transfer")
	}
}
