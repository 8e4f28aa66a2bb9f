package tokenengine

import (
	"testing"

	"github.com/kaspanet/ordindexer/internal/chain"
)

func TestTokenAndBalanceQueries(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	e.ParseTokenAction(100, 0, "", "text/plain", deployJSON("ordi", "21000000", "1000"), loc(1, 0), chain.Outpoint{})
	e.ParseTokenAction(100, 1, "alice", "text/plain", mintJSON("ordi", "1000"), chain.Outpoint{}, chain.Outpoint{})
	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	info, ok, err := Token(st, "ordi")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if !ok {
		t.Fatal("expected ordi to be deployed")
	}
	if info.Deploy.Max != 21000000 || info.Deploy.Lim != 1000 {
		t.Fatalf("unexpected deploy row: %+v", info.Deploy)
	}

	if _, ok, err := Token(st, "nope"); err != nil || ok {
		t.Fatalf("expected nope to be undeployed, ok=%v err=%v", ok, err)
	}

	amt, err := Balance(st, "alice", "ordi")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if amt != 1000 {
		t.Fatalf("expected alice to hold 1000 ordi, got %d", amt)
	}

	if amt, err := Balance(st, "bob", "ordi"); err != nil || amt != 0 {
		t.Fatalf("expected bob to hold nothing, got %d err=%v", amt, err)
	}

	balances, err := AccountBalances(st, "alice")
	if err != nil {
		t.Fatalf("account balances: %v", err)
	}
	if len(balances) != 1 || balances[0].Tick != "ordi" || balances[0].Amount != 1000 {
		t.Fatalf("unexpected balances: %+v", balances)
	}
}

func TestOutstandingTransfersRoundTrip(t *testing.T) {
	st := openTestStore(t)
	e := New(st)

	e.ParseTokenAction(100, 0, "", "text/plain", deployJSON("ordi", "21000000", "1000"), loc(1, 0), chain.Outpoint{})
	e.ParseTokenAction(100, 1, "alice", "text/plain", mintJSON("ordi", "1000"), chain.Outpoint{}, chain.Outpoint{})
	transferLoc := loc(2, 0)
	e.ParseTokenAction(101, 0, "alice", "text/plain", transferJSON("ordi", "400"), chain.Outpoint{}, transferLoc)
	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	transfers, err := OutstandingTransfers(st, "alice")
	if err != nil {
		t.Fatalf("outstanding transfers: %v", err)
	}
	if len(transfers) != 1 {
		t.Fatalf("expected one outstanding transfer, got %d", len(transfers))
	}
	got := transfers[0]
	if got.Tick != "ordi" || got.Amount != 400 || got.Location != transferLoc {
		t.Fatalf("unexpected outstanding transfer: %+v", got)
	}

	// Redeeming the transfer (a fresh engine rehydrated via
	// LoadLiveTransfers, matching a process restart) clears it from
	// the owner index once committed.
	e2 := New(st)
	if err := e2.LoadLiveTransfers(); err != nil {
		t.Fatalf("load live transfers: %v", err)
	}
	e2.TryTransfer(102, 0, transferLoc, "bob")
	if err := e2.Commit(); err != nil {
		t.Fatalf("commit redeem: %v", err)
	}

	transfers, err = OutstandingTransfers(st, "alice")
	if err != nil {
		t.Fatalf("outstanding transfers after redeem: %v", err)
	}
	if len(transfers) != 0 {
		t.Fatalf("expected alice's transfer to be redeemed, got %+v", transfers)
	}

	bobAmt, err := Balance(st, "bob", "ordi")
	if err != nil {
		t.Fatalf("bob balance: %v", err)
	}
	if bobAmt != 400 {
		t.Fatalf("expected bob to hold 400 ordi after redeem, got %d", bobAmt)
	}
}
