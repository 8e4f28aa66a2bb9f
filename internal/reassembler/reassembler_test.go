package reassembler

import (
	"testing"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/netparams"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

func pushScript(items ...[]byte) []byte {
	var out []byte
	for _, item := range items {
		switch {
		case len(item) == 0:
			out = append(out, 0x00)
		case len(item) <= 75:
			out = append(out, byte(len(item)))
			out = append(out, item...)
		default:
			out = append(out, 0x4d, byte(len(item)), byte(len(item)>>8))
			out = append(out, item...)
		}
	}
	return out
}

func leUint(v uint64) []byte {
	if v == 0 {
		return []byte{}
	}
	b := []byte{byte(v)}
	for v >>= 8; v > 0; v >>= 8 {
		b = append(b, byte(v))
	}
	return b
}

func txWithInputScript(prevTxID chainhash.Hash, script []byte) *chain.Tx {
	return &chain.Tx{
		Version: 1,
		TxIn: []*chain.TxIn{{
			PreviousOutpoint: chain.Outpoint{TxID: prevTxID, Vout: 0},
			SignatureScript:  script,
		}},
		TxOut: []*chain.TxOut{{Value: 10000, PkScript: []byte{0x6a}}},
	}
}

func TestDecodePushesHandlesAllOpcodeForms(t *testing.T) {
	script := []byte{}
	script = append(script, 0x00)                   // OP_0
	script = append(script, 0x51)                   // OP_1
	script = append(script, 0x60)                   // OP_16
	script = append(script, 0x03, 'a', 'b', 'c')     // direct push
	script = append(script, 0x4c, 0x02, 'x', 'y')    // PUSHDATA1
	script = append(script, 0x4d, 0x02, 0x00, 'h', 'i') // PUSHDATA2, length=2 LE

	items, err := DecodePushes(script)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]byte{{}, {1}, {16}, []byte("abc"), []byte("xy"), []byte("hi")}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i := range want {
		if string(items[i]) != string(want[i]) {
			t.Fatalf("item %d: expected %q, got %q", i, want[i], items[i])
		}
	}
}

func TestPushData2UsesLittleEndianLength(t *testing.T) {
	// length 0x0100 = 256, encoded LE as [0x00, 0x01]; a buggy
	// big-endian-swapped reader would compute length 1 instead.
	body := make([]byte, 256)
	for i := range body {
		body[i] = byte(i)
	}
	script := append([]byte{0x4d, 0x00, 0x01}, body...)

	items, err := DecodePushes(script)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || len(items[0]) != 256 {
		t.Fatalf("expected a single 256-byte push, got %d items, first len %d", len(items), len(items[0]))
	}
}

func TestSingleTxInscriptionCompletesImmediately(t *testing.T) {
	// spec.md §8 scenario 1, literal encoding: remaining_pieces=<0x01>,
	// content_type="text/plain", one inline (index=0, "hello") pair.
	script := pushScript(ProtocolID, leUint(1), []byte("text/plain"), leUint(0), []byte("hello"))
	tx := txWithInputScript(chainhash.Hash{0x01}, script)
	block := &chain.Block{Transactions: []*chain.Tx{tx}}

	digested := FirstPass(block, 100, &netparams.MainNetParams)
	if len(digested.Completed) != 1 {
		t.Fatalf("expected 1 completed inscription, got %d", len(digested.Completed))
	}
	got := digested.Completed[0]
	if string(got.ContentType) != "text/plain" {
		t.Fatalf("unexpected content type %q", got.ContentType)
	}
	if string(got.Body) != "hello" {
		t.Fatalf("unexpected body %q", got.Body)
	}
}

func TestGenesisTxWithInlinePairCompletesScenario2(t *testing.T) {
	// spec.md §8 scenario 2, literal encoding: t1 carries pieces
	// [1, "img/png", chunk_A] (npieces=2), t2 spends t1:0 with
	// pushes [0, chunk_B]. remaining_pieces counts the inline piece
	// too, so a genesis tx that inlines one piece must still report
	// remaining_pieces=2, not 1.
	chunkA := []byte("chunk_A_bytes")
	chunkB := []byte("chunk_B_bytes")

	genesisTx := txWithInputScript(chainhash.Hash{0x01},
		pushScript(ProtocolID, leUint(2), []byte("img/png"), leUint(1), chunkA))
	genesisHash := *genesisTx.TxID()

	continuationTx := txWithInputScript(genesisHash, pushScript(leUint(0), chunkB))

	block := &chain.Block{Transactions: []*chain.Tx{genesisTx, continuationTx}}
	digested := FirstPass(block, 300, &netparams.MainNetParams)

	if len(digested.Completed) != 1 {
		t.Fatalf("expected 1 completed inscription, got %d", len(digested.Completed))
	}
	got := digested.Completed[0]
	if string(got.ContentType) != "img/png" {
		t.Fatalf("unexpected content type %q", got.ContentType)
	}
	if string(got.Body) != "chunk_A_byteschunk_B_bytes" {
		t.Fatalf("unexpected body %q, want chunk_A then chunk_B concatenated", got.Body)
	}
	if len(digested.Partial) != 0 {
		t.Fatalf("expected no leftover partial chains, got %d", len(digested.Partial))
	}
}

func TestMultiTxChainWithinOneBlockCompletes(t *testing.T) {
	genesisTx := txWithInputScript(chainhash.Hash{0x01},
		pushScript(ProtocolID, leUint(1), []byte("text/plain")))
	genesisHash := *genesisTx.TxID()

	continuationTx := txWithInputScript(genesisHash,
		pushScript(leUint(0), []byte("world")))

	block := &chain.Block{Transactions: []*chain.Tx{genesisTx, continuationTx}}
	digested := FirstPass(block, 200, &netparams.MainNetParams)

	if len(digested.Completed) != 1 {
		t.Fatalf("expected 1 completed inscription, got %d", len(digested.Completed))
	}
	if string(digested.Completed[0].Body) != "world" {
		t.Fatalf("unexpected body %q", digested.Completed[0].Body)
	}
	if len(digested.Partial) != 0 {
		t.Fatalf("expected no leftover partial chains, got %d", len(digested.Partial))
	}
}

func TestChainSpanningTwoBlocksCompletesInSecondPass(t *testing.T) {
	genesisTx := txWithInputScript(chainhash.Hash{0x01},
		pushScript(ProtocolID, leUint(1), []byte("text/plain")))
	genesisHash := *genesisTx.TxID()

	blockA := &chain.Block{Transactions: []*chain.Tx{genesisTx}}
	digestedA := FirstPass(blockA, 10, &netparams.MainNetParams)
	if len(digestedA.Completed) != 0 {
		t.Fatal("genesis-only tx with remaining_pieces=1 should not complete yet")
	}
	if len(digestedA.Partial) != 1 {
		t.Fatalf("expected 1 pending partial chain, got %d", len(digestedA.Partial))
	}

	r := New(&netparams.MainNetParams)
	numberedA := r.SecondPass(digestedA, blockA)
	if len(numberedA) != 0 {
		t.Fatal("expected no inscriptions completed in block A")
	}

	continuationTx := txWithInputScript(genesisHash,
		pushScript(leUint(0), []byte("world")))
	blockB := &chain.Block{Transactions: []*chain.Tx{continuationTx}}
	digestedB := FirstPass(blockB, 11, &netparams.MainNetParams)

	numberedB := r.SecondPass(digestedB, blockB)
	if len(numberedB) != 1 {
		t.Fatalf("expected 1 inscription completed in block B, got %d", len(numberedB))
	}
	if string(numberedB[0].Body) != "world" {
		t.Fatalf("unexpected body %q", numberedB[0].Body)
	}
	if numberedB[0].Number != 0 {
		t.Fatalf("expected inscription number 0, got %d", numberedB[0].Number)
	}
}

func TestWrongPieceIndexDiscardsChain(t *testing.T) {
	genesisTx := txWithInputScript(chainhash.Hash{0x01},
		pushScript(ProtocolID, leUint(2), []byte("text/plain")))
	genesisHash := *genesisTx.TxID()

	// should be index 1 next, not 0: protocol violation
	badContinuation := txWithInputScript(genesisHash, pushScript(leUint(0), []byte("oops")))

	block := &chain.Block{Transactions: []*chain.Tx{genesisTx, badContinuation}}
	digested := FirstPass(block, 5, &netparams.MainNetParams)

	if len(digested.Completed) != 0 {
		t.Fatal("expected no completions from a chain with a bad piece index")
	}
	if len(digested.Partial) != 0 {
		t.Fatal("expected the violating chain to be discarded, not left partial")
	}
}

func TestNonOrdTransactionIsRest(t *testing.T) {
	tx := txWithInputScript(chainhash.Hash{0x01}, []byte{0x51, 0x52})
	block := &chain.Block{Transactions: []*chain.Tx{tx}}
	digested := FirstPass(block, 1, &netparams.MainNetParams)

	if len(digested.Completed) != 0 || len(digested.Partial) != 0 {
		t.Fatal("expected no chain activity for a plain non-ord transaction")
	}
	if len(digested.Rest) != 1 {
		t.Fatalf("expected the transaction to be classified as rest, got %d rest entries", len(digested.Rest))
	}
}
