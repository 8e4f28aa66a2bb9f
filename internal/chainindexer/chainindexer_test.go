package chainindexer

import (
	"os"
	"testing"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/headerlist"
	"github.com/kaspanet/ordindexer/internal/netparams"
	"github.com/kaspanet/ordindexer/internal/rpcclient"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

type fakeRPC struct {
	best    chainhash.Hash
	headers map[chainhash.Hash]*rpcclient.BlockHeaderResult
}

func (f *fakeRPC) GetBestBlockHash() (*chainhash.Hash, error) {
	h := f.best
	return &h, nil
}

func (f *fakeRPC) GetBlockHeader(hash *chainhash.Hash) (*rpcclient.BlockHeaderResult, error) {
	r, ok := f.headers[*hash]
	if !ok {
		return nil, errNotFound
	}
	return r, nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (e *notFoundErr) Error() string { return "header not found" }

type fakeFetcher struct {
	blocks map[chainhash.Hash]*chain.Block
}

func (f *fakeFetcher) FetchByHash(hash *chainhash.Hash) (*chain.Block, error) {
	b, ok := f.blocks[*hash]
	if !ok {
		return nil, errNotFound
	}
	return b, nil
}

func buildChain(t *testing.T, n int) ([]*chain.Block, []chainhash.Hash) {
	t.Helper()
	blocks := make([]*chain.Block, n)
	hashes := make([]chainhash.Hash, n)
	var prev chainhash.Hash
	for i := 0; i < n; i++ {
		b := &chain.Block{
			Header: chain.BlockHeader{Version: 1, PrevBlock: prev, Timestamp: uint32(1000 + i)},
			Transactions: []*chain.Tx{
				{
					Version: 1,
					TxIn: []*chain.TxIn{{
						PreviousOutpoint: chain.Outpoint{Vout: 0xffffffff},
						Sequence:         0xffffffff,
					}},
					TxOut: []*chain.TxOut{{Value: 5000000000, PkScript: []byte{0x76, 0xa9, 0x14,
						1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 0x88, 0xac}}},
				},
			},
		}
		hash := *b.Hash()
		blocks[i] = b
		hashes[i] = hash
		prev = hash
	}
	return blocks, hashes
}

func newTestStoreAndHL(t *testing.T) (*store.Store, *headerlist.List) {
	t.Helper()
	dir, err := os.MkdirTemp("", "chainindexer-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	st, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st, headerlist.New(st.TxStore)
}

func TestUpdateConnectsNewBlocks(t *testing.T) {
	blocks, hashes := buildChain(t, 3)

	rpcHeaders := make(map[chainhash.Hash]*rpcclient.BlockHeaderResult)
	fetchBlocks := make(map[chainhash.Hash]*chain.Block)
	for i, b := range blocks {
		prevStr := ""
		if i > 0 {
			prevStr = hashes[i-1].String()
		}
		rpcHeaders[hashes[i]] = &rpcclient.BlockHeaderResult{
			Hash:         hashes[i].String(),
			Height:       uint64(i),
			Version:      b.Header.Version,
			MerkleRoot:   b.Header.MerkleRoot.String(),
			Time:         b.Header.Timestamp,
			Nonce:        b.Header.Nonce,
			PreviousHash: prevStr,
		}
		fetchBlocks[hashes[i]] = b
	}

	rpc := &fakeRPC{best: hashes[len(hashes)-1], headers: rpcHeaders}
	fetch := &fakeFetcher{blocks: fetchBlocks}

	st, hl := newTestStoreAndHL(t)
	idx := New(st, hl, fetch, rpc, &netparams.MainNetParams, true, false, 2)

	result, err := idx.Update()
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Added) != 3 {
		t.Fatalf("expected 3 added nodes, got %d", len(result.Added))
	}
	if len(result.Removed) != 0 {
		t.Fatalf("expected 0 removed nodes, got %d", len(result.Removed))
	}
	if hl.Tip().Hash != hashes[2] {
		t.Fatal("tip did not advance to the fetched chain's last block")
	}

	for i, b := range blocks {
		txID := b.Transactions[0].TxID()
		_, ok, err := st.TxStore.Get(store.TxKey(txID))
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("expected tx row for block %d to exist", i)
		}
	}
}

func TestUpdateNoopWhenAlreadyAtTip(t *testing.T) {
	blocks, hashes := buildChain(t, 1)
	rpc := &fakeRPC{best: hashes[0], headers: map[chainhash.Hash]*rpcclient.BlockHeaderResult{
		hashes[0]: {Hash: hashes[0].String(), MerkleRoot: blocks[0].Header.MerkleRoot.String()},
	}}
	fetch := &fakeFetcher{blocks: map[chainhash.Hash]*chain.Block{hashes[0]: blocks[0]}}

	st, hl := newTestStoreAndHL(t)
	idx := New(st, hl, fetch, rpc, &netparams.MainNetParams, false, false, 1)

	if _, err := idx.Update(); err != nil {
		t.Fatal(err)
	}
	result, err := idx.Update()
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Added) != 0 || len(result.Removed) != 0 {
		t.Fatal("expected a no-op second Update when already at the node's best hash")
	}
}
