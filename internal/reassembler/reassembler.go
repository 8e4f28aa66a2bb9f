package reassembler

import (
	"sort"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/netparams"
	"github.com/kaspanet/ordindexer/util"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

// InscriptionTemplate is one fully reassembled inscription, ready for
// MoveTracker/TokenEngine to consume.
type InscriptionTemplate struct {
	GenesisTxID   chainhash.Hash
	LocationTxID  chainhash.Hash
	ContentType   []byte
	Body          []byte
	Owner         string
	Value         uint64
	Height        uint64
	TxIndex       int
}

// DigestedBlock is the output of FirstPass: the chains still pending
// at the end of the block (keyed by the outpoint a continuation must
// spend), the inscriptions fully completed within the block, and the
// transactions that first pass could not resolve one way or the other
// without cross-block context ("rest").
type DigestedBlock struct {
	Height    uint64
	Partial   map[chain.Outpoint]*Chain
	Completed []InscriptionTemplate
	Rest      []restTx
}

type restTx struct {
	tx      *chain.Tx
	txIndex int
}

// FirstPass processes block in isolation (no cross-block state),
// discovering self-contained envelope chains. It runs independently
// per block and is safe to call concurrently across blocks since it
// never touches shared state.
func FirstPass(block *chain.Block, height uint64, netParams *netparams.Params) *DigestedBlock {
	digested := &DigestedBlock{
		Height:  height,
		Partial: make(map[chain.Outpoint]*Chain),
	}
	localCache := make(map[chain.Outpoint]*Chain)

	for txIndex, tx := range block.Transactions {
		if len(tx.TxIn) == 0 {
			continue
		}
		prevOut := tx.TxIn[0].PreviousOutpoint
		txID := *tx.TxID()

		if c, ok := localCache[prevOut]; ok {
			delete(localCache, prevOut)
			pushes, err := DecodePushes(tx.TxIn[0].SignatureScript)
			if err != nil {
				continue
			}
			c.processContinuation(pushes)
			finishOrReinsert(c, tx, txIndex, height, digested, localCache, netParams)
			continue
		}

		pushes, err := DecodePushes(tx.TxIn[0].SignatureScript)
		if err != nil {
			digested.Rest = append(digested.Rest, restTx{tx: tx, txIndex: txIndex})
			continue
		}
		c := &Chain{}
		c.processGenesis(pushes, txID)
		if c.State == StateNone {
			digested.Rest = append(digested.Rest, restTx{tx: tx, txIndex: txIndex})
			continue
		}
		finishOrReinsert(c, tx, txIndex, height, digested, localCache, netParams)
	}

	for outpoint, c := range localCache {
		digested.Partial[outpoint] = c
	}
	return digested
}

func finishOrReinsert(c *Chain, tx *chain.Tx, txIndex int, height uint64, digested *DigestedBlock, cache map[chain.Outpoint]*Chain, netParams *netparams.Params) {
	switch c.State {
	case StateComplete:
		digested.Completed = append(digested.Completed, buildTemplate(c, tx, txIndex, height, netParams))
	case StatePartial:
		cache[chain.NewOutpoint(tx.TxID(), 0)] = c
	}
}

func buildTemplate(c *Chain, tx *chain.Tx, txIndex int, height uint64, netParams *netparams.Params) InscriptionTemplate {
	var owner string
	var value uint64
	if len(tx.TxOut) > 0 {
		value = tx.TxOut[0].Value
		if netParams != nil {
			if addr, ok := util.AddressForScript(tx.TxOut[0].PkScript, netParams); ok {
				owner = addr
			}
		}
	}
	return InscriptionTemplate{
		GenesisTxID:  c.GenesisTxID,
		LocationTxID: *tx.TxID(),
		ContentType:  c.ContentType,
		Body:         c.Body.Bytes(),
		Owner:        owner,
		Value:        value,
		Height:       height,
		TxIndex:      txIndex,
	}
}

// Reassembler threads cachedPartial across block boundaries and
// assigns inscription numbers in (height, tx-index) order using a
// shared monotonic counter.
type Reassembler struct {
	netParams     *netparams.Params
	cachedPartial map[chain.Outpoint]*Chain
	nextNumber    uint64
}

// New constructs a Reassembler starting from inscription number 0.
func New(netParams *netparams.Params) *Reassembler {
	return &Reassembler{
		netParams:     netParams,
		cachedPartial: make(map[chain.Outpoint]*Chain),
	}
}

// SetNextNumber overrides the next inscription number to assign,
// restoring state after a restart or reorg rewind.
func (r *Reassembler) SetNextNumber(n uint64) {
	r.nextNumber = n
}

// NextNumber returns the next inscription number that will be
// assigned.
func (r *Reassembler) NextNumber() uint64 {
	return r.nextNumber
}

// NumberedInscription pairs a completed template with its assigned
// global inscription number.
type NumberedInscription struct {
	InscriptionTemplate
	Number uint64
}

// SecondPass merges a DigestedBlock into the Reassembler's
// cross-block state: it replays Rest transactions against the
// carried-forward cachedPartial (continuations from before this
// block), folds in the block's self-contained partial chains for
// future blocks, and returns every inscription completed in this
// block -- both from FirstPass and from cross-block replay -- in
// ascending tx-index order with inscription numbers assigned.
func (r *Reassembler) SecondPass(digested *DigestedBlock, block *chain.Block) []NumberedInscription {
	completed := append([]InscriptionTemplate(nil), digested.Completed...)

	for _, rt := range digested.Rest {
		tx := rt.tx
		prevOut := tx.TxIn[0].PreviousOutpoint
		c, ok := r.cachedPartial[prevOut]
		if !ok {
			continue
		}
		delete(r.cachedPartial, prevOut)

		pushes, err := DecodePushes(tx.TxIn[0].SignatureScript)
		if err != nil {
			continue
		}
		c.processContinuation(pushes)

		switch c.State {
		case StateComplete:
			completed = append(completed, buildTemplate(c, tx, rt.txIndex, digested.Height, r.netParams))
		case StatePartial:
			r.cachedPartial[chain.NewOutpoint(tx.TxID(), 0)] = c
		}
	}

	for outpoint, c := range digested.Partial {
		r.cachedPartial[outpoint] = c
	}

	sort.Slice(completed, func(i, j int) bool { return completed[i].TxIndex < completed[j].TxIndex })

	numbered := make([]NumberedInscription, len(completed))
	for i, t := range completed {
		numbered[i] = NumberedInscription{InscriptionTemplate: t, Number: r.nextNumber}
		r.nextNumber++
	}
	return numbered
}
