// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/kaspanet/ordindexer/config"
	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/chainindexer"
	"github.com/kaspanet/ordindexer/internal/fetcher"
	"github.com/kaspanet/ordindexer/internal/grpcapi"
	"github.com/kaspanet/ordindexer/internal/headerlist"
	"github.com/kaspanet/ordindexer/internal/movetracker"
	"github.com/kaspanet/ordindexer/internal/ordlog"
	"github.com/kaspanet/ordindexer/internal/ordmempool"
	"github.com/kaspanet/ordindexer/internal/reassembler"
	"github.com/kaspanet/ordindexer/internal/reorgbuffer"
	"github.com/kaspanet/ordindexer/internal/restapi"
	"github.com/kaspanet/ordindexer/internal/rpcclient"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/internal/tokenengine"
	"github.com/kaspanet/ordindexer/util/chainhash"
	"github.com/kaspanet/ordindexer/util/panics"
)

const (
	pollInterval    = 10 * time.Second
	mempoolInterval = 500 * time.Millisecond
)

// ordindexerd is a wrapper for all of the indexer's long-running
// services: the chain-following pipeline, the mempool mirror, and the
// REST/gRPC query adapters. Mirrors the teacher's kaspad struct: a
// handful of owned services plus atomic started/shutdown guards.
type ordindexerd struct {
	cfg *config.Config

	st      *store.Store
	headers *headerlist.List
	fetch   *fetcher.Fetcher
	rpc     *rpcclient.Client

	indexer     *chainindexer.Indexer
	reassembler *reassembler.Reassembler
	tracker     *movetracker.Tracker
	engine      *tokenengine.Engine
	reorg       *reorgbuffer.Buffer
	mempool     *ordmempool.Mempool

	restShutdown func()
	grpcShutdown func()

	doneChan chan struct{}

	started, shutdown int32
}

// start launches the polling loop and the peripheral adapters.
func (k *ordindexerd) start() {
	if atomic.AddInt32(&k.started, 1) != 1 {
		return
	}
	mainLog.Info("starting ordindexerd")

	if k.cfg.RESTListen != "" {
		k.restShutdown = restapi.Start(k.cfg.RESTListen, &restapi.Deps{
			Store: k.st, Headers: k.headers, Mempool: k.mempool, Log: mainLog,
		})
	}
	if k.cfg.GRPCListen != "" {
		shutdown, err := grpcapi.Start(k.cfg.GRPCListen, &grpcapi.Deps{
			Store: k.st, Headers: k.headers, Mempool: k.mempool, Log: mainLog,
		})
		if err != nil {
			mainLog.Errorf("grpc api failed to start: %s", err)
		} else {
			k.grpcShutdown = shutdown
		}
	}

	spawn(func() { k.syncLoop() })
	spawn(func() { k.mempoolLoop() })
}

// stop signals both loops to exit and shuts down the peripheral
// adapters. Mirrors kaspad.stop's idempotent-shutdown guard.
func (k *ordindexerd) stop() error {
	if atomic.AddInt32(&k.shutdown, 1) != 1 {
		mainLog.Info("ordindexerd is already shutting down")
		return nil
	}
	mainLog.Warn("ordindexerd shutting down")

	close(k.doneChan)

	if k.restShutdown != nil {
		k.restShutdown()
	}
	if k.grpcShutdown != nil {
		k.grpcShutdown()
	}
	return nil
}

func (k *ordindexerd) syncLoop() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-k.doneChan:
			return
		case <-ticker.C:
			if err := k.pollOnce(); err != nil {
				mainLog.Errorf("sync: %s", err)
			}
		}
	}
}

func (k *ordindexerd) mempoolLoop() {
	ticker := time.NewTicker(mempoolInterval)
	defer ticker.Stop()

	for {
		select {
		case <-k.doneChan:
			return
		case <-ticker.C:
			if err := k.mempool.Update(); err != nil {
				mainLog.Errorf("mempool: %s", err)
			}
		}
	}
}

// pollOnce runs one ChainIndexer.Update cycle: on a reorg it rewinds
// the shadow buffer first, then walks every newly connected block
// through the reassembler (only from FirstInscriptionBlock upward),
// move tracker, and token engine in height
// order, persisting the running inscription-number counter as it
// goes. Mirrors the original implementation's single-threaded
// index_blocks/apply loop, adapted to this package's explicit
// Indexer/Reassembler/Tracker/Engine split.
func (k *ordindexerd) pollOnce() error {
	result, err := k.indexer.Update()
	if err != nil {
		return err
	}

	if len(result.Removed) > 0 {
		removedBlocks := make([]reorgbuffer.Block, 0, len(result.Removed))
		for _, node := range result.Removed {
			block, err := k.fetch.FetchByHash(&node.Hash)
			if err != nil {
				return err
			}
			removedBlocks = append(removedBlocks, reorgbuffer.Block{Height: node.Height, Txs: block.Transactions})
		}
		if err := k.reorg.Reorg(removedBlocks); err != nil {
			return err
		}
		if next, found, err := k.lastInscriptionNumber(); err == nil && found {
			k.reassembler.SetNextNumber(next)
		}
	}

	for _, node := range result.Added {
		if err := k.reorg.SnapshotLastNumber(node.Height); err != nil {
			return err
		}

		block, err := k.fetch.FetchByHash(&node.Hash)
		if err != nil {
			return err
		}

		var completed []reassembler.NumberedInscription
		if node.Height >= k.cfg.FirstInscriptionBlock {
			digested := reassembler.FirstPass(block, node.Height, k.cfg.NetParams())
			completed = k.reassembler.SecondPass(digested, block)
		}

		input := movetracker.BlockInput{Height: node.Height, Block: block, Completed: completed}
		if err := k.tracker.ProcessBlocks([]movetracker.BlockInput{input}); err != nil {
			return err
		}

		for _, c := range completed {
			genesis := outpointAtVoutZero(c.GenesisTxID)
			location := outpointAtVoutZero(c.LocationTxID)
			k.engine.ParseTokenAction(c.Height, c.TxIndex, c.Owner, string(c.ContentType), c.Body, genesis, location)
		}

		if err := k.persistInscriptionNumber(k.reassembler.NextNumber()); err != nil {
			return err
		}
	}

	if len(result.Added) > 0 {
		if err := k.engine.Commit(); err != nil {
			return err
		}
	}

	return nil
}

func (k *ordindexerd) lastInscriptionNumber() (uint64, bool, error) {
	raw, found, err := k.st.Inscription.Get(store.LastInscriptionNumberKey)
	if err != nil || !found {
		return 0, found, err
	}
	return binary.LittleEndian.Uint64(raw), true, nil
}

func (k *ordindexerd) persistInscriptionNumber(next uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, next)
	return k.st.Inscription.Put(store.LastInscriptionNumberKey, buf)
}

// newOrdindexerd wires every component together against one
// store, the way newKaspad builds a *kaspad from its constituent
// services.
func newOrdindexerd(cfg *config.Config, st *store.Store) (*ordindexerd, error) {
	headers := headerlist.New(st.TxStore)

	user, pass := cfg.RPCUser, cfg.RPCPassword
	if cfg.CookieFile != "" {
		var err error
		user, pass, err = readCookie(cfg.CookieFile)
		if err != nil {
			return nil, err
		}
	}
	rpc := rpcclient.New(cfg.DaemonRPCAddr, user, pass)

	fetch := fetcher.New(rpc, cfg.BlocksDir, magicForNetwork(cfg.Network))

	engine := tokenengine.New(st)
	if err := engine.LoadLiveTransfers(); err != nil {
		return nil, err
	}

	tracker := movetracker.New(st, cfg.NetParams(), engine)

	reorg := reorgbuffer.New(st)
	tracker.SetShadowRecorder(reorg)

	indexer := chainindexer.New(st, headers, fetch, rpc, cfg.NetParams(),
		cfg.AddressSearch, cfg.IndexUnspendables, cfg.PrecacheThreads)
	if indexerLog, ok := ordlog.Get(ordlog.INDX); ok {
		indexer.SetLogger(indexerLog)
	}

	mp := ordmempool.New(st, rpc, fetch, cfg.MempoolRecentTxsSize,
		time.Duration(cfg.MempoolBacklogStatsTTL)*time.Second)

	k := &ordindexerd{
		cfg:         cfg,
		st:          st,
		headers:     headers,
		fetch:       fetch,
		rpc:         rpc,
		indexer:     indexer,
		reassembler: reassembler.New(cfg.NetParams()),
		tracker:     tracker,
		engine:      engine,
		reorg:       reorg,
		mempool:     mp,
		doneChan:    make(chan struct{}),
	}

	if next, found, err := k.lastInscriptionNumber(); err != nil {
		return nil, err
	} else if found {
		k.reassembler.SetNextNumber(next)
	}

	return k, nil
}

func magicForNetwork(network string) fetcher.BlockFileMagic {
	switch network {
	case "testnet":
		return fetcher.BlockFileMagic{0x0b, 0x11, 0x09, 0x07}
	case "regtest":
		return fetcher.BlockFileMagic{0xfa, 0xbf, 0xb5, 0xda}
	default:
		return fetcher.BlockFileMagic{0xf9, 0xbe, 0xb4, 0xd9}
	}
}

// outpointAtVoutZero builds the genesis/location outpoint for an
// inscription. Ordinal convention always places both at vout 0, so
// the reassembler's NumberedInscription carries only the txid.
func outpointAtVoutZero(txid chainhash.Hash) chain.Outpoint {
	return chain.Outpoint{TxID: txid, Vout: 0}
}

func handlePanic() {
	panics.HandlePanic(mainLog, nil)
}
