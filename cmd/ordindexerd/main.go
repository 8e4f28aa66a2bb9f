// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// ordindexerd is the indexer daemon: it follows a node's best chain,
// reassembles inscriptions, tracks their moves and bel-20 token
// balances, mirrors the node's mempool, and serves all of it back out
// over REST and gRPC. Its bootstrap sequence is grounded on
// apiserver/main.go's config.Parse -> database.Connect -> jsonrpc.Connect
// -> server.Start -> spawn(startSync) -> <-interrupt shape, adapted to
// this package's own constructor set in place of apiserver's.
package main

import (
	"fmt"
	"os"

	"github.com/kaspanet/ordindexer/config"
	"github.com/kaspanet/ordindexer/internal/migrations"
	"github.com/kaspanet/ordindexer/internal/ordlog"
	"github.com/kaspanet/ordindexer/internal/store"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	defer handlePanic()

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}

	logFile, errLogFile := cfg.LogFilePaths()
	ordlog.InitLogRotators(logFile, errLogFile)
	ordlog.SetLogLevels(cfg.LogLevel)
	for _, spec := range cfg.Debug {
		if err := ordlog.ParseAndSetDebugLevels(spec); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return 1
		}
	}

	if err := migrations.Run(cfg.AuxDSN, cfg.AuxMigrationsDir, mainLog); err != nil {
		mainLog.Errorf("migrations: %s", err)
		return 1
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		mainLog.Errorf("opening store: %s", err)
		return 1
	}
	defer st.Close()

	k, err := newOrdindexerd(cfg, st)
	if err != nil {
		mainLog.Errorf("%s", err)
		return 1
	}

	k.start()
	defer k.stop()

	mainLog.Infof("ordindexerd started, network %s", cfg.Network)

	<-interruptListener()
	mainLog.Info("received interrupt, shutting down")

	return 0
}
