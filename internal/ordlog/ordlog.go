// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ordlog wires a subsystem logger per component of the
// indexer (the Store, ChainIndexer, InscriptionReassembler,
// MoveTracker, TokenEngine, ReorgBuffer, Mempool, Fetcher and
// HeaderList) on top of a single rotated-file backend, the same shape
// the teacher's logger package uses for its own per-subsystem loggers.
package ordlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jrick/logrotate/rotator"
	"github.com/kaspanet/ordindexer/internal/logs"
)

type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	if initiated {
		os.Stdout.Write(p)
		LogRotator.Write(p)
	}
	return len(p), nil
}

type errLogWriter struct{}

func (errLogWriter) Write(p []byte) (n int, err error) {
	if initiated {
		os.Stdout.Write(p)
		ErrLogRotator.Write(p)
	}
	return len(p), nil
}

// Subsystem tags. Loggers can not be used before InitLogRotators has
// been called during startup.
const (
	MAIN = "MAIN" // cmd/ordindexerd, the main loop
	CNFG = "CNFG" // config
	STOR = "STOR" // C1 Store
	HDRL = "HDRL" // C2 HeaderList
	FTCH = "FTCH" // C3 Fetcher
	INDX = "INDX" // C4 ChainIndexer
	RASM = "RASM" // C5 InscriptionReassembler
	MOVT = "MOVT" // C6 MoveTracker
	TOKN = "TOKN" // C7 TokenEngine
	RORG = "RORG" // C8 TempBuffer/ReorgHandler
	MEMP = "MEMP" // C9 Mempool
	STAT = "STAT" // C10 ScriptStats/UTXO cache
	REST = "REST" // peripheral REST adapter
	GRPC = "GRPC" // peripheral gRPC adapter
)

var (
	backendLog = logs.NewBackend([]*logs.BackendWriter{
		logs.NewAllLevelsBackendWriter(logWriter{}),
		logs.NewErrorBackendWriter(errLogWriter{}),
	})

	// LogRotator rotates the all-levels log. Closed on shutdown.
	LogRotator *rotator.Rotator
	// ErrLogRotator rotates the errors-and-above log. Closed on shutdown.
	ErrLogRotator *rotator.Rotator

	initiated bool

	subsystemLoggers = map[string]*logs.Logger{
		MAIN: backendLog.Logger(MAIN),
		CNFG: backendLog.Logger(CNFG),
		STOR: backendLog.Logger(STOR),
		HDRL: backendLog.Logger(HDRL),
		FTCH: backendLog.Logger(FTCH),
		INDX: backendLog.Logger(INDX),
		RASM: backendLog.Logger(RASM),
		MOVT: backendLog.Logger(MOVT),
		TOKN: backendLog.Logger(TOKN),
		RORG: backendLog.Logger(RORG),
		MEMP: backendLog.Logger(MEMP),
		STAT: backendLog.Logger(STAT),
		REST: backendLog.Logger(REST),
		GRPC: backendLog.Logger(GRPC),
	}
)

// InitLogRotators wires the logging rotators to write to logFile and
// errLogFile, creating both directories as needed. Must be called
// before any subsystem logger is used.
func InitLogRotators(logFile, errLogFile string) {
	initiated = true
	LogRotator = initLogRotator(logFile)
	ErrLogRotator = initLogRotator(errLogFile)
}

func initLogRotator(logFile string) *rotator.Rotator {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %s\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %s\n", err)
		os.Exit(1)
	}
	return r
}

// Get returns the logger registered for tag.
func Get(tag string) (*logs.Logger, bool) {
	l, ok := subsystemLoggers[tag]
	return l, ok
}

// SetLogLevel sets the log level for a single subsystem. Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := logs.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets every subsystem logger to logLevel.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns the sorted list of known subsystem tags.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for id := range subsystemLoggers {
		subsystems = append(subsystems, id)
	}
	sort.Strings(subsystems)
	return subsystems
}

// ParseAndSetDebugLevels parses a "level" or "tag=level,tag=level"
// spec and applies it, the same syntax the teacher's CLI accepts for
// --debuglevel.
func ParseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if _, ok := logs.LevelFromString(debugLevel); !ok {
			return fmt.Errorf("the specified debug level [%s] is invalid", debugLevel)
		}
		SetLogLevels(debugLevel)
		return nil
	}

	for _, pair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(pair, "=") {
			return fmt.Errorf("the specified debug level contains an invalid subsystem/level pair [%s]", pair)
		}
		fields := strings.SplitN(pair, "=", 2)
		subsysID, logLevel := fields[0], fields[1]
		if _, ok := Get(subsysID); !ok {
			return fmt.Errorf("the specified subsystem [%s] is invalid -- supported subsystems %s",
				subsysID, strings.Join(SupportedSubsystems(), ", "))
		}
		if _, ok := logs.LevelFromString(logLevel); !ok {
			return fmt.Errorf("the specified debug level [%s] is invalid", logLevel)
		}
		SetLogLevel(subsysID, logLevel)
	}
	return nil
}

// PickNoun returns the singular or plural form of a noun depending on n.
func PickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
