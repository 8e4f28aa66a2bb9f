// Package config parses the indexer's CLI/ini configuration, grounded
// on cmd/txgen/config.go's go-flags.Parser usage and
// kasparov/kasparovd/config/config.go's package-level ActiveConfig()
// accessor.
package config

import (
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/netparams"
	"github.com/kaspanet/ordindexer/util"
)

const (
	defaultLogFilename          = "ordindexerd.log"
	defaultErrLogFilename       = "ordindexerd_err.log"
	defaultMempoolRecentTxsSize = 500
	defaultMempoolBacklogTTL    = 10 // seconds
	defaultPrecacheThreads      = 4
)

var (
	defaultHomeDir  = util.AppDataDir("ordindexerd", false)
	defaultDBPath   = filepath.Join(defaultHomeDir, "db")
	defaultLogDir   = filepath.Join(defaultHomeDir, "logs")
	activeConfig    *Config
)

// Config holds every knob the indexer needs, assembled from spec §6.
type Config struct {
	Network string `long:"network" description:"Network to index: mainnet, testnet, regtest, simnet" default:"mainnet"`

	DBPath      string `long:"db-path" description:"Directory the indexer's own goleveldb tables live under"`
	DaemonDir   string `long:"daemon-dir" description:"Node data directory; satisfies the startup block-source check but is not read otherwise (blocks and the cookie file are not located from it)"`
	BlocksDir   string `long:"blocks-dir" description:"Directory containing the node's raw block files; satisfies the startup block-source check, but the daemon fetches every block over JSON-RPC"`

	DaemonRPCAddr string `long:"daemon-rpc-addr" description:"host:port of the node's JSON-RPC server"`
	CookieFile    string `long:"cookie-file" description:"Path to the node's RPC auth cookie file"`
	RPCUser       string `long:"rpc-user" description:"RPC username, used instead of a cookie file"`
	RPCPassword   string `long:"rpc-password" description:"RPC password, used instead of a cookie file"`

	JSONRPCImport    bool `long:"jsonrpc-import" description:"Satisfies the startup block-source check; blocks are fetched over JSON-RPC whether or not this is set"`
	LightMode        bool `long:"light-mode" description:"Rejected together with --address-search; has no other effect, history and address indexes are always built"`
	AddressSearch    bool `long:"address-search" description:"Maintain the address-prefix search index"`
	IndexUnspendables bool `long:"index-unspendables" description:"Index provably-unspendable (OP_RETURN) outputs' histories too"`

	FirstInscriptionBlock uint64 `long:"first-inscription-block" description:"Height below which envelope scanning and inscription numbering are skipped entirely"`

	PrecacheScripts string `long:"precache-scripts" description:"Path to a script-hash list; only checked at startup (it requires a positive --precache-threads), no cache warmup is performed"`
	PrecacheThreads int    `long:"precache-threads" description:"Worker goroutines writing a block's per-transaction txstore rows during ingest" default:"4"`

	MempoolRecentTxsSize    int `long:"mempool-recent-txs-size" description:"Size of the mempool's recent-transactions ring buffer" default:"500"`
	MempoolBacklogStatsTTL  int `long:"mempool-backlog-stats-ttl" description:"Seconds a cached mempool backlog summary stays valid" default:"10"`

	LogDir     string `long:"log-dir" description:"Directory log files are written to"`
	LogLevel   string `long:"log-level" description:"Default logging level: trace, debug, info, warn, error, critical, off" default:"info"`
	Debug      []string `long:"debug" short:"d" description:"Logging level and subsystems: LEVEL or SUBSYSTEM=LEVEL,..."`

	RESTListen string `long:"rest-listen" description:"HTTP address the REST API listens on"`
	GRPCListen string `long:"grpc-listen" description:"Address the gRPC API listens on"`

	AuxDSN           string `long:"aux-dsn" description:"MySQL DSN for the auxiliary bookkeeping database; auxiliary migrations are skipped entirely when unset"`
	AuxMigrationsDir string `long:"aux-migrations-dir" description:"Directory of golang-migrate source files for the auxiliary database" default:"internal/migrations/sql"`

	netParams *netparams.Params
}

// ActiveConfig returns the most recently parsed configuration.
func ActiveConfig() *Config {
	return activeConfig
}

// NetParams returns the netparams.Params resolved from cfg.Network.
func (cfg *Config) NetParams() *netparams.Params {
	return cfg.netParams
}

// Parse parses os.Args (go-flags, ini-compatible) into a Config, fills
// in defaults, validates cross-field constraints, and resolves the
// network name into netparams.Params.
func Parse() (*Config, error) {
	return ParseArgs(nil)
}

// ParseArgs is Parse with an explicit argument list in place of
// os.Args[1:], passed nil to parse the real command line. Split out so
// tests can exercise validation without touching process-global state.
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{
		DBPath:                 defaultDBPath,
		LogDir:                 defaultLogDir,
		LogLevel:               "info",
		PrecacheThreads:        defaultPrecacheThreads,
		MempoolRecentTxsSize:   defaultMempoolRecentTxsSize,
		MempoolBacklogStatsTTL: defaultMempoolBacklogTTL,
	}

	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		return nil, err
	}

	netType, err := netparams.ParseNetworkType(cfg.Network)
	if err != nil {
		return nil, errors.Wrapf(err, "--network %q", cfg.Network)
	}
	cfg.netParams = netparams.ParamsForNetwork(netType)

	if !cfg.JSONRPCImport && cfg.BlocksDir == "" && cfg.DaemonDir == "" {
		return nil, errors.New("one of --blocks-dir, --daemon-dir, or --jsonrpc-import is required")
	}

	if cfg.DaemonRPCAddr == "" {
		return nil, errors.New("--daemon-rpc-addr is required")
	}

	if cfg.CookieFile == "" && (cfg.RPCUser == "" || cfg.RPCPassword == "") {
		return nil, errors.New("either --cookie-file or both --rpc-user and --rpc-password are required")
	}

	if cfg.LightMode && cfg.AddressSearch {
		return nil, errors.New("--address-search cannot be combined with --light-mode")
	}

	if cfg.PrecacheScripts != "" && cfg.PrecacheThreads <= 0 {
		return nil, errors.New("--precache-threads must be positive when --precache-scripts is set")
	}

	activeConfig = cfg
	return cfg, nil
}

// LogFilePaths returns the default log and error-log file paths under
// cfg.LogDir.
func (cfg *Config) LogFilePaths() (logFile, errLogFile string) {
	return filepath.Join(cfg.LogDir, defaultLogFilename), filepath.Join(cfg.LogDir, defaultErrLogFilename)
}
