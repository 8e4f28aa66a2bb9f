package config

import "testing"

func baseArgs(extra ...string) []string {
	args := []string{
		"--blocks-dir", "/data/blocks",
		"--daemon-rpc-addr", "127.0.0.1:8332",
		"--cookie-file", "/data/.cookie",
	}
	return append(args, extra...)
}

func TestParseArgsAppliesDefaults(t *testing.T) {
	cfg, err := ParseArgs(baseArgs())
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.PrecacheThreads != defaultPrecacheThreads {
		t.Errorf("expected default precache threads %d, got %d", defaultPrecacheThreads, cfg.PrecacheThreads)
	}
	if cfg.MempoolRecentTxsSize != defaultMempoolRecentTxsSize {
		t.Errorf("expected default mempool recent txs size %d, got %d", defaultMempoolRecentTxsSize, cfg.MempoolRecentTxsSize)
	}
	if cfg.NetParams() == nil {
		t.Error("expected NetParams to resolve for the default network")
	}
}

func TestParseArgsRejectsMissingFetchSource(t *testing.T) {
	_, err := ParseArgs([]string{
		"--daemon-rpc-addr", "127.0.0.1:8332",
		"--cookie-file", "/data/.cookie",
	})
	if err == nil {
		t.Fatal("expected an error when neither --blocks-dir, --daemon-dir, nor --jsonrpc-import is set")
	}
}

func TestParseArgsRequiresRPCAddr(t *testing.T) {
	_, err := ParseArgs([]string{
		"--blocks-dir", "/data/blocks",
		"--cookie-file", "/data/.cookie",
	})
	if err == nil {
		t.Fatal("expected an error when --daemon-rpc-addr is missing")
	}
}

func TestParseArgsRequiresAuth(t *testing.T) {
	_, err := ParseArgs([]string{
		"--blocks-dir", "/data/blocks",
		"--daemon-rpc-addr", "127.0.0.1:8332",
	})
	if err == nil {
		t.Fatal("expected an error when neither --cookie-file nor rpc-user/rpc-password is set")
	}
}

func TestParseArgsAcceptsRPCUserPassword(t *testing.T) {
	_, err := ParseArgs([]string{
		"--blocks-dir", "/data/blocks",
		"--daemon-rpc-addr", "127.0.0.1:8332",
		"--rpc-user", "alice",
		"--rpc-password", "secret",
	})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
}

func TestParseArgsRejectsAddressSearchWithLightMode(t *testing.T) {
	_, err := ParseArgs(baseArgs("--light-mode", "--address-search"))
	if err == nil {
		t.Fatal("expected an error combining --light-mode and --address-search")
	}
}

func TestParseArgsRejectsBadNetwork(t *testing.T) {
	_, err := ParseArgs(baseArgs("--network", "not-a-network"))
	if err == nil {
		t.Fatal("expected an error for an unrecognized --network value")
	}
}

func TestParseArgsRejectsPrecacheWithoutThreads(t *testing.T) {
	_, err := ParseArgs(baseArgs("--precache-scripts", "/data/scripts.txt", "--precache-threads", "0"))
	if err == nil {
		t.Fatal("expected an error for zero --precache-threads with --precache-scripts set")
	}
}

func TestLogFilePaths(t *testing.T) {
	cfg := &Config{LogDir: "/var/log/ordindexerd"}
	logFile, errLogFile := cfg.LogFilePaths()
	if logFile != "/var/log/ordindexerd/ordindexerd.log" {
		t.Errorf("unexpected log file path: %s", logFile)
	}
	if errLogFile != "/var/log/ordindexerd/ordindexerd_err.log" {
		t.Errorf("unexpected err log file path: %s", errLogFile)
	}
}
