package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// readCookie parses a bitcoind-style RPC auth cookie file: a single
// line of "user:password". No pack source retrieves this format (the
// node-side cookie writer lives outside this repo); the format itself
// is a fixed, documented convention rather than a library surface, so
// there is nothing to ground this against beyond the convention.
func readCookie(path string) (user, pass string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "reading cookie file %s", path)
	}
	line := strings.TrimSpace(string(raw))
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return "", "", errors.Errorf("cookie file %s is not in user:password form", path)
	}
	return parts[0], parts[1], nil
}
