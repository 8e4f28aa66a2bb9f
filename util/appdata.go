package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppDataDir returns the default per-OS application data directory for
// appName, reconstructed from the btcd lineage's familiar call-site
// contract (used throughout cmd/txgen, kasparovd, etc. as
// util.AppDataDir(name, false)); this copy of the pack never carried
// the helper's own source file. roaming is honored only on Windows.
func AppDataDir(appName string, roaming bool) string {
	if appName == "" || appName == "." {
		return "."
	}

	appName = strings.TrimPrefix(appName, ".")
	appNameUpper := strings.ToUpper(appName[:1]) + appName[1:]
	appNameLower := strings.ToLower(appName)

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if roaming {
			appData = os.Getenv("APPDATA")
		} else {
			appData = os.Getenv("LOCALAPPDATA")
			if appData == "" {
				appData = os.Getenv("APPDATA")
			}
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			return filepath.Join(home, "Library", "Application Support", appNameUpper)
		}
	case "plan9":
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			return filepath.Join(home, appNameLower)
		}
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome != "" {
			return filepath.Join(dataHome, appNameLower)
		}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			return filepath.Join(home, "."+appNameLower)
		}
	}

	return "."
}
