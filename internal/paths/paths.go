package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Subdirectory name under the XDG base directories.
	appName = "cbuild"

	// Configuration file looked up in the working directory.
	LocalConfigFile = "cbuild.yaml"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Directory holding user-level configuration.
//
//	Linux:   $XDG_CONFIG_HOME/cbuild or ~/.config/cbuild
//	macOS:   ~/Library/Application Support/cbuild
func Config() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// Path to the user-level configuration file.
func ConfigFile() string {
	return filepath.Join(Config(), "config.yaml")
}

// Configuration files in lookup order, most specific first.
func ConfigFiles() []string {
	return []string{LocalConfigFile, ConfigFile()}
}

// Directory for intermediate build files.
//
//	Linux:   $XDG_CACHE_HOME/cbuild or ~/.cache/cbuild
//	macOS:   ~/Library/Caches/cbuild
func Cache() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// Path of the OCI archive produced for the run with the given ID.
func Archive(runID string) string {
	return filepath.Join(Cache(), "archives", runID+".tar")
}
