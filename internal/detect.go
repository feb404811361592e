package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// StoragePaths holds the per-user locations of libretto's data
type StoragePaths struct {
	BasePath string // data directory
	CacheDir string // page cache directory
}

// DetectStoragePaths detects the default data locations for the operating
// system. XDG_DATA_HOME and XDG_CACHE_HOME are honored on Linux.
func DetectStoragePaths() (StoragePaths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return StoragePaths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	var basePath, cacheDir string
	switch runtime.GOOS {
	case "darwin":
		basePath = filepath.Join(home, "Library/Application Support/libretto")
		cacheDir = filepath.Join(home, "Library/Caches/libretto")
	case "linux":
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			dataHome = filepath.Join(home, ".local/share")
		}
		cacheHome := os.Getenv("XDG_CACHE_HOME")
		if cacheHome == "" {
			cacheHome = filepath.Join(home, ".cache")
		}
		basePath = filepath.Join(dataHome, "libretto")
		cacheDir = filepath.Join(cacheHome, "libretto")
	case "windows":
		appData := os.Getenv("LocalAppData")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Local")
		}
		basePath = filepath.Join(appData, "libretto")
		cacheDir = filepath.Join(basePath, "cache")
	default:
		return StoragePaths{}, fmt.Errorf("unsupported OS: %s (only macOS, Linux and Windows are supported)", runtime.GOOS)
	}

	return StoragePaths{BasePath: basePath, CacheDir: cacheDir}, nil
}

// GetDatabasePath returns the path to the event database
func (sp StoragePaths) GetDatabasePath() string {
	return filepath.Join(sp.BasePath, "libretto.db")
}

// DatabaseExists checks if the event database exists
func (sp StoragePaths) DatabaseExists() bool {
	_, err := os.Stat(sp.GetDatabasePath())
	return err == nil
}
