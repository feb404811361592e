package internal

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDetectStoragePaths(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Setenv("XDG_DATA_HOME", "")
		t.Setenv("XDG_CACHE_HOME", "")
	}
	paths, err := DetectStoragePaths()
	if err != nil {
		t.Fatalf("DetectStoragePaths() error = %v", err)
	}

	if paths.BasePath == "" {
		t.Error("BasePath should not be empty")
	}
	if paths.CacheDir == "" {
		t.Error("CacheDir should not be empty")
	}

	home, _ := os.UserHomeDir()
	expectedBase := ""
	switch runtime.GOOS {
	case "darwin":
		expectedBase = filepath.Join(home, "Library/Application Support/libretto")
	case "linux":
		expectedBase = filepath.Join(home, ".local/share/libretto")
	}
	if expectedBase != "" && paths.BasePath != expectedBase {
		t.Errorf("BasePath = %v, want %v", paths.BasePath, expectedBase)
	}
}

func TestDetectStoragePaths_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG directories only apply on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	paths, err := DetectStoragePaths()
	if err != nil {
		t.Fatalf("DetectStoragePaths() error = %v", err)
	}
	if paths.BasePath != filepath.Join(dir, "data", "libretto") {
		t.Errorf("BasePath = %v", paths.BasePath)
	}
	if paths.CacheDir != filepath.Join(dir, "cache", "libretto") {
		t.Errorf("CacheDir = %v", paths.CacheDir)
	}
}

func TestDatabasePath(t *testing.T) {
	paths := StoragePaths{BasePath: filepath.Join(t.TempDir(), "libretto")}

	if got, want := paths.GetDatabasePath(), filepath.Join(paths.BasePath, "libretto.db"); got != want {
		t.Errorf("GetDatabasePath() = %v, want %v", got, want)
	}
	if paths.DatabaseExists() {
		t.Error("DatabaseExists() should be false before the database is created")
	}

	if err := os.MkdirAll(paths.BasePath, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.GetDatabasePath(), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if !paths.DatabaseExists() {
		t.Error("DatabaseExists() should be true once the file exists")
	}
}
