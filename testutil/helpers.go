package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// CacheDir returns a fresh, not yet created cache directory inside the
// test's temporary directory.
func CacheDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cache")
}

// JSONMarshal marshals v or fails the test.
func JSONMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal JSON: %v", err)
	}
	return data
}

// WriteJSON marshals v into path or fails the test.
func WriteJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	if err := os.WriteFile(path, JSONMarshal(t, v), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
