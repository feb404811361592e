package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantErr: false,
		},
		{
			name:    "help flag",
			args:    []string{"--help"},
			wantErr: false,
		},
		{
			name:    "unknown command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRootCommand_ConfigFile(t *testing.T) {
	db := importedDB(t)
	path := filepath.Join(t.TempDir(), "libretto.yaml")
	data := "database:\n  path: " + db + "\ntimeline:\n  page_limit: 2\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--config", path, "show", "#lounge:example.org")
	if err != nil {
		t.Fatalf("show failed: %v\n%s", err, out)
	}
	if cfg.Timeline.PageLimit != 2 {
		t.Fatalf("expected page limit from config file, got %d", cfg.Timeline.PageLimit)
	}
	if !strings.Contains(out, "Older history: --from t") {
		t.Fatalf("expected a short page with a continuation token, got:\n%s", out)
	}
}

func TestRootCommand_MissingConfig(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "list")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestRootCommand_MissingDatabase(t *testing.T) {
	_, err := runCLI(t, "--db", filepath.Join(t.TempDir(), "missing.db"), "list")
	if err == nil || !strings.Contains(err.Error(), "libretto import") {
		t.Fatalf("expected hint to import first, got %v", err)
	}
}
