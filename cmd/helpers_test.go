package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/JadedBlueEyes/libretto/testutil"
)

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default between runs, since cobra
// keeps parsed values and Changed marks on the shared command tree.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	rootCmd.Flags().VisitAll(reset)
	for _, sub := range rootCmd.Commands() {
		sub.Flags().VisitAll(reset)
	}
}

// importedDB imports the lounge fixture into a fresh database and returns
// the database path.
func importedDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LIBRETTO_CACHE_DIR", filepath.Join(dir, "cache"))
	dump := testutil.CreateRoomDumpFixture(t, dir)
	db := filepath.Join(dir, "libretto.db")
	if out, err := runCLI(t, "--db", db, "import", dump); err != nil {
		t.Fatalf("import failed: %v\n%s", err, out)
	}
	return db
}
