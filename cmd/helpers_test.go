package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/fale-com-deus/internal"
	"github.com/iksnae/fale-com-deus/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags puts every flag back to its default. Cobra keeps parsed values,
// --help and --version included, between Execute calls.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// setupDataDir points the app at an empty data directory and makes sure no
// provider key leaks in from the environment
func setupDataDir(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DEEPSEEK_API_KEY", "MISTRAL_API_KEY", "GROQ_API_KEY"} {
		t.Setenv(name, "")
	}
	return testutil.CreateDataDir(t)
}

// seedStorage writes records into the default sqlite store of dir
func seedStorage(t *testing.T, dir string, records map[string]string) {
	t.Helper()
	kv, err := internal.OpenSQLiteKV(filepath.Join(dir, "storage.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteKV() error = %v", err)
	}
	defer kv.Close()
	for k, v := range records {
		if err := kv.Set(k, v); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}
}

// seedLegacy stores the legacy active session and archive fixtures
func seedLegacy(t *testing.T, dir string) {
	t.Helper()
	seedStorage(t, dir, map[string]string{
		internal.KeyActiveSession: testutil.LegacyActiveSessionJSON,
		internal.KeyChatHistory:   testutil.LegacyChatHistoryJSON,
	})
}

// restoreStorage reads back what the commands persisted in dir
func restoreStorage(t *testing.T, dir string) internal.Restored {
	t.Helper()
	kv, err := internal.OpenSQLiteKV(filepath.Join(dir, "storage.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteKV() error = %v", err)
	}
	defer kv.Close()
	_, restored := internal.NewBootstrap(kv).Restore()
	return restored
}

// runCommand executes the root command with args and stdin
func runCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}
