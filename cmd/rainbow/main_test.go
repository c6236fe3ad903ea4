package main

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rainbow/internal/chain"
	"rainbow/internal/config"
	"rainbow/internal/seeds"
	"rainbow/internal/store"
	"rainbow/internal/table"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// testConfig points every workspace path into a fresh temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := config.DefaultConfig()
	c.Wordlist.Path = filepath.Join(dir, "passwords.txt")
	c.Table.Dir = filepath.Join(dir, "tables")
	c.Store.Path = filepath.Join(dir, "rainbow.db")
	return c
}

// createCmdForTest mirrors createCmd's flag set without sharing its state.
func createCmdForTest(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().Int("pass-length", 6, "")
	cmd.Flags().Int("chain-count", 0, "")
	cmd.Flags().Int("chain-length", 0, "")
	cmd.Flags().StringP("path", "p", "", "")
	cmd.Flags().String("wordlist", "", "")
	cmd.Flags().Bool("no-progress", false, "")
	return cmd
}

func mustSetFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	if err := cmd.Flags().Set(name, value); err != nil {
		t.Fatalf("failed to set --%s: %v", name, err)
	}
}

func TestCommandWiring(t *testing.T) {
	want := []string{"filter", "create", "search", "tables", "history", "status", "config"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("rootCmd is missing subcommand %q", name)
		}
	}
}

func TestFilterUsageLine(t *testing.T) {
	if filterUsage != "Usage: rainbow filter <PLAINTEXT_LENGTH>" {
		t.Fatalf("usage line changed: %q", filterUsage)
	}
}

func TestRunFilterMatches(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	if err := os.WriteFile(cfg.Wordlist.Path, []byte("abc\nde\nfgh\nij\n"), 0644); err != nil {
		t.Fatalf("failed to write wordlist: %v", err)
	}

	output := captureOutput(t, func() {
		if err := runFilter(&cobra.Command{}, []string{"3"}); err != nil {
			t.Errorf("runFilter returned error: %v", err)
		}
	})

	if output != "abc\nfgh\n" {
		t.Fatalf("expected matching lines only, got %q", output)
	}
}

func TestRunFilterMissingWordlist(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	var err error
	output := captureOutput(t, func() {
		err = runFilter(&cobra.Command{}, []string{"3"})
	})

	if err == nil {
		t.Fatal("expected error for missing wordlist")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
	if output != "" {
		t.Errorf("expected no output on failure, got %q", output)
	}
}

func TestRunCreateWritesTable(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	out := filepath.Join(cfg.Table.Dir, "demo.rt")
	cmd := createCmdForTest(t)
	mustSetFlag(t, cmd, "path", out)
	mustSetFlag(t, cmd, "pass-length", "5")
	mustSetFlag(t, cmd, "chain-count", "30")
	mustSetFlag(t, cmd, "chain-length", "40")
	mustSetFlag(t, cmd, "no-progress", "true")

	output := captureOutput(t, func() {
		if err := runCreate(cmd, nil); err != nil {
			t.Errorf("runCreate returned error: %v", err)
		}
	})
	if !strings.Contains(output, "Table written to") {
		t.Fatalf("expected confirmation output, got %q", output)
	}

	hdr, err := table.ReadFileHeader(out)
	if err != nil {
		t.Fatalf("failed to read written table: %v", err)
	}
	if hdr.PassLength != 5 || hdr.ChainCount != 30 || hdr.ChainLength != 40 {
		t.Errorf("unexpected header: %+v", hdr)
	}
}

func TestRunCreateCustomWordlist(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	seedFile := filepath.Join(t.TempDir(), "seeds.txt")
	if err := os.WriteFile(seedFile, []byte("monster\nvampire\nzombie7\nago\n"), 0644); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}

	out := filepath.Join(cfg.Table.Dir, "custom.rt")
	cmd := createCmdForTest(t)
	mustSetFlag(t, cmd, "path", out)
	mustSetFlag(t, cmd, "pass-length", "7")
	mustSetFlag(t, cmd, "wordlist", seedFile)
	mustSetFlag(t, cmd, "chain-length", "25")
	mustSetFlag(t, cmd, "no-progress", "true")

	captureOutput(t, func() {
		if err := runCreate(cmd, nil); err != nil {
			t.Errorf("runCreate returned error: %v", err)
		}
	})

	hdr, err := table.ReadFileHeader(out)
	if err != nil {
		t.Fatalf("failed to read written table: %v", err)
	}
	if hdr.PassLength != 7 || hdr.ChainCount != 3 {
		t.Errorf("unexpected header: %+v", hdr)
	}
}

func TestRunCreateUnsupportedLength(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	cmd := createCmdForTest(t)
	mustSetFlag(t, cmd, "path", filepath.Join(cfg.Table.Dir, "bad.rt"))
	mustSetFlag(t, cmd, "pass-length", "9")
	mustSetFlag(t, cmd, "no-progress", "true")

	if err := runCreate(cmd, nil); err == nil {
		t.Fatal("expected error for unsupported embedded seed length")
	}
}

func TestRunSearchRoundtrip(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	list, err := seeds.ByLength(5)
	if err != nil {
		t.Fatalf("failed to load seeds: %v", err)
	}
	space, err := chain.NewSpace(5, 50)
	if err != nil {
		t.Fatalf("failed to build space: %v", err)
	}
	tbl, err := table.Build(space, list, 40, nil)
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}
	if err := tbl.WriteFile(filepath.Join(cfg.Table.Dir, "demo.rt")); err != nil {
		t.Fatalf("failed to write table: %v", err)
	}

	target := list[7]
	digest := md5.Sum([]byte(target))
	digestHex := hex.EncodeToString(digest[:])

	output := captureOutput(t, func() {
		if err := runSearch(&cobra.Command{}, []string{digestHex}); err != nil {
			t.Errorf("runSearch returned error: %v", err)
		}
	})
	if strings.TrimSpace(output) != target {
		t.Fatalf("expected %q, got %q", target, output)
	}

	// The hit lands in the potfile.
	pot, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	pass, ok, err := pot.LookupCracked(digestHex)
	if err != nil {
		t.Fatalf("LookupCracked failed: %v", err)
	}
	if !ok || string(pass) != target {
		t.Errorf("potfile entry = %q, %v; want %q", pass, ok, target)
	}
	if err := pot.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	// A second search answers from the potfile even with the tables gone.
	if err := os.RemoveAll(cfg.Table.Dir); err != nil {
		t.Fatalf("failed to remove tables: %v", err)
	}
	output = captureOutput(t, func() {
		if err := runSearch(&cobra.Command{}, []string{digestHex}); err != nil {
			t.Errorf("potfile search returned error: %v", err)
		}
	})
	if strings.TrimSpace(output) != target {
		t.Fatalf("expected potfile answer %q, got %q", target, output)
	}
}

func TestRunSearchMiss(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	list, err := seeds.ByLength(5)
	if err != nil {
		t.Fatalf("failed to load seeds: %v", err)
	}
	space, err := chain.NewSpace(5, 30)
	if err != nil {
		t.Fatalf("failed to build space: %v", err)
	}
	tbl, err := table.Build(space, list, 20, nil)
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}
	if err := tbl.WriteFile(filepath.Join(cfg.Table.Dir, "demo.rt")); err != nil {
		t.Fatalf("failed to write table: %v", err)
	}

	digest := md5.Sum([]byte("not-in-this-space"))
	digestHex := hex.EncodeToString(digest[:])

	var searchErr error
	output := captureOutput(t, func() {
		searchErr = runSearch(&cobra.Command{}, []string{digestHex})
	})

	if searchErr == nil {
		t.Fatal("expected error for unmatched digest")
	}
	if !strings.Contains(searchErr.Error(), "no password found") {
		t.Errorf("unexpected error: %v", searchErr)
	}
	if output != "" {
		t.Errorf("expected no stdout output on miss, got %q", output)
	}

	// The miss is recorded as an attempt.
	pot, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer pot.Close()
	stats, err := pot.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Attempts != 1 || stats.Found != 0 {
		t.Errorf("stats = %+v, want 1 attempt, 0 found", stats)
	}
}

func TestRunSearchNoTables(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	err := runSearch(&cobra.Command{}, []string{"0123456789abcdef0123456789abcdef"})
	if err == nil {
		t.Fatal("expected error when no tables exist")
	}
	if !strings.Contains(err.Error(), "no tables found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListTables(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	t.Run("empty directory", func(t *testing.T) {
		output := captureOutput(t, func() {
			if err := listTables(&cobra.Command{}, nil); err != nil {
				t.Errorf("listTables returned error: %v", err)
			}
		})
		if !strings.Contains(output, "No table directory") {
			t.Fatalf("expected missing-directory notice, got %q", output)
		}
	})

	t.Run("lists tables and skips junk", func(t *testing.T) {
		list, err := seeds.ByLength(5)
		if err != nil {
			t.Fatalf("failed to load seeds: %v", err)
		}
		space, _ := chain.NewSpace(5, 20)
		tbl, err := table.Build(space, list, 10, nil)
		if err != nil {
			t.Fatalf("failed to build table: %v", err)
		}
		if err := tbl.WriteFile(filepath.Join(cfg.Table.Dir, "demo.rt")); err != nil {
			t.Fatalf("failed to write table: %v", err)
		}
		junk := []byte("JUNKJUNKJUNKJUNKJUNKJUNK")
		if err := os.WriteFile(filepath.Join(cfg.Table.Dir, "junk.rt"), junk, 0644); err != nil {
			t.Fatalf("failed to write junk: %v", err)
		}
		if err := os.WriteFile(filepath.Join(cfg.Table.Dir, "notes.txt"), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write notes: %v", err)
		}

		output := captureOutput(t, func() {
			if err := listTables(&cobra.Command{}, nil); err != nil {
				t.Errorf("listTables returned error: %v", err)
			}
		})
		if !strings.Contains(output, "demo.rt") {
			t.Fatalf("expected table listing, got %q", output)
		}
		if strings.Contains(output, "junk.rt") || strings.Contains(output, "notes.txt") {
			t.Errorf("non-table files leaked into listing: %q", output)
		}
	})

	t.Run("dir flag overrides config", func(t *testing.T) {
		other := t.TempDir()
		list, err := seeds.ByLength(6)
		if err != nil {
			t.Fatalf("failed to load seeds: %v", err)
		}
		space, _ := chain.NewSpace(6, 15)
		tbl, err := table.Build(space, list, 5, nil)
		if err != nil {
			t.Fatalf("failed to build table: %v", err)
		}
		if err := tbl.WriteFile(filepath.Join(other, "elsewhere.rt")); err != nil {
			t.Fatalf("failed to write table: %v", err)
		}

		cmd := &cobra.Command{}
		cmd.Flags().String("dir", "", "")
		mustSetFlag(t, cmd, "dir", other)

		output := captureOutput(t, func() {
			if err := listTables(cmd, nil); err != nil {
				t.Errorf("listTables returned error: %v", err)
			}
		})
		if !strings.Contains(output, "elsewhere.rt") {
			t.Fatalf("expected table from --dir, got %q", output)
		}
		if strings.Contains(output, "demo.rt") {
			t.Errorf("config directory leaked into --dir listing: %q", output)
		}
	})
}

func TestShowHistoryEmpty(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	output := captureOutput(t, func() {
		if err := showHistory(&cobra.Command{}, nil); err != nil {
			t.Errorf("showHistory returned error: %v", err)
		}
	})
	if !strings.Contains(output, "No search attempts recorded yet") {
		t.Fatalf("expected empty-history notice, got %q", output)
	}
}

func TestShowStatus(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	if err := os.WriteFile(cfg.Wordlist.Path, []byte("abc\nde\nfgh\n"), 0644); err != nil {
		t.Fatalf("failed to write wordlist: %v", err)
	}

	output := captureOutput(t, func() {
		if err := showStatus(&cobra.Command{}, nil); err != nil {
			t.Errorf("showStatus returned error: %v", err)
		}
	})

	for _, want := range []string{
		"rainbow Workspace Status",
		"✓ Wordlist",
		"(3 lines",
		"passwords of length 5",
		"passwords of length 6",
		"✗ No tables",
		"✓ Store:",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("status output missing %q:\n%s", want, output)
		}
	}
}

func TestShowConfig(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	output := captureOutput(t, func() {
		if err := showConfig(&cobra.Command{}, nil); err != nil {
			t.Errorf("showConfig returned error: %v", err)
		}
	})
	if !strings.Contains(output, "wordlist:") || !strings.Contains(output, "chain_count: 1000") {
		t.Fatalf("expected YAML config dump, got %q", output)
	}
}

func TestInitConfig(t *testing.T) {
	logger = zap.NewNop()
	cfgFile = filepath.Join(t.TempDir(), ".rainbow", "config.yaml")
	t.Cleanup(func() { cfgFile = "" })

	output := captureOutput(t, func() {
		if err := initConfig(&cobra.Command{}, nil); err != nil {
			t.Errorf("initConfig returned error: %v", err)
		}
	})
	if !strings.Contains(output, "Wrote default config") {
		t.Fatalf("expected confirmation, got %q", output)
	}
	if _, err := os.Stat(cfgFile); err != nil {
		t.Fatalf("config file missing: %v", err)
	}

	output = captureOutput(t, func() {
		if err := initConfig(&cobra.Command{}, nil); err != nil {
			t.Errorf("second initConfig returned error: %v", err)
		}
	})
	if !strings.Contains(output, "already exists") {
		t.Fatalf("expected already-exists notice, got %q", output)
	}
}

func TestResolveTablePaths(t *testing.T) {
	cfg = testConfig(t)

	t.Run("explicit path wins", func(t *testing.T) {
		paths, err := resolveTablePaths("some/table.rt")
		if err != nil {
			t.Fatalf("resolveTablePaths failed: %v", err)
		}
		if len(paths) != 1 || paths[0] != "some/table.rt" {
			t.Errorf("paths = %v", paths)
		}
	})

	t.Run("missing directory yields none", func(t *testing.T) {
		paths, err := resolveTablePaths("")
		if err != nil {
			t.Fatalf("resolveTablePaths failed: %v", err)
		}
		if paths != nil {
			t.Errorf("paths = %v, want none", paths)
		}
	})
}

func TestRenderPassword(t *testing.T) {
	if got := renderPassword([]byte("zebra")); got != "zebra" {
		t.Errorf("renderPassword = %q", got)
	}
	if got := renderPassword([]byte{0xff, 0xfe}); got != "hex:fffe" {
		t.Errorf("renderPassword = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-done
}
