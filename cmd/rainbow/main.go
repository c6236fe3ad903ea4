package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"rainbow/cmd/rainbow/ui"
	"rainbow/internal/chain"
	"rainbow/internal/config"
	"rainbow/internal/logging"
	"rainbow/internal/seeds"
	"rainbow/internal/store"
	"rainbow/internal/table"
	"rainbow/internal/wordlist"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	// Global flags
	verbose bool
	cfgFile string

	// Loaded configuration, set by PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// filterUsage is printed verbatim on a missing or malformed length argument.
const filterUsage = "Usage: rainbow filter <PLAINTEXT_LENGTH>"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rainbow",
	Short: "rainbow - build and search MD5 rainbow tables",
	Long: `rainbow is a toolkit for MD5 rainbow table demonstrations.

It filters wordlists by plaintext length, generates hash chain tables from
seed passwords, and reverses MD5 digests by walking those chains. Cracked
passwords are remembered in a local potfile database so a digest is only
ever walked once.

The chain structure trades disk for time: each stored (seed, terminal) pair
stands in for a full hash chain, and a search re-walks candidate chains
instead of hashing the whole keyspace.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Load configuration
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Category file logging lives under the workspace .rainbow directory
		if ws, werr := os.Getwd(); werr == nil {
			if lerr := logging.Initialize(ws); lerr != nil {
				logger.Warn("file logging disabled", zap.Error(lerr))
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// filterCmd prints wordlist lines whose stripped length matches the target
var filterCmd = &cobra.Command{
	Use:   "filter <PLAINTEXT_LENGTH>",
	Short: "Print wordlist lines matching a plaintext length",
	Long: `Reads the configured wordlist (passwords.txt by default) and prints every
line whose length, after stripping surrounding whitespace, equals
PLAINTEXT_LENGTH. Length counts characters, not bytes.

The argument contract is strict: a missing or non-integer argument prints
the usage line on stdout and exits 1 without touching the wordlist.

Example:
  rainbow filter 6 > seeds-06.txt`,
	DisableFlagParsing: true,
	RunE:               runFilter,
}

// createCmd generates a rainbow table and writes it to disk
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a rainbow table from seed passwords",
	Long: `Builds hash chains from seed passwords and writes the resulting table to
disk. Seeds come from the embedded lists (5 and 6 character passwords)
unless --wordlist points at a custom file.

Chain count is capped by the seed list size. Chain length controls how many
hash-reduce steps each chain walks; longer chains cover more of the
keyspace per byte of table but cost more per lookup.

Example:
  rainbow create --pass-length 6 --path .rainbow/tables/demo.rt`,
	RunE: runCreate,
}

// searchCmd reverses an MD5 digest against a table
var searchCmd = &cobra.Command{
	Use:   "search <MD5_HEX>",
	Short: "Search rainbow tables for the password behind an MD5 digest",
	Long: `Walks the chain structure of one or more tables looking for a password
that hashes to the given digest. Hex digests shorter than 32 digits are
zero padded on the left.

The potfile store is consulted first; a digest cracked once is answered
without touching any table. Found passwords print to stdout. A miss
reports on stderr and exits 1.

Example:
  rainbow search 1f3870be274f6c49b3e31a0c6728957f`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

// tablesCmd lists the tables under the table directory
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List rainbow tables in the table directory",
	RunE:  listTables,
}

// historyCmd shows recent search attempts
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent search attempts",
	RunE:  showHistory,
}

// statusCmd shows workspace status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show rainbow workspace status",
	RunE:  showStatus,
}

// configCmd manages the workspace configuration file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage workspace configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  showConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to .rainbow/config.yaml",
	RunE:  initConfig,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: .rainbow/config.yaml)")

	// Create flags
	createCmd.Flags().Int("pass-length", 6, "Password length the table covers")
	createCmd.Flags().Int("chain-count", 0, "Number of chains (default from config, capped by seed count)")
	createCmd.Flags().Int("chain-length", 0, "Hash-reduce steps per chain (default from config)")
	createCmd.Flags().StringP("path", "p", "", "Output table file (required)")
	createCmd.Flags().String("wordlist", "", "Seed wordlist file (default: embedded seed lists)")
	createCmd.Flags().Bool("no-progress", false, "Disable the progress display")
	createCmd.MarkFlagRequired("path")

	// Search flags
	searchCmd.Flags().StringP("path", "p", "", "Table file (default: every table in the table directory)")
	searchCmd.Flags().Int("pass-length", 0, "Only search tables covering this password length")

	// Tables flags
	tablesCmd.Flags().String("dir", "", "Table directory (default from config)")

	// History flags
	historyCmd.Flags().Int("limit", 20, "Maximum attempts to show")

	// Config subcommands
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	// Add commands to root
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runFilter streams matching wordlist lines to stdout. Flag parsing is
// disabled on this command so negative lengths like -5 arrive as positional
// arguments; anything that is not an integer falls into the usage path.
func runFilter(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		fmt.Println(filterUsage)
		os.Exit(1)
	}
	target, err := wordlist.ParseTarget(args[0])
	if err != nil {
		fmt.Println(filterUsage)
		os.Exit(1)
	}

	logging.Filter("filter start: target=%d wordlist=%s", target, cfg.Wordlist.Path)
	timer := logging.StartTimer(logging.CategoryFilter, "filter")

	matched, err := wordlist.FilterFile(cfg.Wordlist.Path, target, os.Stdout)
	if err != nil {
		logging.FilterError("filter failed: %v", err)
		return err
	}

	timer.StopWithInfo()
	logging.Filter("filter done: matched=%d", matched)
	return nil
}

// runCreate builds a table and writes it to the requested path
func runCreate(cmd *cobra.Command, args []string) error {
	passLength, _ := cmd.Flags().GetInt("pass-length")
	chainCount, _ := cmd.Flags().GetInt("chain-count")
	chainLength, _ := cmd.Flags().GetInt("chain-length")
	outPath, _ := cmd.Flags().GetString("path")
	seedPath, _ := cmd.Flags().GetString("wordlist")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	if chainCount <= 0 {
		chainCount = cfg.Table.ChainCount
	}
	if chainLength <= 0 {
		chainLength = cfg.Table.ChainLength
	}

	space, err := chain.NewSpace(passLength, chainLength)
	if err != nil {
		return err
	}

	// Seeds come from the embedded lists unless a custom wordlist is given.
	var seedList []string
	if seedPath != "" {
		seedList, err = wordlist.CollectFile(seedPath, passLength)
		if err != nil {
			return err
		}
		if len(seedList) == 0 {
			return fmt.Errorf("no %d character passwords in %s", passLength, seedPath)
		}
	} else {
		seedList, err = seeds.ByLength(passLength)
		if err != nil {
			return err
		}
	}

	if chainCount > len(seedList) {
		logger.Debug("chain count capped by seed list",
			zap.Int("requested", chainCount),
			zap.Int("available", len(seedList)))
		chainCount = len(seedList)
	}

	logging.Table("create start: pass_length=%d chain_count=%d chain_length=%d path=%s",
		passLength, chainCount, chainLength, outPath)
	timer := logging.StartTimer(logging.CategoryTable, "create")

	var tbl *table.Table
	build := func(report func(done int)) error {
		var berr error
		tbl, berr = table.Build(space, seedList, chainCount, func(done, total int) {
			if done%16 == 0 || done == total {
				report(done)
			}
		})
		return berr
	}

	if noProgress {
		err = build(func(int) {})
	} else {
		err = ui.RunProgress(fmt.Sprintf("building %d chains", chainCount), chainCount, build)
	}
	if err != nil {
		logging.TableError("create failed: %v", err)
		return err
	}

	if err := tbl.WriteFile(outPath); err != nil {
		logging.TableError("create failed: %v", err)
		return err
	}

	took := timer.StopWithInfo()
	logging.Table("create done: chains=%d file=%s", tbl.Len(), outPath)

	fmt.Printf("✓ Table written to %s\n", outPath)
	fmt.Printf("  Pass length:  %d\n", passLength)
	fmt.Printf("  Chain count:  %d\n", tbl.Len())
	fmt.Printf("  Chain length: %d\n", chainLength)
	fmt.Printf("  Took:         %s\n", took.Round(time.Millisecond))
	return nil
}

// runSearch walks tables for the password behind a digest
func runSearch(cmd *cobra.Command, args []string) error {
	tablePath, _ := cmd.Flags().GetString("path")
	passLength, _ := cmd.Flags().GetInt("pass-length")

	digest, err := table.ParseDigest(args[0])
	if err != nil {
		return err
	}
	digestHex := hex.EncodeToString(digest[:])

	// Potfile first. A digest cracked once never needs another walk.
	var pot *store.Store
	if cfg.Store.Enabled {
		pot, err = store.NewStore(cfg.Store.Path)
		if err != nil {
			logger.Warn("potfile unavailable", zap.Error(err))
			pot = nil
		} else {
			defer pot.Close()
			if pass, ok, lerr := pot.LookupCracked(digestHex); lerr == nil && ok {
				logging.Search("potfile hit: %s", digestHex)
				fmt.Println(renderPassword(pass))
				return nil
			}
		}
	}

	paths, err := resolveTablePaths(tablePath)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no tables found in %s (run 'rainbow create' first)", cfg.Table.Dir)
	}

	timer := logging.StartTimer(logging.CategorySearch, "search")
	defer timer.StopWithInfo()
	start := time.Now()

	for _, path := range paths {
		hdr, err := table.ReadFileHeader(path)
		if err != nil {
			if tablePath != "" {
				return err
			}
			logging.SearchWarn("skipping %s: %v", path, err)
			continue
		}
		if passLength > 0 && hdr.PassLength != passLength {
			logging.SearchDebug("skipping %s: covers pass length %d", path, hdr.PassLength)
			continue
		}

		tbl, err := table.ReadFile(path)
		if err != nil {
			if tablePath != "" {
				return err
			}
			logging.SearchWarn("skipping %s: %v", path, err)
			continue
		}

		logging.Search("walking %s: chains=%d chain_length=%d", path, tbl.Len(), hdr.ChainLength)
		if pass, ok := tbl.Lookup(digest); ok {
			took := time.Since(start)
			logging.Search("hit: %s -> %q in %s", digestHex, pass, took)
			recordOutcome(pot, digestHex, pass, path, took)
			fmt.Println(renderPassword(pass))
			return nil
		}
	}

	logging.Search("miss: %s", digestHex)
	recordOutcome(pot, digestHex, nil, "", time.Since(start))
	return fmt.Errorf("no password found for %s", digestHex)
}

// listTables prints a summary of every table in the table directory
func listTables(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.Table.Dir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No table directory at %s (run 'rainbow create' first)\n", dir)
			return nil
		}
		return fmt.Errorf("failed to read table directory: %w", err)
	}

	out := ui.NewTable("FILE", "PASS LEN", "CHAINS", "CHAIN LEN", "SIZE")
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rt") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		hdr, err := table.ReadFileHeader(path)
		if err != nil {
			// The listing is informational; garbage files are noted, not fatal.
			logging.TableWarn("skipping %s: %v", e.Name(), err)
			continue
		}
		size := "?"
		if info, ierr := e.Info(); ierr == nil {
			size = formatBytes(info.Size())
		}
		out.AddRow(e.Name(),
			strconv.Itoa(hdr.PassLength),
			strconv.Itoa(hdr.ChainCount),
			strconv.Itoa(hdr.ChainLength),
			size)
	}

	if out.Len() == 0 {
		fmt.Printf("No tables in %s\n", dir)
		return nil
	}
	fmt.Print(out.View(ui.DefaultStyles()))
	return nil
}

// showHistory prints recent search attempts from the potfile store
func showHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = 20
	}

	if !cfg.Store.Enabled {
		fmt.Println("Store is disabled in config; no history recorded.")
		return nil
	}
	pot, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer pot.Close()

	attempts, err := pot.GetHistory(limit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Println("No search attempts recorded yet.")
		return nil
	}

	out := ui.NewTable("WHEN", "DIGEST", "RESULT", "TOOK")
	for _, att := range attempts {
		result := "miss"
		if att.Found {
			result = renderPassword(att.Password)
		}
		out.AddRow(
			att.Timestamp.Local().Format("2006-01-02 15:04:05"),
			att.Digest,
			result,
			att.Duration.Round(time.Millisecond).String(),
		)
	}
	fmt.Print(out.View(ui.DefaultStyles()))
	return nil
}

// showStatus displays workspace status
func showStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("rainbow Workspace Status")
	fmt.Println("========================")
	fmt.Printf("Version: %s\n", cfg.Version)
	fmt.Println()

	// Wordlist
	if info, err := os.Stat(cfg.Wordlist.Path); err == nil {
		if count, cerr := wordlist.CountFile(cfg.Wordlist.Path); cerr == nil {
			fmt.Printf("✓ Wordlist: %s (%d lines, %s)\n", cfg.Wordlist.Path, count, formatBytes(info.Size()))
		} else {
			fmt.Printf("✓ Wordlist: %s (%s)\n", cfg.Wordlist.Path, formatBytes(info.Size()))
		}
	} else {
		fmt.Printf("✗ Wordlist missing: %s\n", cfg.Wordlist.Path)
	}

	// Embedded seeds
	for _, n := range seeds.Lengths() {
		if list, err := seeds.ByLength(n); err == nil {
			fmt.Printf("✓ Embedded seeds: %d passwords of length %d\n", len(list), n)
		}
	}

	// Tables
	paths, err := resolveTablePaths("")
	if err != nil {
		return err
	}
	if len(paths) > 0 {
		fmt.Printf("✓ Tables: %d in %s\n", len(paths), cfg.Table.Dir)
	} else {
		fmt.Printf("✗ No tables in %s\n", cfg.Table.Dir)
	}

	// Potfile store
	if cfg.Store.Enabled {
		pot, err := store.NewStore(cfg.Store.Path)
		if err != nil {
			fmt.Printf("✗ Store unavailable: %v\n", err)
		} else {
			defer pot.Close()
			if stats, serr := pot.GetStats(); serr == nil {
				fmt.Printf("✓ Store: %s\n", cfg.Store.Path)
				fmt.Printf("  Attempts: %d (%d found)\n", stats.Attempts, stats.Found)
				fmt.Printf("  Cracked:  %d\n", stats.Cracked)
				if stats.Attempts > 0 {
					fmt.Printf("  Avg walk: %s\n", stats.AvgDuration.Round(time.Millisecond))
				}
			}
		}
	} else {
		fmt.Println("✗ Store disabled")
	}

	// Debug logging
	if logging.IsDebugMode() {
		fmt.Printf("✓ Debug logging enabled (%s)\n", cfg.Logging.Dir)
	}
	return nil
}

// showConfig prints the effective configuration as YAML
func showConfig(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

// initConfig writes the default configuration file
func initConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
		return nil
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote default config to %s\n", path)
	return nil
}

// resolveTablePaths expands the search set: an explicit path wins, otherwise
// every .rt file under the configured table directory is a candidate.
func resolveTablePaths(explicit string) ([]string, error) {
	if explicit != "" {
		return []string{explicit}, nil
	}

	entries, err := os.ReadDir(cfg.Table.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read table directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rt") {
			continue
		}
		paths = append(paths, filepath.Join(cfg.Table.Dir, e.Name()))
	}
	return paths, nil
}

// recordOutcome writes the attempt, and the cracked password on a hit, to
// the potfile store. Store failures degrade to warnings.
func recordOutcome(pot *store.Store, digestHex string, pass []byte, tablePath string, took time.Duration) {
	if pot == nil {
		return
	}
	if pass != nil {
		if err := pot.RecordCracked(digestHex, pass, filepath.Base(tablePath)); err != nil {
			logger.Warn("failed to record cracked password", zap.Error(err))
		}
	}
	att := &store.Attempt{
		Digest:    digestHex,
		TablePath: tablePath,
		Found:     pass != nil,
		Duration:  took,
	}
	if err := pot.RecordAttempt(att); err != nil {
		logger.Warn("failed to record attempt", zap.Error(err))
	}
}

// renderPassword shows recovered bytes as text when valid UTF-8, hex
// otherwise. Chain output is always alphabet ASCII but custom seed lists
// can put arbitrary bytes in the potfile.
func renderPassword(pass []byte) string {
	if utf8.Valid(pass) {
		return string(pass)
	}
	return "hex:" + hex.EncodeToString(pass)
}

// formatBytes renders a byte count with a binary unit suffix
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
