/*
 * Copyright (c) 2026 Rowgate Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package main is the entry point for the rowgate interactive shell.

Shell Overview:
===============

rowgate-shell is an interactive REPL (Read-Eval-Print Loop) for poking at
a row store through the admission-controlled client stack. Every command
runs through the same permit pool a production caller would use, so the
shell doubles as a way to observe admission behavior live.

Command Types:
==============

 1. Local Commands (prefixed with \):
    - \q or \quit : Exit the shell
    - \h or \help : Display help information

 2. Store Commands:
    - create <table>
    - get <table> <key> [family [qualifier]]
    - put <table> <key> <family> <qualifier> <value>
    - delete <table> <key> [family [qualifier]]
    - incr <table> <key> <family> <qualifier> [amount]
    - cas <table> <key> <family> <qualifier> <value> [expected]
    - scan <table> [start [stop]]
    - tables
    - permits
    - stats
    - flush

Usage Examples:
===============

	Start with the default permit pool:
	  rowgate-shell

	Start with a tight pool to watch admission queueing:
	  rowgate-shell -permits 2 -latency 50ms

	Example session:
	  rowgate> create users
	  OK
	  rowgate> put users alice profile name Alice
	  OK
	  rowgate> get users alice
	  profile:name = Alice @ 1767225600000
	  rowgate> permits
	  permits: 0/10 in use (0 over-releases)
*/
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"rowgate/internal/banner"
	"rowgate/internal/client"
	"rowgate/internal/config"
	"rowgate/internal/health"
	"rowgate/internal/limits"
	"rowgate/internal/logging"
	"rowgate/internal/metrics"
	"rowgate/internal/store"
	"rowgate/internal/table"
)

// isTerminal returns true if stdin is a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// shellCompletions lists the commands offered by tab completion.
var shellCompletions = []string{
	"create", "get", "put", "delete", "incr", "cas", "scan",
	"tables", "permits", "stats", "flush",
	"help", "quit", "exit",
}

// createCompleter creates a readline completer for tab completion.
func createCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(shellCompletions))
	for _, cmd := range shellCompletions {
		items = append(items, readline.PcItem(cmd))
	}
	return readline.NewPrefixCompleter(items...)
}

// getHistoryFilePath returns the path for the shell history file.
func getHistoryFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rowgate_history")
}

// createReadlineInstance creates a configured readline instance.
func createReadlineInstance() (*readline.Instance, error) {
	cfg := &readline.Config{
		Prompt:          banner.AnsiCyan + "rowgate" + banner.AnsiReset + banner.AnsiDim + ">" + banner.AnsiReset + " ",
		HistoryFile:     getHistoryFilePath(),
		AutoComplete:    createCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	return readline.NewEx(cfg)
}

// filterInput filters input runes for readline.
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false // Disable Ctrl+Z
	}
	return r, true
}

// shell bundles the client stack the REPL commands operate on.
type shell struct {
	client  client.Client
	pool    *limits.Pool
	backing *store.MemStore
	timeout time.Duration
	logger  *logging.Logger
}

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	permits := flag.Int("permits", 0, "Permit pool capacity (overrides config)")
	latency := flag.Duration("latency", 10*time.Millisecond, "Simulated store latency per operation")
	opTimeout := flag.Duration("timeout", 10*time.Second, "Per-operation wait timeout")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rowgate-shell version %s\n", banner.Version)
		fmt.Printf("%s\n", banner.Copyright)
		os.Exit(0)
	}

	mgr := config.NewManager()
	if *configFile != "" {
		if err := mgr.LoadFromFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	mgr.LoadFromEnv()
	cfg := mgr.Get()
	if *permits > 0 {
		cfg.MaxConcurrentRequests = *permits
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))

	interactive := isTerminal()
	if interactive {
		banner.PrintWithConfig(cfg)
	}

	pool, err := limits.New(cfg.MaxConcurrentRequests)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create permit pool: %v\n", err)
		os.Exit(1)
	}
	metrics.Get().RegisterPool("shell", pool)

	backing := store.NewMemStore()
	raw := store.NewAsyncClient(backing,
		store.WithLatency(*latency),
		store.WithBatchRows(cfg.BatchRows))
	bounded := client.NewBoundedClient(raw, pool)
	metered := client.NewMeteredClient(bounded)
	managed := client.NewManagedClient(metered)

	if err := managed.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start client: %v\n", err)
		os.Exit(1)
	}

	// Observability endpoints
	metricsServer := metrics.NewServer(&cfg.Metrics)
	if err := metricsServer.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start metrics server: %v\n", err)
		os.Exit(1)
	}
	defer metricsServer.Stop()

	backing.CreateTable([]byte(cfg.Health.ProbeTable))
	checker := health.NewChecker(banner.Version)
	checker.RegisterCheck("store", health.StoreProbeCheck(metered, cfg.Health.ProbeTable, 2*time.Second))
	checker.RegisterCheck("permits", health.PoolSaturationCheck(pool))
	checker.RegisterCheck("over_release", health.OverReleaseCheck(pool))
	healthServer := health.NewServer(&cfg.Health, checker)
	if err := healthServer.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start health server: %v\n", err)
		os.Exit(1)
	}
	defer healthServer.Stop()

	sh := &shell{
		client:  managed,
		pool:    pool,
		backing: backing,
		timeout: *opTimeout,
		logger:  logging.NewLogger("shell"),
	}

	// Graceful shutdown on Ctrl+C outside of a readline prompt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		<-sigCh
		sh.stop(managed)
		os.Exit(0)
	}()

	if interactive {
		sh.runREPL()
	} else {
		sh.runPiped()
	}

	sh.stop(managed)
}

func (sh *shell) stop(managed *client.ManagedClient) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := managed.Stop(ctx); err != nil {
		sh.logger.Warn("Shutdown did not drain cleanly", "error", err)
	}
}

// runREPL runs the interactive loop with readline line editing.
func (sh *shell) runREPL() {
	rl, err := createReadlineInstance()
	if err != nil {
		// Fall back to the plain scanner if readline fails
		sh.runPiped()
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err != nil {
			break
		}

		if done := sh.dispatchLine(strings.TrimSpace(line)); done {
			break
		}
	}
}

// runPiped reads commands line-by-line without readline (scripted mode).
func (sh *shell) runPiped() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if done := sh.dispatchLine(strings.TrimSpace(scanner.Text())); done {
			break
		}
	}
}

// dispatchLine executes one command line. Returns true when the shell
// should exit.
func (sh *shell) dispatchLine(line string) bool {
	if line == "" {
		return false
	}

	switch line {
	case "\\q", "\\quit", "quit", "exit":
		return true
	case "\\h", "\\help", "help":
		printHelp()
		return false
	}

	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "create":
		err = sh.cmdCreate(args)
	case "get":
		err = sh.cmdGet(args)
	case "put":
		err = sh.cmdPut(args)
	case "delete":
		err = sh.cmdDelete(args)
	case "incr":
		err = sh.cmdIncr(args)
	case "cas":
		err = sh.cmdCAS(args)
	case "scan":
		err = sh.cmdScan(args)
	case "tables":
		err = sh.cmdTables(args)
	case "permits":
		err = sh.cmdPermits(args)
	case "stats":
		err = sh.cmdStats(args)
	case "flush":
		err = sh.cmdFlush(args)
	default:
		err = fmt.Errorf("unknown command %q (try help)", cmd)
	}

	if err != nil {
		fmt.Printf("%sERROR:%s %v\n", banner.AnsiRed, banner.AnsiReset, err)
	}
	return false
}

func (sh *shell) wait() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), sh.timeout)
}

func (sh *shell) cmdCreate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: create <table>")
	}
	sh.backing.CreateTable([]byte(args[0]))

	ctx, cancel := sh.wait()
	defer cancel()
	if _, err := sh.client.EnsureTableExists([]byte(args[0])).Wait(ctx); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

func (sh *shell) cmdGet(args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return fmt.Errorf("usage: get <table> <key> [family [qualifier]]")
	}
	req := &table.GetRequest{Table: []byte(args[0]), Key: []byte(args[1])}
	if len(args) > 2 {
		req.Family = []byte(args[2])
	}
	if len(args) > 3 {
		req.Qualifier = []byte(args[3])
	}

	ctx, cancel := sh.wait()
	defer cancel()
	cells, err := sh.client.Get(req).Wait(ctx)
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		fmt.Println("(empty)")
		return nil
	}
	for _, c := range cells {
		fmt.Printf("%s:%s = %s @ %d\n", c.Family, c.Qualifier, c.Value, c.Timestamp)
	}
	return nil
}

func (sh *shell) cmdPut(args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("usage: put <table> <key> <family> <qualifier> <value>")
	}
	req := &table.PutRequest{
		Table:     []byte(args[0]),
		Key:       []byte(args[1]),
		Family:    []byte(args[2]),
		Qualifier: []byte(args[3]),
		Value:     []byte(args[4]),
	}
	ctx, cancel := sh.wait()
	defer cancel()
	if _, err := sh.client.Put(req).Wait(ctx); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

func (sh *shell) cmdDelete(args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return fmt.Errorf("usage: delete <table> <key> [family [qualifier]]")
	}
	req := &table.DeleteRequest{Table: []byte(args[0]), Key: []byte(args[1])}
	if len(args) > 2 {
		req.Family = []byte(args[2])
	}
	if len(args) > 3 {
		req.Qualifier = []byte(args[3])
	}
	ctx, cancel := sh.wait()
	defer cancel()
	if _, err := sh.client.Delete(req).Wait(ctx); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

func (sh *shell) cmdIncr(args []string) error {
	if len(args) < 4 || len(args) > 5 {
		return fmt.Errorf("usage: incr <table> <key> <family> <qualifier> [amount]")
	}
	amount := int64(1)
	if len(args) == 5 {
		n, err := strconv.ParseInt(args[4], 10, 64)
		if err != nil {
			return fmt.Errorf("bad amount %q: %w", args[4], err)
		}
		amount = n
	}
	req := &table.IncrementRequest{
		Table:     []byte(args[0]),
		Key:       []byte(args[1]),
		Family:    []byte(args[2]),
		Qualifier: []byte(args[3]),
		Amount:    amount,
	}
	ctx, cancel := sh.wait()
	defer cancel()
	value, err := sh.client.AtomicIncrement(req).Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d\n", value)
	return nil
}

func (sh *shell) cmdCAS(args []string) error {
	if len(args) < 5 || len(args) > 6 {
		return fmt.Errorf("usage: cas <table> <key> <family> <qualifier> <value> [expected]")
	}
	req := &table.PutRequest{
		Table:     []byte(args[0]),
		Key:       []byte(args[1]),
		Family:    []byte(args[2]),
		Qualifier: []byte(args[3]),
		Value:     []byte(args[4]),
	}
	var expected []byte
	if len(args) == 6 {
		expected = []byte(args[5])
	}
	ctx, cancel := sh.wait()
	defer cancel()
	swapped, err := sh.client.CompareAndSet(req, expected).Wait(ctx)
	if err != nil {
		return err
	}
	if swapped {
		fmt.Println("OK")
	} else {
		fmt.Println("MISMATCH")
	}
	return nil
}

func (sh *shell) cmdScan(args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return fmt.Errorf("usage: scan <table> [start [stop]]")
	}
	scanner := sh.client.NewScanner([]byte(args[0]))
	if len(args) > 1 {
		scanner.SetStartKey([]byte(args[1]))
	}
	if len(args) > 2 {
		scanner.SetStopKey([]byte(args[2]))
	}

	total := 0
	for {
		ctx, cancel := sh.wait()
		rows, err := scanner.NextRows().Wait(ctx)
		cancel()
		if err != nil {
			closeScanner(scanner, sh.timeout)
			return err
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			for _, c := range row {
				fmt.Printf("%s  %s:%s = %s @ %d\n", c.Key, c.Family, c.Qualifier, c.Value, c.Timestamp)
			}
			total++
		}
	}
	fmt.Printf("(%d rows)\n", total)
	return closeScanner(scanner, sh.timeout)
}

func closeScanner(scanner client.RowScanner, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := scanner.Close().Wait(ctx)
	return err
}

func (sh *shell) cmdTables(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: tables")
	}
	names := sh.backing.Tables()
	if len(names) == 0 {
		fmt.Println("(no tables)")
		return nil
	}
	for _, name := range names {
		fmt.Printf("%s  (%d rows)\n", name, sh.backing.RowCount([]byte(name)))
	}
	return nil
}

func (sh *shell) cmdPermits(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: permits")
	}
	fmt.Printf("permits: %d/%d in use (%d over-releases)\n",
		sh.pool.InUse(), sh.pool.Capacity(), sh.pool.OverReleases())
	return nil
}

func (sh *shell) cmdStats(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: stats")
	}
	m := metrics.Get()
	fmt.Printf("ops total:       %d\n", m.OpsTotal.Load())
	fmt.Printf("ops failed:      %d\n", m.OpsFailed.Load())
	fmt.Printf("scanners open:   %d\n", m.ScannersOpen.Load())
	fmt.Printf("avg latency:     %.0fµs\n", m.AverageOpLatency())
	return nil
}

func (sh *shell) cmdFlush(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: flush")
	}
	ctx, cancel := sh.wait()
	defer cancel()
	if _, err := sh.client.Flush().Wait(ctx); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

func printHelp() {
	fmt.Printf("  %s%sSTORE COMMANDS:%s\n", banner.AnsiBold, banner.AnsiCyan, banner.AnsiReset)
	fmt.Println("    create <table>                                   Ensure a table exists")
	fmt.Println("    get <table> <key> [family [qualifier]]           Read cells from a row")
	fmt.Println("    put <table> <key> <family> <qualifier> <value>   Write one cell")
	fmt.Println("    delete <table> <key> [family [qualifier]]        Delete cells from a row")
	fmt.Println("    incr <table> <key> <family> <qualifier> [n]      Atomically add to a counter")
	fmt.Println("    cas <table> <key> <family> <qualifier> <v> [e]   Compare-and-set a cell")
	fmt.Println("    scan <table> [start [stop]]                      Scan rows in key order")
	fmt.Println("    tables                                           List tables")
	fmt.Println("    flush                                            Flush buffered edits")
	fmt.Println()
	fmt.Printf("  %s%sDIAGNOSTICS:%s\n", banner.AnsiBold, banner.AnsiCyan, banner.AnsiReset)
	fmt.Println("    permits                                          Show permit pool usage")
	fmt.Println("    stats                                            Show client op counters")
	fmt.Println()
	fmt.Printf("  %s%sLOCAL:%s\n", banner.AnsiBold, banner.AnsiCyan, banner.AnsiReset)
	fmt.Println("    help, \\h                                         Show this help")
	fmt.Println("    quit, exit, \\q                                   Exit the shell")
	fmt.Println()
}
