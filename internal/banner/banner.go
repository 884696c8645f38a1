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
Package banner provides the startup banner display for the rowgate tools.

Banner Display Overview:
========================

This package handles the visual branding displayed when a rowgate tool
starts. It uses Go's embed directive to include the ASCII art banner at
compile time, ensuring the banner file is always available without
external dependencies.

ANSI Color Codes:
=================

The package uses ANSI escape sequences for terminal colors. These codes
are widely supported in modern terminals (Linux, macOS, Windows 10+).

Format: \033[<code>m

Example: "\033[31mRed Text\033[0m" prints "Red Text" in red.

Usage:
======

Simply call banner.Print() at application startup:

	func main() {
	    banner.Print()
	    // ... rest of initialization
	}
*/
package banner

import (
	_ "embed" // Required for the //go:embed directive
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"rowgate/internal/config"
)

// banner contains the ASCII art logo loaded from banner.txt at compile time.
//
//go:embed banner.txt
var banner string

// ANSI escape codes for terminal text formatting.
const (
	AnsiRed    = "\033[31m"
	AnsiGreen  = "\033[32m"
	AnsiYellow = "\033[33m"
	AnsiCyan   = "\033[36m"
	AnsiReset  = "\033[0m"
	AnsiBold   = "\033[1m"
	AnsiDim    = "\033[2m"
)

// Version information for the rowgate tools. These constants are used in
// the banner display and can be referenced elsewhere for version
// reporting.
const (
	Version   = "01.26.8"
	Copyright = "(c)2026 Rowgate Authors"
	License   = "Licensed under Apache 2.0"
)

// Print displays the startup banner with version and copyright
// information. Call once at tool startup.
func Print() {
	fmt.Println(AnsiCyan + banner + AnsiReset)
	fmt.Println(AnsiCyan + AnsiBold + ":: rowgate ::                   (v" + Version + ")" + AnsiReset)
	fmt.Println(AnsiGreen + AnsiBold + Copyright + AnsiReset)
	fmt.Println(AnsiGreen + AnsiBold + License + AnsiReset)
	fmt.Println()
}

// PrintLogSeparator prints a visual separator before logs start.
// This helps users distinguish between configuration display and log output.
func PrintLogSeparator() {
	printLogSeparator(os.Stdout)
}

func printLogSeparator(w io.Writer) {
	const lineWidth = 78
	arrow := "v"
	text := " LOGS START HERE "
	padding := (lineWidth - len(text) - 4) / 2 // 4 for arrows on each side
	if padding < 0 {
		padding = 0
	}
	line := strings.Repeat("-", padding)
	fmt.Fprintf(w, "  %s%s %s%s%s %s%s%s\n",
		AnsiYellow, arrow+arrow+line,
		AnsiBold, text, AnsiReset+AnsiYellow,
		line+arrow+arrow, AnsiReset, "")
	fmt.Fprintln(w)
}

// PrintWithConfig prints the banner with a compact view of the effective
// client configuration.
func PrintWithConfig(cfg *config.Config) {
	PrintWithConfigTo(os.Stdout, cfg)
}

// PrintWithConfigTo writes the banner with configuration to the specified writer.
func PrintWithConfigTo(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, AnsiCyan+banner+AnsiReset)
	fmt.Fprintln(w, AnsiCyan+AnsiBold+":: rowgate ::                   (v"+Version+")"+AnsiReset)
	fmt.Fprintln(w, AnsiDim+"  Admission-Controlled Row Store Client"+AnsiReset)
	fmt.Fprintln(w)

	printConfigSource(w, cfg)
	printCompactConfig(w, cfg)

	fmt.Fprintln(w, AnsiDim+"  "+Copyright+AnsiReset)
	fmt.Fprintln(w)

	printLogSeparator(w)
}

func printConfigSource(w io.Writer, cfg *config.Config) {
	fmt.Fprint(w, "  "+AnsiDim+"Config: "+AnsiReset)
	if cfg.ConfigFile != "" {
		fmt.Fprintln(w, AnsiYellow+cfg.ConfigFile+AnsiReset)
	} else {
		fmt.Fprintln(w, AnsiDim+"defaults + environment"+AnsiReset)
	}
	fmt.Fprintln(w)
}

func printCompactConfig(w io.Writer, cfg *config.Config) {
	const lineWidth = 78

	// === CLIENT ===
	printSectionHeader(w, "Client", lineWidth)

	col1 := fmtKV("Permits", fmt.Sprintf("%s%d%s", AnsiGreen, cfg.MaxConcurrentRequests, AnsiReset))
	col2 := fmtKV("Batch Rows", fmt.Sprintf("%d", cfg.BatchRows))
	col3 := fmtKV("Log", cfg.LogLevel)
	printRow3(w, col1, col2, col3)

	fmt.Fprintln(w)

	// === QUORUM ===
	printSectionHeader(w, "Quorum", lineWidth)
	printQuorumInfo(w, cfg)

	fmt.Fprintln(w)

	// === OBSERVABILITY ===
	printSectionHeader(w, "Observability", lineWidth)
	printObservabilityInfo(w, cfg)

	fmt.Fprintln(w)

	// === RUNTIME ===
	printSectionHeader(w, "Runtime", lineWidth)
	col1 = fmtKV("CPUs", fmt.Sprintf("%d", runtime.NumCPU()))
	col2 = fmtKV("GOMAXPROCS", fmt.Sprintf("%d", runtime.GOMAXPROCS(0)))
	printRow3(w, col1, col2, "")

	fmt.Fprintln(w)
}

func printSectionHeader(w io.Writer, title string, width int) {
	titleLen := len(title) + 4 // "[ title ]"
	leftPad := 2
	rightPad := width - leftPad - titleLen
	if rightPad < 0 {
		rightPad = 0
	}
	fmt.Fprintf(w, "  %s[ %s%s%s ]%s%s\n",
		AnsiDim+strings.Repeat("-", leftPad),
		AnsiReset+AnsiCyan+AnsiBold, title, AnsiReset+AnsiDim,
		strings.Repeat("-", rightPad),
		AnsiReset)
}

func fmtKV(key, value string) string {
	return fmt.Sprintf("%s%s:%s %s", AnsiDim, key, AnsiReset, value)
}

func printRow3(w io.Writer, col1, col2, col3 string) {
	fmt.Fprintf(w, "  %-32s %-26s %s\n", col1, col2, col3)
}

func printRow2(w io.Writer, col1, col2 string) {
	fmt.Fprintf(w, "  %-40s %s\n", col1, col2)
}

func printQuorumInfo(w io.Writer, cfg *config.Config) {
	addrs := cfg.QuorumAddrs()
	col1 := fmtKV("Nodes", fmt.Sprintf("%d", len(addrs)))
	var col2 string
	if cfg.DiscoveryEnabled {
		col2 = fmtKV("Discovery", AnsiGreen+"mDNS"+AnsiReset)
	} else {
		col2 = fmtKV("Discovery", AnsiDim+"off"+AnsiReset)
	}
	printRow2(w, col1, col2)

	for _, addr := range addrs {
		fmt.Fprintf(w, "    %s%s%s\n", AnsiDim, addr, AnsiReset)
	}
}

func printObservabilityInfo(w io.Writer, cfg *config.Config) {
	var col1 string
	if cfg.Metrics.Enabled {
		col1 = fmtKV("Metrics", AnsiGreen+cfg.Metrics.Addr+AnsiReset)
	} else {
		col1 = fmtKV("Metrics", AnsiYellow+"off"+AnsiReset)
	}
	var col2 string
	if cfg.Health.Enabled {
		col2 = fmtKV("Health", AnsiGreen+cfg.Health.Addr+AnsiReset)
	} else {
		col2 = fmtKV("Health", AnsiYellow+"off"+AnsiReset)
	}
	printRow2(w, col1, col2)
}
