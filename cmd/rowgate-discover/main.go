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
rowgate-discover - Row Store Quorum Discovery Tool

This tool discovers row store nodes on the local network using mDNS
(Bonjour/Avahi). The addresses it prints can be dropped straight into the
ROWGATE_QUORUM environment variable or a config file.

Usage:

	rowgate-discover                    # Discover nodes (5 second timeout)
	rowgate-discover --timeout 10       # Custom timeout in seconds
	rowgate-discover --json             # Output as JSON
	rowgate-discover --quiet            # Only output addresses (for scripting)
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"rowgate/internal/banner"
	"rowgate/internal/discover"
)

func main() {
	timeout := flag.Int("timeout", 5, "Discovery timeout in seconds")
	quorum := flag.String("quorum", "", "Only show nodes belonging to this quorum")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	quiet := flag.Bool("quiet", false, "Only output node addresses (for scripting)")
	help := flag.Bool("help", false, "Show help")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(quiet, "q", false, "Only output node addresses (for scripting)")
	flag.BoolVar(help, "h", false, "Show help")
	flag.BoolVar(showVersion, "v", false, "Show version information")

	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("rowgate-discover version %s\n", banner.Version)
		fmt.Printf("%s\n", banner.Copyright)
		os.Exit(0)
	}

	// Suppress mDNS library logging (it logs IPv6 errors that are not critical)
	log.SetOutput(io.Discard)

	if !*quiet && !*jsonOutput {
		printBanner()
		fmt.Printf("  Scanning for row store nodes on the network (timeout: %ds)...\n\n", *timeout)
	}

	browser := discover.NewBrowser(discover.Config{
		Quorum:  *quorum,
		Enabled: true,
	})

	nodes, err := browser.Discover(time.Duration(*timeout) * time.Second)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "%sDiscovery failed: %v%s\n", banner.AnsiRed, err, banner.AnsiReset)
		}
		os.Exit(1)
	}

	if len(nodes) == 0 {
		if !*quiet && !*jsonOutput {
			fmt.Printf("  %sNo row store nodes found on the network.%s\n\n", banner.AnsiYellow, banner.AnsiReset)
			fmt.Printf("  %s%sTROUBLESHOOTING:%s\n", banner.AnsiBold, banner.AnsiCyan, banner.AnsiReset)
			fmt.Printf("    %s•%s Nodes are not running with discovery enabled\n", banner.AnsiYellow, banner.AnsiReset)
			fmt.Printf("    %s•%s mDNS/Bonjour is blocked by firewall (UDP port 5353)\n", banner.AnsiYellow, banner.AnsiReset)
			fmt.Printf("    %s•%s Nodes are on a different network segment\n", banner.AnsiYellow, banner.AnsiReset)
			fmt.Println()
			fmt.Printf("    %sTry:%s rowgate-discover --timeout 10\n\n", banner.AnsiDim, banner.AnsiReset)
		}
		os.Exit(0)
	}

	if *jsonOutput {
		outputJSON(nodes)
	} else if *quiet {
		outputQuiet(nodes)
	} else {
		outputHuman(nodes)
	}
}

func printBanner() {
	banner.Print()
	fmt.Printf("  %sQuorum Discovery Tool%s\n\n", banner.AnsiDim, banner.AnsiReset)
}

func printUsage() {
	printBanner()

	fmt.Printf("  %sDiscovers row store nodes on the local network using mDNS.%s\n", banner.AnsiDim, banner.AnsiReset)
	fmt.Printf("  %sUseful for building a quorum address list without configuration.%s\n\n", banner.AnsiDim, banner.AnsiReset)

	fmt.Printf("  %s%sUSAGE:%s\n", banner.AnsiBold, banner.AnsiCyan, banner.AnsiReset)
	fmt.Println("    rowgate-discover [options]")
	fmt.Println()

	fmt.Printf("  %s%sOPTIONS:%s\n", banner.AnsiBold, banner.AnsiCyan, banner.AnsiReset)
	fmt.Printf("    %s--timeout%s <n>     Discovery timeout in seconds (default: 5)\n", banner.AnsiGreen, banner.AnsiReset)
	fmt.Printf("    %s--quorum%s <name>   Only show nodes in the named quorum\n", banner.AnsiGreen, banner.AnsiReset)
	fmt.Printf("    %s--json%s            Output results as JSON\n", banner.AnsiGreen, banner.AnsiReset)
	fmt.Printf("    %s--quiet%s, %s-q%s       Only output addresses (for scripting)\n", banner.AnsiGreen, banner.AnsiReset, banner.AnsiGreen, banner.AnsiReset)
	fmt.Printf("    %s--version%s, %s-v%s     Show version information\n", banner.AnsiGreen, banner.AnsiReset, banner.AnsiGreen, banner.AnsiReset)
	fmt.Printf("    %s--help%s, %s-h%s        Show this help message\n", banner.AnsiGreen, banner.AnsiReset, banner.AnsiGreen, banner.AnsiReset)
	fmt.Println()

	fmt.Printf("  %s%sNETWORK REQUIREMENTS:%s\n", banner.AnsiBold, banner.AnsiCyan, banner.AnsiReset)
	fmt.Printf("    %s•%s mDNS uses UDP port 5353 (multicast)\n", banner.AnsiYellow, banner.AnsiReset)
	fmt.Printf("    %s•%s Nodes must be on the same network segment\n", banner.AnsiYellow, banner.AnsiReset)
	fmt.Println()
}

func outputJSON(nodes []*discover.Node) {
	type nodeOutput struct {
		NodeID  string `json:"node_id"`
		Quorum  string `json:"quorum,omitempty"`
		Addr    string `json:"addr"`
		Version string `json:"version,omitempty"`
	}

	output := make([]nodeOutput, len(nodes))
	for i, n := range nodes {
		output[i] = nodeOutput{
			NodeID:  n.NodeID,
			Quorum:  n.Quorum,
			Addr:    n.Addr,
			Version: n.Version,
		}
	}

	data, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(data))
}

func outputQuiet(nodes []*discover.Node) {
	fmt.Println(strings.Join(discover.Addrs(nodes), ","))
}

func outputHuman(nodes []*discover.Node) {
	fmt.Printf("  %sFound %d row store node(s)%s\n\n", banner.AnsiGreen, len(nodes), banner.AnsiReset)

	for i, n := range nodes {
		fmt.Printf("  %s[%d]%s %s%s%s\n",
			banner.AnsiDim, i+1, banner.AnsiReset,
			banner.AnsiBold+banner.AnsiCyan, n.NodeID, banner.AnsiReset)

		fmt.Printf("      %sAddress:%s %s%s%s\n",
			banner.AnsiDim, banner.AnsiReset,
			banner.AnsiGreen, n.Addr, banner.AnsiReset)

		if n.Quorum != "" {
			fmt.Printf("      %sQuorum:%s  %s\n", banner.AnsiDim, banner.AnsiReset, n.Quorum)
		}
		if n.Version != "" {
			fmt.Printf("      %sVersion:%s %s\n", banner.AnsiDim, banner.AnsiReset, n.Version)
		}

		fmt.Println()
	}

	fmt.Printf("  %sTip: Use --quiet to get a ROWGATE_QUORUM value directly%s\n\n", banner.AnsiDim, banner.AnsiReset)
}
