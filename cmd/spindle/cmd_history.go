// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/spindle/pkg/experiment"
)

var (
	historyLimit  int
	historyOffset int
	historyFilter string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded optimization runs",
	Long: `History lists past optimization runs from the experiment store, newest
first, and calls out the best improvement seen so far.`,
	Run: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to show")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "skip this many runs")
	historyCmd.Flags().StringVar(&historyFilter, "filter", "", "fuzzy match on experiment names")
}

func runHistory(cmd *cobra.Command, args []string) {
	dbPath := filepath.Join(config.Output.ExperimentsDir, "experiments.db")
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Println("No experiment history found.")
		fmt.Println()
		fmt.Println("💡 Run 'spindle train' to record the first experiment.")
		return
	}

	store, err := experiment.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error opening experiment store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	records, err := store.List(ctx, historyLimit, historyOffset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error reading experiments: %v\n", err)
		os.Exit(1)
	}
	if historyFilter != "" {
		records = filterRecords(records, historyFilter)
	}
	if len(records) == 0 {
		fmt.Println("No experiments matched.")
		return
	}

	fmt.Printf("📜 Experiment History (%d shown)\n", len(records))
	fmt.Println(strings.Repeat("─", 80))
	for i, rec := range records {
		fmt.Printf("\n[%d] %s\n", historyOffset+i+1, rec.Name)
		fmt.Printf("    Optimizer: %s, Model: %s, Metric: %s\n", rec.Strategy, rec.Model, rec.Metric)
		fmt.Printf("    Scores: baseline=%.3f, optimized=%.3f (improvement %+.3f)\n",
			rec.BaselineScore, rec.OptimizedScore, rec.Improvement)
		fmt.Printf("    Run: %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
	fmt.Println(strings.Repeat("─", 80))

	best, err := store.Best(ctx)
	if err == nil && best != nil {
		fmt.Printf("\n📊 Best run: %s (%+.3f with %s)\n", best.Name, best.Improvement, best.Strategy)
	}

	if historyFilter == "" && len(records) == historyLimit {
		fmt.Printf("\n💡 Use --offset=%d to see more\n", historyOffset+historyLimit)
	}
}

// recordNames adapts experiment records for fuzzy name matching.
type recordNames []*experiment.Record

func (r recordNames) String(i int) string { return strings.ToLower(r[i].Name) }
func (r recordNames) Len() int            { return len(r) }

func filterRecords(records []*experiment.Record, query string) []*experiment.Record {
	matches := fuzzy.FindFrom(strings.ToLower(query), recordNames(records))
	out := make([]*experiment.Record, 0, len(matches))
	for _, m := range matches {
		out = append(out, records[m.Index])
	}
	return out
}
