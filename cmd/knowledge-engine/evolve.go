// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/knowledge-engine/internal/evolution"
	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Run knowledge evolution experiments (seed, fill, measure)",
	Long: `Evolve manages per-domain knowledge experiments in a local SQLite store.
Seed asks the initial queries and records the gaps they expose, fill asks
the gateway to close open gaps (discovering second-order gaps along the
way), and measure re-runs the seed queries to quantify improvement.`,
}

// evolveEngine opens the store and builds an engine around it. The caller
// must Close the returned store.
func evolveEngine(cmd *cobra.Command) (*evolution.Engine, *evolution.Store, error) {
	store, err := evolution.NewStore(dataDir())
	if err != nil {
		return nil, nil, err
	}

	maxGaps, _ := cmd.Flags().GetInt("max-gaps")
	cfg := types.EvolutionConfig{
		QueryConfig: queryConfig(),
		DataDir:     dataDir(),
		MaxGaps:     maxGaps,
		Workers:     viper.GetInt("workers"),
	}
	return evolution.NewEngine(lumen.NewClient(cfg.QueryConfig), store, cfg), store, nil
}

// --- seed subcommand ---

var evolveSeedCmd = &cobra.Command{
	Use:   "seed [domain]",
	Short: "Start an experiment: ask the seed queries and record their gaps",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvolveSeed,
}

func runEvolveSeed(cmd *cobra.Command, args []string) error {
	queries, _ := cmd.Flags().GetStringArray("query")
	if len(queries) == 0 {
		return fmt.Errorf("at least one --query is required")
	}

	engine, store, err := evolveEngine(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	exp, err := engine.Seed(context.Background(), args[0], queries, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("seeded %q: %d queries, %d gaps\n", exp.Domain, len(exp.SeedQueries), len(exp.Gaps))
	return nil
}

// --- fill subcommand ---

var evolveFillCmd = &cobra.Command{
	Use:   "fill [domain]",
	Short: "Ask the gateway to close open gaps, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvolveFill,
}

func runEvolveFill(cmd *cobra.Command, args []string) error {
	maxGaps, _ := cmd.Flags().GetInt("max-gaps")

	engine, store, err := evolveEngine(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	exp, report, err := engine.Fill(context.Background(), args[0], maxGaps, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("generation %d: %d filled, %d emergent, %d failed (fill ratio %.2f)\n",
		exp.Generation, report.Filled, report.Emergent, report.Failed, report.Ratio())
	return nil
}

// --- measure subcommand ---

var evolveMeasureCmd = &cobra.Command{
	Use:   "measure [domain]",
	Short: "Re-run the seed queries and quantify gap reduction",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvolveMeasure,
}

func runEvolveMeasure(cmd *cobra.Command, args []string) error {
	engine, store, err := evolveEngine(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	exp, err := engine.Measure(context.Background(), args[0], os.Stdout)
	if err != nil {
		return err
	}

	measured := 0
	for _, qi := range exp.Metrics.PerQuery {
		if qi.Err == "" {
			measured++
		}
	}
	if measured == 0 {
		return fmt.Errorf("no re-query succeeded; nothing to measure")
	}
	fmt.Printf("aggregate gap reduction: %.2f over %d of %d queries\n",
		exp.Metrics.GapReduction, measured, len(exp.Metrics.PerQuery))
	return nil
}

// --- stats subcommand ---

var evolveStatsCmd = &cobra.Command{
	Use:   "stats [domain]",
	Short: "Print experiment statistics (omit domain to list all)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEvolveStats,
}

func runEvolveStats(cmd *cobra.Command, args []string) error {
	store, err := evolution.NewStore(dataDir())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	domains := args
	if len(domains) == 0 {
		domains, err = store.Domains(ctx)
		if err != nil {
			return err
		}
		if len(domains) == 0 {
			fmt.Println("No experiments found.")
			return nil
		}
	}

	for _, domain := range domains {
		exp, err := store.Load(ctx, domain)
		if err != nil {
			return err
		}
		st := evolution.ExperimentStats(exp)
		fmt.Printf("%s: generation %d, %d seeds, %d gaps (%d open, %d filled, %d emergent), fill rate %.2f",
			st.Domain, st.Generation, st.SeedCount, st.GapsTotal, st.GapsOpen, st.GapsFilled, st.Emergent, st.FillRate)
		if st.Measured {
			fmt.Printf(", gap reduction %.2f", exp.Metrics.GapReduction)
		}
		fmt.Println()
	}
	return nil
}

// --- export subcommand ---

var evolveExportCmd = &cobra.Command{
	Use:   "export [domain]",
	Short: "Export an experiment to YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvolveExport,
}

func runEvolveExport(cmd *cobra.Command, args []string) error {
	store, err := evolution.NewStore(dataDir())
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := store.ExportYAML(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func init() {
	evolveSeedCmd.Flags().StringArrayP("query", "q", nil, "seed query (repeatable)")

	evolveFillCmd.Flags().Int("max-gaps", 0, "maximum gaps to fill this pass (0 = default)")

	evolveCmd.AddCommand(evolveSeedCmd)
	evolveCmd.AddCommand(evolveFillCmd)
	evolveCmd.AddCommand(evolveMeasureCmd)
	evolveCmd.AddCommand(evolveStatsCmd)
	evolveCmd.AddCommand(evolveExportCmd)

	rootCmd.AddCommand(evolveCmd)
}
