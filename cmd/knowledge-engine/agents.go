// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/knowledge-engine/internal/agents"
	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Run multi-perspective orchestration patterns",
	Long: `Agents runs a topic through multiple role perspectives and a synthesis
call. The built-in patterns vary the roles: graph extracts entities and
relationships, compare argues both sides of an "X vs Y" topic, synthesis
combines a technical and an ethics view, and refine iterates a single
question using its own missing context.

Use perspectives with --role flags to pick the roles yourself.`,
}

func newOrchestrator(cmd *cobra.Command) *agents.Orchestrator {
	maxIterations, _ := cmd.Flags().GetInt("max-iterations")
	cfg := types.AgentsConfig{
		QueryConfig:   queryConfig(),
		Workers:       viper.GetInt("workers"),
		MaxIterations: maxIterations,
	}
	return agents.New(lumen.NewClient(cfg.QueryConfig), cfg)
}

// --- perspectives subcommand ---

var agentsPerspectivesCmd = &cobra.Command{
	Use:   "perspectives [topic]",
	Short: "Run custom role perspectives and synthesize them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAgentsPerspectives,
}

func runAgentsPerspectives(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	roleLabels, _ := cmd.Flags().GetStringArray("role")
	if len(roleLabels) == 0 {
		return fmt.Errorf("at least one --role is required")
	}

	roles := make([]agents.Role, len(roleLabels))
	for i, label := range roleLabels {
		roles[i] = agents.DefaultRole(label)
	}

	o := newOrchestrator(cmd)
	ctx := context.Background()

	perspectives, err := o.RunPerspectives(ctx, topic, roles)
	if err != nil {
		return err
	}
	result, err := o.Synthesize(ctx, topic, perspectives, nil)
	if err != nil {
		return err
	}

	printSynthesis(result)
	return nil
}

// --- pattern subcommands ---

func patternCommand(p agents.Pattern, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(p) + " [topic]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			o := newOrchestrator(cmd)

			result, err := o.RunPattern(context.Background(), p, topic, os.Stdout)
			if err != nil {
				return err
			}
			printSynthesis(result)
			return nil
		},
	}
}

// --- refine subcommand ---

var agentsRefineCmd = &cobra.Command{
	Use:   "refine [question]",
	Short: "Iteratively sharpen one answer using its missing context",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAgentsRefine,
}

func runAgentsRefine(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	o := newOrchestrator(cmd)
	result, err := o.Refine(context.Background(), question, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", result.Final())
	return nil
}

// --- output ---

func printSynthesis(result *types.SynthesisResult) {
	for _, p := range result.Perspectives {
		fmt.Printf("\n=== %s ===\n", p.Role)
		if p.Err != "" {
			fmt.Printf("(unavailable: %s)\n", p.Err)
			continue
		}
		fmt.Println(p.Response)
	}

	fmt.Println("\n=== synthesis ===")
	fmt.Println(result.Response)

	if len(result.MissingContext) > 0 {
		fmt.Printf("\nstill missing: %s\n", strings.Join(result.MissingContext, "; "))
	}
}

func init() {
	agentsPerspectivesCmd.Flags().StringArray("role", nil, "perspective role label (repeatable)")
	agentsRefineCmd.Flags().Int("max-iterations", 0, "refinement iteration cap (0 = default)")

	agentsCmd.AddCommand(agentsPerspectivesCmd)
	agentsCmd.AddCommand(patternCommand(agents.PatternGraph, "Extract a knowledge graph from a topic"))
	agentsCmd.AddCommand(patternCommand(agents.PatternCompare, "Contrast the two sides of an \"X vs Y\" topic"))
	agentsCmd.AddCommand(patternCommand(agents.PatternSynthesis, "Combine technical and ethics perspectives"))
	agentsCmd.AddCommand(agentsRefineCmd)

	rootCmd.AddCommand(agentsCmd)
}
