// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/internal/research"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

var exploreCmd = &cobra.Command{
	Use:   "explore [query]",
	Short: "Recursively explore a query through missing context",
	Long: `Explore asks the gateway the initial query, then follows each reported
missing-context item as a deeper sub-query, down to the depth bound. The
result is a research tree whose leaves are answers with no missing context,
failed calls, or branches cut off at the bound.

Use --estimate to print the worst-case call count without issuing any calls.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplore,
}

func runExplore(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	depth, _ := cmd.Flags().GetInt("depth")
	branch, _ := cmd.Flags().GetInt("branch")
	estimate, _ := cmd.Flags().GetBool("estimate")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	outFile, _ := cmd.Flags().GetString("output")

	if estimate {
		branching := branch
		if branching <= 0 {
			branching = 3
		}
		fmt.Printf("worst case: %d calls (branching %d, depth %d)\n",
			research.EstimateCalls(branching, depth), branching, depth)
		return nil
	}

	cfg := types.ResearchConfig{
		QueryConfig: queryConfig(),
		MaxDepth:    depth,
		MaxBranch:   branch,
		Workers:     viper.GetInt("workers"),
	}

	builder := research.NewBuilder(lumen.NewClient(cfg.QueryConfig), cfg)
	tree, err := builder.Explore(context.Background(), query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "exploration incomplete: %v\n", err)
	}

	if outFile != "" {
		data, merr := json.MarshalIndent(tree, "", "  ")
		if merr != nil {
			return merr
		}
		if werr := os.WriteFile(outFile, data, 0o644); werr != nil {
			return werr
		}
		fmt.Printf("tree written to %s\n", outFile)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if eerr := enc.Encode(tree); eerr != nil {
			return eerr
		}
	} else {
		printTree(tree)
	}
	return err
}

func printTree(tree *types.ResearchTree) {
	tree.Root.Walk(func(n *types.ResearchNode) {
		indent := strings.Repeat("  ", n.Depth)
		switch {
		case n.Err != "":
			fmt.Printf("%s- %s [failed: %s]\n", indent, n.Query, n.Err)
		case len(n.MissingContext) > 0:
			fmt.Printf("%s- %s (%d missing)\n", indent, n.Query, len(n.MissingContext))
		default:
			fmt.Printf("%s- %s\n", indent, n.Query)
		}
	})

	fmt.Printf("\n%d nodes, %d calls, %d unique queries", tree.NodeCount(), tree.Calls, tree.UniqueQueries)
	if failed := tree.FailedNodes(); len(failed) > 0 {
		fmt.Printf(", %d failed", len(failed))
	}
	fmt.Println()
}

func init() {
	exploreCmd.Flags().Int("depth", 2, "maximum recursion depth (root is 0)")
	exploreCmd.Flags().Int("branch", 0, "maximum missing-context items expanded per node (0 = all)")
	exploreCmd.Flags().Bool("estimate", false, "print the worst-case call count and exit")
	exploreCmd.Flags().Bool("json", false, "output the tree as JSON")
	exploreCmd.Flags().StringP("output", "o", "", "write the tree as JSON to a file")

	rootCmd.AddCommand(exploreCmd)
}
