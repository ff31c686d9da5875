// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-engine/internal/evolution"
	"github.com/pdiddy/knowledge-engine/internal/linker"
	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

var linkCmd = &cobra.Command{
	Use:   "link [domain] [domain] ...",
	Short: "Detect shared concepts between experiment domains",
	Long: `Link extracts the technical vocabulary of each named experiment and
reports every pair of domains whose vocabularies overlap. With --synthesize,
one gateway call per detected pair proposes a connection hypothesis.

Omit domains to link every experiment in the store.`,
	RunE: runLink,
}

func runLink(cmd *cobra.Command, args []string) error {
	synthesize, _ := cmd.Flags().GetBool("synthesize")
	minTokenLen, _ := cmd.Flags().GetInt("min-token-len")

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
	}
	if len(domains) < 2 {
		return fmt.Errorf("linking needs at least two domains, have %d", len(domains))
	}

	experiments := make([]*types.Experiment, 0, len(domains))
	for _, domain := range domains {
		exp, err := store.Load(ctx, domain)
		if err != nil {
			return err
		}
		experiments = append(experiments, exp)
	}

	cfg := types.LinkerConfig{
		QueryConfig: queryConfig(),
		MinTokenLen: minTokenLen,
		Synthesize:  synthesize,
	}
	l := linker.NewLinker(lumen.NewClient(cfg.QueryConfig), cfg)

	links, err := l.Link(ctx, experiments, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "linking incomplete: %v\n", err)
	}

	if len(links) == 0 {
		fmt.Println("No shared concepts found.")
		return err
	}

	for _, link := range links {
		fmt.Printf("\n%s <-> %s (strength %d)\n", link.Domains[0], link.Domains[1], link.Strength)
		fmt.Printf("  shared: %s\n", strings.Join(link.SharedConcepts, ", "))
		if link.Hypothesis != "" {
			fmt.Printf("  hypothesis: %s\n", link.Hypothesis)
		}
		if link.SynthesisErr != "" {
			fmt.Printf("  hypothesis unavailable: %s\n", link.SynthesisErr)
		}
	}
	fmt.Printf("\n%d link(s)\n", len(links))
	return err
}

func init() {
	linkCmd.Flags().Bool("synthesize", false, "ask the gateway for a connection hypothesis per link")
	linkCmd.Flags().Int("min-token-len", 0, "minimum concept token length (0 = default)")

	rootCmd.AddCommand(linkCmd)
}
