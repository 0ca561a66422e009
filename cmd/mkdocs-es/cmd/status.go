package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the alias target and every generation",
	Long: `Show which generation the alias currently serves, every generation
matching the index prefix and the number of documents each one holds.

Generations other than the served one are left behind by failed builds or
failed cleanups and are removed by the next successful publish or by prune.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	esClient, err := newESClient(cfg)
	if err != nil {
		return err
	}

	alias := cfg.Elasticsearch.Index
	current, err := esClient.AliasIndices(ctx, alias)
	if err != nil {
		return err
	}
	generations, err := esClient.ListIndices(ctx, schema.Pattern(alias))
	if err != nil {
		return err
	}

	live := make(map[string]bool, len(current))
	for _, name := range current {
		live[name] = true
	}

	switch len(current) {
	case 0:
		fmt.Printf("Alias %s is not set\n", alias)
	case 1:
		fmt.Printf("Alias %s -> %s\n", alias, current[0])
	default:
		fmt.Printf("Alias %s -> %v (expected a single index)\n", alias, current)
	}

	if len(generations) == 0 {
		fmt.Println("No generations")
		return nil
	}

	fmt.Printf("\nGenerations (%d):\n", len(generations))
	for _, name := range generations {
		count, err := esClient.Count(ctx, name)
		if err != nil {
			return err
		}
		marker := " "
		if live[name] {
			marker = "*"
		}
		fmt.Printf("  %s %s  %d docs\n", marker, name, count)
	}
	return nil
}
