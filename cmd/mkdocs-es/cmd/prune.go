package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuenti/mkdocs-elasticsearch/internal/indexing"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete generations the alias no longer points to",
	Long: `Delete every generation except the one the alias serves.

Refuses to run when the alias is unset or resolves to several indices,
since the served generation cannot be told apart then.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	esClient, err := newESClient(cfg)
	if err != nil {
		return err
	}

	lifecycle := indexing.NewLifecycle(esClient, nil)
	current, err := lifecycle.Current(ctx, cfg.Elasticsearch.Index)
	if err != nil {
		return err
	}

	pruned, err := lifecycle.Prune(ctx, cfg.Elasticsearch.Index, current)
	if err != nil {
		return err
	}
	if len(pruned) == 0 {
		fmt.Printf("Nothing to prune, %s is the only generation\n", current)
		return nil
	}
	fmt.Printf("Deleted %d generations:\n", len(pruned))
	for _, name := range pruned {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}
