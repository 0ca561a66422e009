package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuenti/mkdocs-elasticsearch/internal/indexing"
	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Register the index template",
	Long: `Register the index template that every generation is created from.

An existing template with the same name is left untouched, as publish does.`,
	RunE: runTemplate,
}

func init() {
	rootCmd.AddCommand(templateCmd)
}

func runTemplate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	s, err := schema.Lookup(cfg.Elasticsearch.Schema)
	if err != nil {
		return err
	}
	esClient, err := newESClient(cfg)
	if err != nil {
		return err
	}

	created, err := indexing.NewTemplateManager(esClient, s).Ensure(ctx, cfg.Elasticsearch.Index)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Created template %s for %s\n", cfg.Elasticsearch.Index, schema.Pattern(cfg.Elasticsearch.Index))
	} else {
		fmt.Printf("Template %s already exists\n", cfg.Elasticsearch.Index)
	}
	return nil
}
