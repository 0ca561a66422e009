package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuenti/mkdocs-elasticsearch/internal/config"
	"github.com/tuenti/mkdocs-elasticsearch/internal/source"
	"github.com/tuenti/mkdocs-elasticsearch/internal/storage"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <search_index.json>",
	Short: "Upload a search index to S3/MinIO for a later publish",
	Long: `Upload the search_index.json written by a documentation build to the
configured bucket under storage.key, creating the bucket if needed.

A CI job can upload after building the site and a separate job can then run
"mkdocs-es publish --from-storage" with access to Elasticsearch.

Examples:
  mkdocs-es upload site/search/search_index.json`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if cfg.Storage.Endpoint == "" {
		return fmt.Errorf("storage not configured - set storage.endpoint")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read search index: %w", err)
	}
	entries, err := source.Decode(data)
	if err != nil {
		return err
	}

	storageClient, err := newStorageClient(cfg)
	if err != nil {
		return err
	}
	if err := storageClient.EnsureBucket(ctx); err != nil {
		return err
	}
	if err := storageClient.Put(ctx, cfg.Storage.Key, data); err != nil {
		return err
	}

	slog.Debug("uploaded search index", "bucket", storageClient.Bucket(), "key", cfg.Storage.Key, "bytes", len(data))
	fmt.Printf("Uploaded %d entries to %s/%s\n", len(entries), storageClient.Bucket(), cfg.Storage.Key)
	return nil
}

func newStorageClient(cfg config.Config) (*storage.Client, error) {
	storageClient, err := storage.New(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return storageClient, nil
}
