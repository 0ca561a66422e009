package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tuenti/mkdocs-elasticsearch/internal/config"
	"github.com/tuenti/mkdocs-elasticsearch/internal/elasticsearch"
)

const envPrefix = "MKDOCS_ES"

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "mkdocs-es",
	Short: "Publish an mkdocs search index to Elasticsearch",
	Long: `mkdocs-es publishes the search entries of a documentation build to
Elasticsearch without downtime: every build fills a fresh timestamped index
and an alias is switched to it atomically once it is complete.

Commands:
  publish   Index a build and switch the alias to it
  status    Show the alias target and every generation
  prune     Delete generations the alias no longer points to
  template  Register the index template
  upload    Upload a search index to S3/MinIO`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cfg.Validate()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	cfg = config.Defaults()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mkdocs-es")
		v.AddConfigPath(".")
	}

	// MKDOCS_ES_ELASTICSEARCH_INDEX -> elasticsearch.index
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"elasticsearch.index",
		"elasticsearch.username",
		"elasticsearch.password",
		"elasticsearch.timeout",
		"elasticsearch.schema",
		"site.search_index",
		"site.dir",
		"site.url",
		"site.text_format",
		"crawler.delay",
		"crawler.max_depth",
		"storage.endpoint",
		"storage.bucket",
		"storage.access_key_id",
		"storage.secret_access_key",
		"storage.use_ssl",
		"storage.key",
		"build.lock_file",
		"build.strict",
	} {
		v.BindEnv(key, envName(key))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Lists arrive from the environment as comma-separated strings.
	if addrs := os.Getenv(envName("elasticsearch.addresses")); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
	if exclude, ok := os.LookupEnv(envName("site.exclude")); ok {
		cfg.Site.Exclude = splitList(exclude)
	}
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func newESClient(cfg config.Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Timeout:   cfg.Elasticsearch.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}
	return client, nil
}
