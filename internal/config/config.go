package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Site          Site          `mapstructure:"site"`
	Crawler       Crawler       `mapstructure:"crawler"`
	Storage       Storage       `mapstructure:"storage"`
	Build         Build         `mapstructure:"build"`
}

// Elasticsearch holds ES connection and index configuration.
type Elasticsearch struct {
	Addresses []string      `mapstructure:"addresses"`
	Index     string        `mapstructure:"index"` // Alias name and generation prefix
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Schema    string        `mapstructure:"schema"`
}

// Site describes where the built documentation lives.
type Site struct {
	SearchIndex string   `mapstructure:"search_index"` // search_index.json written by the build
	Dir         string   `mapstructure:"dir"`          // Built site directory
	URL         string   `mapstructure:"url"`          // Served site to crawl
	Exclude     []string `mapstructure:"exclude"`      // Path prefixes skipped when reading a site
	TextFormat  string   `mapstructure:"text_format"`  // "plain" or "markdown"
}

// Crawler holds crawling configuration for Site.URL.
type Crawler struct {
	Delay     time.Duration `mapstructure:"delay"`
	MaxDepth  int           `mapstructure:"max_depth"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// Storage holds S3/MinIO configuration for a search index uploaded by CI.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Key             string `mapstructure:"key"`
}

// Build holds options for the publish run itself.
type Build struct {
	LockFile string `mapstructure:"lock_file"` // Serializes builds sharing an index when set
	Strict   bool   `mapstructure:"strict"`    // Exit non-zero when indexing fails
}

// Text formats for Site.TextFormat.
const (
	TextPlain    = "plain"
	TextMarkdown = "markdown"
)

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://localhost:9200"},
			Index:     "mkdocs",
			Timeout:   120 * time.Second,
			Schema:    "join",
		},
		Site: Site{
			Exclude:    []string{"404.html", "search/", "assets/"},
			TextFormat: TextPlain,
		},
		Crawler: Crawler{
			Delay:     100 * time.Millisecond,
			MaxDepth:  10,
			Timeout:   30 * time.Second,
			UserAgent: "mkdocs-es/1.0",
		},
		Storage: Storage{
			Bucket: "docs",
			Key:    "search/search_index.json",
		},
	}
}

// Validate checks the settings every command relies on.
func (c Config) Validate() error {
	var errs []error
	if c.Elasticsearch.Index == "" {
		errs = append(errs, errors.New("elasticsearch.index must not be empty"))
	}
	if len(c.Elasticsearch.Addresses) == 0 {
		errs = append(errs, errors.New("elasticsearch.addresses must not be empty"))
	}
	switch c.Site.TextFormat {
	case "", TextPlain, TextMarkdown:
	default:
		errs = append(errs, fmt.Errorf("site.text_format %q is not one of %q, %q", c.Site.TextFormat, TextPlain, TextMarkdown))
	}
	return errors.Join(errs...)
}
