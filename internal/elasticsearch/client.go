package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tuenti/mkdocs-elasticsearch/internal/schema"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	// Timeout bounds how long a single call waits for response headers.
	// Zero leaves the transport default.
	Timeout time.Duration
}

// Client wraps the Elasticsearch client with the index, alias and template
// calls needed to publish a documentation site.
type Client struct {
	es *elasticsearch.Client
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}
	if config.Timeout > 0 {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = config.Timeout
		cfg.Transport = transport
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{es: es}, nil
}

// ResponseError is returned when Elasticsearch answers with an error status.
type ResponseError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("error %s (status %d): %s", e.Op, e.StatusCode, e.Body)
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return &ResponseError{Op: op, StatusCode: res.StatusCode, Body: string(body)}
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// exists interprets a HEAD style answer: 200 means present, 404 absent.
func exists(op string, res *esapi.Response) (bool, error) {
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError(op, res)
	}
}

// TemplateExists reports whether an index template with the given name exists.
func (c *Client) TemplateExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.ExistsIndexTemplate(name, c.es.Indices.ExistsIndexTemplate.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check template: %w", err)
	}
	defer res.Body.Close()
	return exists("checking template", res)
}

// PutTemplate registers an index template.
func (c *Client) PutTemplate(ctx context.Context, name string, tmpl schema.Template) error {
	data, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	res, err := c.es.Indices.PutIndexTemplate(
		name,
		bytes.NewReader(data),
		c.es.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to put template: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("creating template", res)
	}
	return nil
}

// CreateIndex creates an empty index. Settings and mappings come from the
// matching index template.
func (c *Client) CreateIndex(ctx context.Context, name string) error {
	res, err := c.es.Indices.Create(name, c.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("creating index", res)
	}
	return nil
}

// DeleteIndices removes the named indices in one request.
func (c *Client) DeleteIndices(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	res, err := c.es.Indices.Delete(names, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("deleting indices", res)
	}
	return nil
}

// ListIndices returns the sorted names of indices matching pattern.
func (c *Client) ListIndices(ctx context.Context, pattern string) ([]string, error) {
	res, err := c.es.Indices.Get([]string{pattern}, c.es.Indices.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError("listing indices", res)
	}

	var indices map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// AliasExists reports whether any index holds alias.
func (c *Client) AliasExists(ctx context.Context, alias string) (bool, error) {
	res, err := c.es.Indices.ExistsAlias([]string{alias}, c.es.Indices.ExistsAlias.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check alias: %w", err)
	}
	defer res.Body.Close()
	return exists("checking alias", res)
}

// AliasIndices returns the sorted names of the indices alias resolves to.
func (c *Client) AliasIndices(ctx context.Context, alias string) ([]string, error) {
	res, err := c.es.Indices.GetAlias(
		c.es.Indices.GetAlias.WithContext(ctx),
		c.es.Indices.GetAlias.WithName(alias),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get alias: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError("getting alias", res)
	}

	var indices map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// PutAlias binds alias to index.
func (c *Client) PutAlias(ctx context.Context, index, alias string) error {
	res, err := c.es.Indices.PutAlias([]string{index}, alias, c.es.Indices.PutAlias.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to put alias: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("creating alias", res)
	}
	return nil
}

// DeleteAlias unbinds alias from index.
func (c *Client) DeleteAlias(ctx context.Context, index, alias string) error {
	res, err := c.es.Indices.DeleteAlias([]string{index}, []string{alias}, c.es.Indices.DeleteAlias.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete alias: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("deleting alias", res)
	}
	return nil
}

// AliasTarget names an alias on an index (or index pattern).
type AliasTarget struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}

// AliasAction is one entry of an _aliases request. Exactly one field is set.
type AliasAction struct {
	Remove *AliasTarget `json:"remove,omitempty"`
	Add    *AliasTarget `json:"add,omitempty"`
}

// UpdateAliases applies all actions in a single atomic _aliases request.
func (c *Client) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	data, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return fmt.Errorf("failed to marshal alias actions: %w", err)
	}

	res, err := c.es.Indices.UpdateAliases(
		bytes.NewReader(data),
		c.es.Indices.UpdateAliases.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to update aliases: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("updating aliases", res)
	}
	return nil
}

// Refresh makes everything written to index searchable.
func (c *Client) Refresh(ctx context.Context, index string) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(index),
	)
	if err != nil {
		return fmt.Errorf("failed to refresh index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("refreshing index", res)
	}
	return nil
}

// Count returns the number of documents in index.
func (c *Client) Count(ctx context.Context, index string) (int64, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(index),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, responseError("counting documents", res)
	}

	var cr struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return cr.Count, nil
}
