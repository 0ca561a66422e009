package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

// CrawlerConfig holds crawling configuration.
type CrawlerConfig struct {
	Delay     time.Duration
	MaxDepth  int
	UserAgent string
	Timeout   time.Duration
}

// Crawler reads search entries from a served site by following its links.
type Crawler struct {
	URL     string
	Exclude []string
	Parser  Parser
	config  CrawlerConfig
}

// NewCrawler creates a crawler rooted at siteURL.
func NewCrawler(siteURL string, exclude []string, parser Parser, config CrawlerConfig) *Crawler {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "mkdocs-es/1.0"
	}
	return &Crawler{URL: siteURL, Exclude: exclude, Parser: parser, config: config}
}

// Entries crawls every page below the site URL on the same host. Pages come
// out ordered by location, each followed by its sections.
func (c *Crawler) Entries(ctx context.Context) ([]models.SearchEntry, error) {
	base, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse site URL: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	var (
		mu       sync.Mutex
		pages    = make(map[string][]models.SearchEntry)
		parseErr error
	)

	collector := colly.NewCollector(
		colly.MaxDepth(c.config.MaxDepth),
		colly.UserAgent(c.config.UserAgent),
	)
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       c.config.Delay,
		Parallelism: 2,
	})
	collector.SetRequestTimeout(c.config.Timeout)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		if !strings.Contains(r.Headers.Get("Content-Type"), "text/html") {
			return
		}
		rel, ok := c.relative(base, r.Request.URL)
		if !ok {
			return
		}
		location := Location(rel)
		entries, err := c.Parser.Parse(location, bytes.NewReader(r.Body))

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if parseErr == nil {
				parseErr = err
			}
			return
		}
		if _, seen := pages[location]; !seen {
			pages[location] = entries
			slog.Debug("crawled page", "url", r.Request.URL.String(), "location", location, "sections", len(entries)-1)
		}
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link, err := url.Parse(e.Request.AbsoluteURL(e.Attr("href")))
		if err != nil || link.Host != base.Host {
			return
		}
		link.Fragment = ""
		if _, ok := c.relative(base, link); ok {
			e.Request.Visit(link.String())
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		slog.Debug("crawl error (continuing)", "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	if err := collector.Visit(base.String()); err != nil {
		return nil, fmt.Errorf("failed to crawl %s: %w", base, err)
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}

	locations := make([]string, 0, len(pages))
	for location := range pages {
		locations = append(locations, location)
	}
	sort.Strings(locations)

	var entries []models.SearchEntry
	for _, location := range locations {
		entries = append(entries, pages[location]...)
	}
	slog.Debug("crawl complete", "url", base.String(), "pages", len(locations))
	return entries, nil
}

// relative returns u's path below base, or false when u lies outside the
// site or under an excluded prefix.
func (c *Crawler) relative(base, u *url.URL) (string, bool) {
	if !strings.HasPrefix(u.Path, base.Path) {
		return "", false
	}
	rel := strings.TrimPrefix(u.Path, base.Path)
	if Excluded(rel, c.Exclude) {
		return "", false
	}
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel += "index.html"
	}
	return rel, true
}
