// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the PubMed E-utilities API and writes the
// results as tables, JSON, CSL-YAML, or saved-search files.
package search

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/research-radar/internal/httputil"
	"github.com/pdiddy/research-radar/pkg/types"
)

const (
	// DefaultBaseURL is the NCBI E-utilities endpoint.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// Request rates allowed by NCBI without and with an API key.
	DefaultRateLimit = 3.0
	KeyedRateLimit   = 10.0

	defaultPageSize  = 20
	defaultBatchSize = 200
	maxRetMax        = 10000
	maxBodyBytes     = 32 << 20
	defaultUserAgent = "research-radar/0.1"
)

// ErrEmptyQuery reports a blank search term.
var ErrEmptyQuery = errors.New("search query is empty")

// Observer receives request outcomes. observability.Metrics satisfies it.
type Observer interface {
	ObserveSearch(operation string, err error)
	PapersFetched(n int)
}

// IDPage is one page of matching PMIDs.
type IDPage struct {
	IDs    []string
	Total  int
	Offset int
}

// Page is one page of fetched papers.
type Page struct {
	Query  string        `json:"query" yaml:"query"`
	Total  int           `json:"total" yaml:"total"`
	Offset int           `json:"offset" yaml:"offset"`
	Papers []types.Paper `json:"papers" yaml:"papers"`
}

// Client talks to E-utilities. All requests share one rate limiter.
type Client struct {
	cfg     types.SearchConfig
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	obs     Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithObserver reports request outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.obs = o }
}

// NewClient returns a Client for cfg, filling unset fields with defaults.
func NewClient(cfg types.SearchConfig, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if cfg.APIKey != "" && limit < KeyedRateLimit {
		limit = KeyedRateLimit
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(limit), 1),
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PageSize returns the configured default page size.
func (c *Client) PageSize() int { return c.cfg.PageSize }

// Search returns one page of PMIDs matching query, starting at offset.
// pageSize <= 0 uses the configured default.
func (c *Client) Search(ctx context.Context, query string, offset, pageSize int) (IDPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return IDPage{}, ErrEmptyQuery
	}
	if pageSize <= 0 {
		pageSize = c.cfg.PageSize
	}
	pageSize = min(pageSize, maxRetMax)
	offset = max(offset, 0)

	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmode": {"xml"},
		"retmax":  {strconv.Itoa(pageSize)},
	}
	if offset > 0 {
		params.Set("retstart", strconv.Itoa(offset))
	}

	var res esearchResult
	err := c.get(ctx, "esearch", params, &res)
	c.observe("esearch", err)
	if err != nil {
		return IDPage{}, err
	}
	if res.Error != "" {
		return IDPage{}, fmt.Errorf("PubMed search: %s", res.Error)
	}
	if res.ErrorList != nil && len(res.ErrorList.PhraseNotFound) > 0 && len(res.IDs) == 0 {
		c.log.Debug().Strs("phrases", res.ErrorList.PhraseNotFound).Msg("phrase not found")
		return IDPage{Offset: offset}, nil
	}

	c.log.Debug().Str("query", query).Int("total", res.Count).Int("ids", len(res.IDs)).Msg("esearch complete")
	return IDPage{IDs: res.IDs, Total: res.Count, Offset: offset}, nil
}

// Fetch returns parsed records for ids. Ids are requested in batches of
// the configured size with the configured pause between batches. Records
// without a PMID are skipped.
func (c *Client) Fetch(ctx context.Context, ids []string) ([]types.Paper, error) {
	papers := make([]types.Paper, 0, len(ids))
	for start := 0; start < len(ids); start += c.cfg.BatchSize {
		if start > 0 && c.cfg.BatchPause > 0 {
			if err := pause(ctx, c.cfg.BatchPause); err != nil {
				return papers, err
			}
		}
		end := min(start+c.cfg.BatchSize, len(ids))

		params := url.Values{
			"db":      {"pubmed"},
			"id":      {strings.Join(ids[start:end], ",")},
			"retmode": {"xml"},
			"rettype": {"abstract"},
		}
		var set articleSet
		err := c.get(ctx, "efetch", params, &set)
		c.observe("efetch", err)
		if err != nil {
			return papers, fmt.Errorf("fetching records %d-%d: %w", start+1, end, err)
		}

		before := len(papers)
		for _, a := range set.Articles {
			if p, ok := toPaper(a); ok {
				papers = append(papers, p)
			}
		}
		if c.obs != nil {
			c.obs.PapersFetched(len(papers) - before)
		}
		c.log.Info().Int("batch_start", start+1).Int("batch_end", end).Int("total", len(ids)).Msg("fetched PubMed batch")
	}
	return papers, nil
}

// SearchPapers runs Search and then Fetch for the returned page.
func (c *Client) SearchPapers(ctx context.Context, query string, offset, pageSize int) (Page, error) {
	ids, err := c.Search(ctx, query, offset, pageSize)
	if err != nil {
		return Page{}, err
	}
	papers, err := c.Fetch(ctx, ids.IDs)
	if err != nil {
		return Page{}, err
	}
	return Page{Query: strings.TrimSpace(query), Total: ids.Total, Offset: ids.Offset, Papers: papers}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, into any) error {
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/"+endpoint+".fcgi?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(c.log.WithContext(ctx), c.http, req, 0)
	if err != nil {
		return fmt.Errorf("PubMed %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("PubMed %s returned HTTP %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(into); err != nil {
		return fmt.Errorf("parsing PubMed %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) observe(op string, err error) {
	if c.obs != nil {
		c.obs.ObserveSearch(op, err)
	}
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
