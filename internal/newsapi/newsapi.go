// Package newsapi is a thin client for a NewsAPI-shaped search endpoint
// (GET /v2/everything).
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Article is one search hit. Only entries with both a title and a
// description are returned.
type Article struct {
	Title       string
	Description string
	URL         string
	PublishedAt string
	SourceName  string
	Author      string
	URLToImage  string
}

type Client struct {
	apiKey          string
	baseURL         string
	language        string
	sortBy          string
	pageSize        int
	excludedDomains string
	httpClient      *http.Client
}

type Options struct {
	Language        string
	SortBy          string
	PageSize        int
	ExcludedDomains string
	Timeout         time.Duration
}

func NewClient(baseURL, apiKey string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	return &Client{
		apiKey:          apiKey,
		baseURL:         baseURL,
		language:        opts.Language,
		sortBy:          opts.SortBy,
		pageSize:        opts.PageSize,
		excludedDomains: opts.ExcludedDomains,
		httpClient:      &http.Client{Timeout: opts.Timeout},
	}
}

type searchResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
		Author     string `json:"author"`
		URLToImage string `json:"urlToImage"`
	} `json:"articles"`
}

// Search queries the endpoint with an OR-joined tag query. Results
// missing a title or description are dropped.
func (c *Client) Search(ctx context.Context, tags []string) ([]Article, error) {
	query := strings.Join(tags, " OR ")

	params := url.Values{}
	params.Set("q", query)
	params.Set("apiKey", c.apiKey)
	params.Set("language", c.language)
	params.Set("sortBy", c.sortBy)
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("excludeDomains", c.excludedDomains)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read news search response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("news search HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse news search response: %w", err)
	}

	if parsed.Status != "ok" {
		msg := parsed.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("news search rejected: %s", msg)
	}

	articles := make([]Article, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		if a.Title == "" || a.Description == "" {
			continue
		}
		articles = append(articles, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			SourceName:  a.Source.Name,
			Author:      a.Author,
			URLToImage:  a.URLToImage,
		})
	}

	return articles, nil
}
