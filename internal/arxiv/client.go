// Package arxiv is the paper search port. It queries the arXiv Atom API and
// renders results into the plain-text block the deliberation roles consume.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Paper is one search result.
type Paper struct {
	ID         string
	Title      string
	Authors    []string
	Summary    string
	Published  string
	PDFURL     string
	Categories []string
}

// Config configures the arXiv client.
type Config struct {
	BaseURL    string
	MaxResults int
}

// Client searches arXiv.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxResults int
	logger     *zap.Logger
}

// NewClient builds an arXiv client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.BaseURL
	if base == "" {
		base = "http://export.arxiv.org/api/query"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    base,
		maxResults: maxResults,
		logger:     logger,
	}
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	ID        string `xml:"id"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
		Type string `xml:"type,attr"`
	} `xml:"link"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

// Search queries arXiv for papers relevant to the question. Search never
// fails the deliberation: on any error it logs and returns an empty list.
func (c *Client) Search(ctx context.Context, query string) []Paper {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(c.maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		c.logger.Warn("arXiv request build failed", zap.Error(err))
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("arXiv search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("arXiv search returned non-200",
			zap.String("query", query),
			zap.Int("status", resp.StatusCode),
		)
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		c.logger.Warn("arXiv response read failed", zap.Error(err))
		return nil
	}

	var feed atomFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		c.logger.Warn("arXiv feed parse failed", zap.Error(err))
		return nil
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		p := Paper{
			ID:        arxivID(entry.ID),
			Title:     normalizeSpace(entry.Title),
			Summary:   normalizeSpace(entry.Summary),
			Published: entry.Published,
		}
		for _, a := range entry.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		for _, l := range entry.Links {
			if l.Type == "application/pdf" && l.Href != "" {
				p.PDFURL = l.Href
				break
			}
		}
		for _, c := range entry.Categories {
			if c.Term != "" {
				p.Categories = append(p.Categories, c.Term)
			}
		}
		papers = append(papers, p)
	}
	return papers
}

// arxivID strips the bare identifier out of an entry id URL like
// http://arxiv.org/abs/2401.00001v1.
func arxivID(entryID string) string {
	if i := strings.LastIndex(entryID, "/abs/"); i >= 0 {
		return entryID[i+len("/abs/"):]
	}
	return entryID
}

// Format renders papers as numbered plain-text blocks for role prompts.
// Abstracts are truncated to keep prompt size bounded.
func Format(papers []Paper) string {
	if len(papers) == 0 {
		return "No papers found."
	}

	blocks := make([]string, 0, len(papers))
	for i, p := range papers {
		summary := p.Summary
		if runes := []rune(summary); len(runes) > 500 {
			summary = string(runes[:500]) + "..."
		}
		blocks = append(blocks, fmt.Sprintf(
			"Paper %d:\nTitle: %s\nAuthors: %s\nPublished: %s\nCategories: %s\nAbstract: %s\nPDF: %s\narXiv ID: %s",
			i+1, p.Title, strings.Join(p.Authors, ", "), p.Published,
			strings.Join(p.Categories, ", "), summary, p.PDFURL, p.ID,
		))
	}
	return strings.Join(blocks, "\n---\n")
}

// normalizeSpace collapses the newline-indented text arXiv puts in titles and
// abstracts into single-spaced text.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
