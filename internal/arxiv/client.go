package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ideascope/internal/models"
)

const defaultBaseURL = "http://export.arxiv.org/api/query"

// Client searches the arXiv Atom API. arXiv asks for no more than one
// request every three seconds, enforced here with a shared limiter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		logger:  logger,
	}
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Rel   string `xml:"rel,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

// Search queries one term against all fields, sorted by relevance.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.Paper, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build arxiv request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv search request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read arxiv response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("arxiv search error %d: %s", resp.StatusCode, string(body[:min(len(body), 200)]))
	}
	return ParseFeed(body)
}

// SearchKeywords runs every keyword and merges results, deduplicating by
// arXiv id. First occurrence wins, keyword order preserved.
func (c *Client) SearchKeywords(ctx context.Context, keywords []string, perKeyword int) ([]models.Paper, error) {
	seen := make(map[string]bool)
	out := make([]models.Paper, 0, len(keywords)*perKeyword)
	for _, kw := range keywords {
		papers, err := c.Search(ctx, kw, perKeyword)
		if err != nil {
			c.logger.Warn("arxiv keyword search failed", "keyword", kw, "err", err)
			continue
		}
		for _, p := range papers {
			if p.ArxivID == "" || seen[p.ArxivID] {
				continue
			}
			seen[p.ArxivID] = true
			out = append(out, p)
		}
	}
	c.logger.Info("arxiv discovery finished", "keywords", len(keywords), "unique_papers", len(out))
	return out, nil
}

// ParseFeed decodes an Atom response into papers. Entries without an id are
// skipped.
func ParseFeed(data []byte) ([]models.Paper, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parse arxiv feed: %w", err)
	}
	papers := make([]models.Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p, ok := entryToPaper(e)
		if ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

func entryToPaper(e atomEntry) (models.Paper, bool) {
	if strings.TrimSpace(e.ID) == "" {
		return models.Paper{}, false
	}
	arxivID := e.ID
	if i := strings.Index(arxivID, "/abs/"); i >= 0 {
		arxivID = arxivID[i+len("/abs/"):]
	}

	p := models.Paper{
		ArxivID:       arxivID,
		Title:         collapseWhitespace(e.Title),
		Abstract:      collapseWhitespace(e.Summary),
		PublishedDate: e.Published,
	}
	for _, a := range e.Authors {
		if a.Name != "" {
			p.Authors = append(p.Authors, a.Name)
		}
	}
	for _, l := range e.Links {
		switch {
		case l.Title == "pdf":
			p.PDFURL = l.Href
		case l.Rel == "alternate":
			p.URL = l.Href
		}
	}
	if p.PDFURL == "" {
		p.PDFURL = "https://arxiv.org/pdf/" + arxivID
	}
	if p.URL == "" {
		p.URL = "https://arxiv.org/abs/" + arxivID
	}
	for _, cat := range e.Categories {
		if cat.Term != "" {
			p.Categories = append(p.Categories, cat.Term)
		}
	}
	return p, true
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
