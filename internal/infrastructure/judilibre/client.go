package judilibre

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"Poligraph/internal/config"
)

// Decision is the subset of a Judilibre search result the scanner maps.
type Decision struct {
	ID           string   `json:"id"`
	Jurisdiction string   `json:"jurisdiction"`
	Chamber      string   `json:"chamber"`
	Number       string   `json:"number"`
	Numbers      []string `json:"numbers"`
	ECLI         string   `json:"ecli"`
	DecisionDate string   `json:"decision_date"`
	Solution     string   `json:"solution"`
	Summary      string   `json:"summary"`
	Themes       []string `json:"themes"`
}

// Date parses DecisionDate (YYYY-MM-DD).
func (d Decision) Date() (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(d.DecisionDate))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type searchResponse struct {
	Total   int        `json:"total"`
	Results []Decision `json:"results"`
}

// Client talks to the Judilibre API through the PISTE gateway.
type Client struct {
	endpoint string
	keyID    string
	pageSize int
	http     *http.Client
}

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.JudilibreConfig) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		keyID:    cfg.KeyID,
		pageSize: pageSize,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Search returns the first page of decisions whose text matches query exactly.
func (c *Client) Search(ctx context.Context, query string) ([]Decision, error) {
	if c.keyID == "" {
		return nil, fmt.Errorf("judilibre key id is not configured")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("operator", "exact")
	params.Set("page_size", strconv.Itoa(c.pageSize))
	params.Set("resolve_references", "true")

	var resp searchResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("KeyId", c.keyID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
