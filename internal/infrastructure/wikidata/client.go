// Package wikidata reads conviction claims (P1399) from the Wikidata SPARQL endpoint.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"Poligraph/internal/config"
)

const defaultTimeout = 15 * time.Second

var qidExpr = regexp.MustCompile(`^Q\d+$`)

// convictionsQuery lists "convicted of" statements with their optional point in time.
const convictionsQuery = `SELECT ?crime ?crimeLabel ?date WHERE {
  wd:%s p:P1399 ?statement .
  ?statement ps:P1399 ?crime .
  OPTIONAL { ?statement pq:P585 ?date . }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "fr,en". }
}`

// Conviction is one P1399 claim.
type Conviction struct {
	CrimeQID   string
	CrimeLabel string
	Date       *time.Time
}

// Client queries SPARQL with a per-instance cache and rate limiter.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
	cache     *cache.Cache
	limiter   *rate.Limiter
}

// NewClient builds a client from configuration.
func NewClient(cfg config.WikidataConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	ttl := cfg.CacheDuration()
	c := &Client{
		endpoint:  cfg.Endpoint,
		userAgent: cfg.UserAgent,
		cache:     cache.New(ttl, 2*ttl),
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
	c.http = &http.Client{Timeout: defaultTimeout, Transport: c}
	return c
}

// RoundTrip stamps the User-Agent Wikimedia requires on every request.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// Convictions returns the P1399 claims of an entity. Results are cached by QID.
func (c *Client) Convictions(ctx context.Context, qid string) ([]Conviction, error) {
	qid = strings.TrimSpace(qid)
	if !qidExpr.MatchString(qid) {
		return nil, fmt.Errorf("invalid wikidata id %q", qid)
	}
	if cached, ok := c.cache.Get(qid); ok {
		return cached.([]Conviction), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	var payload sparqlResponse
	if err := c.query(ctx, fmt.Sprintf(convictionsQuery, qid), &payload); err != nil {
		return nil, err
	}

	convictions := make([]Conviction, 0, len(payload.Results.Bindings))
	for _, b := range payload.Results.Bindings {
		conviction := Conviction{
			CrimeQID:   strings.TrimPrefix(b.Crime.Value, "http://www.wikidata.org/entity/"),
			CrimeLabel: strings.TrimSpace(b.CrimeLabel.Value),
		}
		if b.Date.Value != "" {
			if t, err := time.Parse(time.RFC3339, b.Date.Value); err == nil {
				t = t.UTC()
				conviction.Date = &t
			}
		}
		convictions = append(convictions, conviction)
	}

	c.cache.SetDefault(qid, convictions)
	return convictions, nil
}

type sparqlValue struct {
	Value string `json:"value"`
}

type sparqlResponse struct {
	Results struct {
		Bindings []struct {
			Crime      sparqlValue `json:"crime"`
			CrimeLabel sparqlValue `json:"crimeLabel"`
			Date       sparqlValue `json:"date"`
		} `json:"bindings"`
	} `json:"results"`
}

func (c *Client) query(ctx context.Context, sparql string, v any) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid sparql endpoint %s: %w", c.endpoint, err)
	}
	q := u.Query()
	q.Set("query", sparql)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikidata returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode sparql response: %w", err)
	}
	return nil
}
