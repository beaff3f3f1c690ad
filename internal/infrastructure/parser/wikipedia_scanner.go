package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"Poligraph/internal/config"
	"Poligraph/internal/domain"
	"Poligraph/internal/ports"
	"Poligraph/internal/scanner"
)

var sectionKeywords = []string{
	"judiciaire", "affaire", "condamnation", "controverse",
	"mise en examen", "procès", "polémique",
}

// WikipediaScanner fetches a politician's article, keeps the judicial
// sections and hands their text to the extractor.
type WikipediaScanner struct {
	client        *http.Client
	endpoint      string
	userAgent     string
	limiter       *rate.Limiter
	extractor     ports.AffairExtractor
	minConfidence int
}

// NewWikipediaScanner wires an HTTP client; a nil client gets a 20s timeout.
func NewWikipediaScanner(client *http.Client, cfg config.WikipediaConfig, extractor ports.AffairExtractor, minConfidence int) *WikipediaScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &WikipediaScanner{
		client:        client,
		endpoint:      cfg.Endpoint,
		userAgent:     cfg.UserAgent,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		extractor:     extractor,
		minConfidence: minConfidence,
	}
}

// Name identifies the strategy inside the registry.
func (w *WikipediaScanner) Name() string {
	return "wikipedia"
}

// Scan returns no candidates when the article has no judicial section.
func (w *WikipediaScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.CandidateAffair, error) {
	if w.extractor == nil {
		return nil, fmt.Errorf("affair extractor is not configured")
	}
	title := strings.TrimSpace(req.Politician.WikipediaTitle)
	if title == "" {
		title = strings.TrimSpace(req.Politician.FullName)
	}
	if title == "" {
		return nil, nil
	}

	pageURL, err := buildPageURL(w.endpoint, title)
	if err != nil {
		return nil, err
	}
	doc, err := w.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	text := judicialSections(doc)
	if text == "" {
		return nil, nil
	}

	extracted, err := w.extractor.ExtractAffairs(ctx, req.Politician, text)
	if err != nil {
		return nil, fmt.Errorf("extract affairs: %w", err)
	}

	candidates := make([]domain.CandidateAffair, 0, len(extracted))
	for _, e := range extracted {
		if e.Confidence < w.minConfidence {
			continue
		}
		candidates = append(candidates, candidateFromExtracted(req.Politician, e, pageURL))
	}
	return candidates, nil
}

func (w *WikipediaScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// judicialSections concatenates the text of every section whose heading
// mentions a judicial keyword, subsections included.
func judicialSections(doc *goquery.Document) string {
	doc.Find(".mw-editsection, sup.reference, style, script").Remove()

	var (
		b            strings.Builder
		captureLevel int
	)
	doc.Find(".mw-parser-output").First().Children().Each(func(_ int, s *goquery.Selection) {
		if level, heading := headingOf(s); level > 0 {
			if captureLevel > 0 && level <= captureLevel {
				captureLevel = 0
			}
			if captureLevel == 0 && isJudicialHeading(heading) {
				captureLevel = level
			}
			if captureLevel > 0 {
				b.WriteString("\n## ")
				b.WriteString(heading)
				b.WriteString("\n")
			}
			return
		}
		if captureLevel == 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	})
	return strings.TrimSpace(b.String())
}

// headingOf recognises both plain <hN> and the newer <div class="mw-heading"> wrappers.
func headingOf(s *goquery.Selection) (int, string) {
	node := s
	if s.HasClass("mw-heading") {
		node = s.Find("h2, h3, h4, h5, h6").First()
	}
	if node.Length() == 0 {
		return 0, ""
	}
	name := goquery.NodeName(node)
	if len(name) != 2 || name[0] != 'h' || name[1] < '2' || name[1] > '6' {
		return 0, ""
	}
	return int(name[1] - '0'), strings.TrimSpace(node.Text())
}

func isJudicialHeading(heading string) bool {
	lowered := strings.ToLower(heading)
	for _, kw := range sectionKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func candidateFromExtracted(p domain.Politician, e domain.ExtractedAffair, pageURL string) domain.CandidateAffair {
	source := domain.Source{
		URL:        pageURL,
		Title:      "Wikipédia",
		Publisher:  "Wikipédia",
		SourceType: domain.SourceWikipedia,
	}
	if e.SourceURL != "" && !strings.Contains(e.SourceURL, "wikipedia.org") {
		source = domain.Source{
			URL:        e.SourceURL,
			Title:      e.Title,
			Publisher:  e.Publisher,
			SourceType: domain.SourcePresse,
		}
	}
	return domain.CandidateAffair{
		PoliticianID:    p.ID,
		Title:           e.Title,
		Description:     e.Description,
		Category:        e.Category,
		Status:          e.Status,
		Involvement:     e.Involvement,
		ConfidenceScore: e.Confidence,
		FactsDate:       e.FactsDate,
		VerdictDate:     e.VerdictDate,
		Sources:         []domain.Source{source},
	}
}

func buildPageURL(base, title string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid wikipedia endpoint %s: %w", base, err)
	}
	page := strings.ReplaceAll(title, " ", "_")
	return strings.TrimSuffix(parsed.String(), "/") + "/" + url.PathEscape(page), nil
}
