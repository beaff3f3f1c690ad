package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"Poligraph/internal/config"
	"Poligraph/internal/domain"
	"Poligraph/internal/ports"
)

// maxInputRunes bounds the narrative sent in one request.
const maxInputRunes = 12000

// Extractor implements ports.AffairExtractor backed by OpenAI-compatible APIs.
type Extractor struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.AffairExtractor = (*Extractor)(nil)

// NewExtractor builds a client from configuration.
func NewExtractor(cfg config.LLMConfig) *Extractor {
	return &Extractor{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type extractedPayload struct {
	Affairs []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Status      string `json:"status"`
		Involvement string `json:"involvement"`
		FactsDate   string `json:"factsDate"`
		VerdictDate string `json:"verdictDate"`
		Confidence  int    `json:"confidence"`
		SourceURL   string `json:"sourceUrl"`
		Publisher   string `json:"publisher"`
	} `json:"affairs"`
}

// ExtractAffairs asks the model for a JSON object {"affairs":[...]} describing
// the judicial affairs of politician found in text.
func (e *Extractor) ExtractAffairs(ctx context.Context, politician domain.Politician, text string) ([]domain.ExtractedAffair, error) {
	if e == nil {
		return nil, fmt.Errorf("llm extractor is nil")
	}
	if e.apiKey == "" || e.endpoint == "" || e.model == "" {
		return nil, fmt.Errorf("llm extractor misconfigured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{
		"model":           e.model,
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(e.systemPrompt)},
			{"role": "user", "content": userPrompt(politician, text)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal llm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call llm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("llm returned no choices")
	}

	return parseAffairs(chat.Choices[0].Message.Content)
}

func parseAffairs(content string) ([]domain.ExtractedAffair, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload extractedPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("decode extracted affairs: %w", err)
	}

	affairs := make([]domain.ExtractedAffair, 0, len(payload.Affairs))
	for _, a := range payload.Affairs {
		title := strings.TrimSpace(a.Title)
		if title == "" {
			continue
		}
		affairs = append(affairs, domain.ExtractedAffair{
			Title:       title,
			Description: strings.TrimSpace(a.Description),
			Category:    domain.ParseCategory(a.Category),
			Status:      domain.ParseStatus(a.Status),
			Involvement: domain.ParseInvolvement(a.Involvement),
			FactsDate:   parseLooseDate(a.FactsDate),
			VerdictDate: parseLooseDate(a.VerdictDate),
			Confidence:  domain.ClampConfidence(a.Confidence),
			SourceURL:   strings.TrimSpace(a.SourceURL),
			Publisher:   strings.TrimSpace(a.Publisher),
		})
	}
	return affairs, nil
}

// parseLooseDate accepts full dates, months or bare years.
func parseLooseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func userPrompt(politician domain.Politician, text string) string {
	if runes := []rune(text); len(runes) > maxInputRunes {
		text = string(runes[:maxInputRunes])
	}
	return fmt.Sprintf(`Personnalité: %s
Pour chaque affaire judiciaire concernant cette personne, renvoie un élément avec les champs
title, description, category, status, involvement, factsDate, verdictDate (AAAA-MM-JJ),
confidence (0-100), sourceUrl, publisher.

Texte:
%s`, politician.FullName, text)
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You extract judicial affairs from encyclopedic text and answer with a JSON object {\"affairs\":[...]}."
	}
	return prompt
}
