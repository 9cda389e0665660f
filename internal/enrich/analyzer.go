// Package enrich runs the secondary LLM analysis off the prediction critical
// path. The primary label and confidence are never delayed by it: callers get
// a correlation id immediately and poll (or subscribe) for the result.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dberest/veridict/internal/config"
)

// Analysis is the secondary verdict returned by the LLM analyzer. Available
// is false whenever the analyzer failed, timed out or is not configured; in
// that case the remaining fields are empty.
type Analysis struct {
	Available          bool     `json:"available"`
	Verdict            string   `json:"verdict,omitempty"`
	CredibilityScore   int      `json:"credibility_score,omitempty"`
	RedFlags           []string `json:"red_flags,omitempty"`
	CredibilitySignals []string `json:"credibility_signals,omitempty"`
	LanguageAnalysis   string   `json:"language_analysis,omitempty"`
	FactCheckVerdict   string   `json:"fact_check_verdict,omitempty"`
	Recommendation     string   `json:"recommendation,omitempty"`
}

// Analyzer produces a secondary analysis for a classified text.
type Analyzer interface {
	// Analyze runs the secondary check. The primary classifier's label and
	// confidence are part of the prompt so the analyzer can agree or dissent.
	Analyze(ctx context.Context, text, label string, confidence float64) (*Analysis, error)

	// Available reports whether the analyzer is configured at all.
	Available() bool
}

// GeminiAnalyzer implements Analyzer against the Gemini generateContent REST
// API.
type GeminiAnalyzer struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ Analyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer builds a client from configuration.
func NewGeminiAnalyzer(cfg config.AnalyzerConfig) *GeminiAnalyzer {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &GeminiAnalyzer{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *GeminiAnalyzer) Available() bool {
	return g != nil && g.apiKey != "" && g.endpoint != "" && g.model != ""
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, text, label string, confidence float64) (*Analysis, error) {
	if !g.Available() {
		return nil, fmt.Errorf("gemini analyzer not configured")
	}

	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": buildPrompt(text, label, confidence)}}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal gemini payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gemini error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	analysis, err := parseVerdict(out.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}
	analysis.Available = true
	return analysis, nil
}

const maxPromptChars = 4000

func buildPrompt(text, label string, confidence float64) string {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	return fmt.Sprintf(`You are a fact-checking assistant. A machine-learning classifier labeled the
following news text as %s with %.1f%% confidence. Independently assess it and
respond with ONLY a JSON object with these keys:
"verdict" ("REAL", "FAKE" or "UNCERTAIN"), "credibility_score" (integer 0-10),
"red_flags" (array of strings), "credibility_signals" (array of strings),
"language_analysis" (string), "fact_check_verdict" (string),
"recommendation" (string).

Text:
%s`, label, confidence, text)
}

// parseVerdict extracts the JSON object from the model's reply, tolerating
// markdown code fences around it.
func parseVerdict(reply string) (*Analysis, error) {
	reply = strings.TrimSpace(reply)
	if i := strings.Index(reply, "{"); i >= 0 {
		if j := strings.LastIndex(reply, "}"); j > i {
			reply = reply[i : j+1]
		}
	}
	var a Analysis
	if err := json.Unmarshal([]byte(reply), &a); err != nil {
		return nil, fmt.Errorf("parse gemini verdict: %w", err)
	}
	return &a, nil
}
