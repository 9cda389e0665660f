package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dberest/veridict/internal/config"
)

func geminiReply(text string) string {
	out := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func testAnalyzer(endpoint string) *GeminiAnalyzer {
	return NewGeminiAnalyzer(config.AnalyzerConfig{
		Endpoint:   endpoint,
		Model:      "gemini-2.0-flash",
		APIKey:     "test-key",
		TimeoutSec: 5,
	})
}

func TestAnalyzeParsesVerdict(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(geminiReply(`{"verdict":"FAKE","credibility_score":2,"red_flags":["sensational tone"],"recommendation":"verify elsewhere"}`)))
	}))
	defer srv.Close()

	a, err := testAnalyzer(srv.URL).Analyze(context.Background(), "some text", "FAKE", 90)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !a.Available {
		t.Error("Available = false on success")
	}
	if a.Verdict != "FAKE" || a.CredibilityScore != 2 {
		t.Errorf("analysis = %+v, want parsed verdict", a)
	}
	if len(a.RedFlags) != 1 {
		t.Errorf("RedFlags = %v, want one entry", a.RedFlags)
	}
	if !strings.Contains(gotPath, "gemini-2.0-flash:generateContent") {
		t.Errorf("request path = %q, want generateContent call", gotPath)
	}
}

func TestAnalyzeToleratesCodeFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiReply("```json\n{\"verdict\":\"REAL\",\"credibility_score\":8}\n```")))
	}))
	defer srv.Close()

	a, err := testAnalyzer(srv.URL).Analyze(context.Background(), "text", "REAL", 80)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Verdict != "REAL" || a.CredibilityScore != 8 {
		t.Errorf("analysis = %+v, want fenced JSON parsed", a)
	}
}

func TestAnalyzeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testAnalyzer(srv.URL).Analyze(context.Background(), "text", "REAL", 80); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}

func TestAnalyzeUnparseableReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiReply("I cannot answer that.")))
	}))
	defer srv.Close()

	if _, err := testAnalyzer(srv.URL).Analyze(context.Background(), "text", "REAL", 80); err == nil {
		t.Fatal("expected error on non-JSON reply")
	}
}

func TestAvailableRequiresKey(t *testing.T) {
	a := NewGeminiAnalyzer(config.AnalyzerConfig{
		Endpoint: "https://example.com",
		Model:    "gemini-2.0-flash",
	})
	if a.Available() {
		t.Error("Available() true without an API key")
	}
	if _, err := a.Analyze(context.Background(), "text", "REAL", 80); err == nil {
		t.Error("Analyze should fail when unconfigured")
	}
}

func TestBuildPromptTruncates(t *testing.T) {
	long := strings.Repeat("word ", 2000)
	p := buildPrompt(long, "FAKE", 99.9)
	if len(p) > maxPromptChars+500 {
		t.Errorf("prompt length %d, article text should be capped", len(p))
	}
	if !strings.Contains(p, "FAKE") {
		t.Error("prompt missing the classifier label")
	}
}
