package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modelServer fakes the generateContent endpoint, replying with the given
// candidate text.
func modelServer(t *testing.T, candidateText string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": candidateText}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestService(baseURL string) *GeminiService {
	svc := NewGeminiService("test-key", "test-model")
	svc.BaseURL = baseURL
	return svc
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
		found    bool
	}{
		{
			name:     "bare object",
			text:     `{"a":1}`,
			expected: `{"a":1}`,
			found:    true,
		},
		{
			name:     "object inside prose",
			text:     "Sure! Here it is:\n```json\n{\"a\":1}\n```\nHope that helps.",
			expected: `{"a":1}`,
			found:    true,
		},
		{
			name:     "nested braces balanced",
			text:     `prefix {"a":{"b":2}} suffix`,
			expected: `{"a":{"b":2}}`,
			found:    true,
		},
		{
			name:     "brace inside string literal ignored",
			text:     `{"title":"curly } brace","n":1}`,
			expected: `{"title":"curly } brace","n":1}`,
			found:    true,
		},
		{
			name:     "escaped quote inside string",
			text:     `{"title":"say \"}\" loudly"}`,
			expected: `{"title":"say \"}\" loudly"}`,
			found:    true,
		},
		{
			name:  "no object",
			text:  "the model rambled without JSON",
			found: false,
		},
		{
			name:  "unterminated object",
			text:  `{"a":1`,
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSON(tt.text)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestParseAnalysis(t *testing.T) {
	t.Run("valid verdict", func(t *testing.T) {
		text := "Here is my analysis:\n{\"title\":\"Tech Weekly\",\"sender\":\"Tech Weekly Team\",\"isNewsletter\":true,\"confidence\":0.92,\"topics\":[\"Technology\",\"Business\"]}"

		analysis, err := parseAnalysis(text)
		require.NoError(t, err)
		assert.Equal(t, "Tech Weekly", analysis.Title)
		assert.True(t, analysis.IsNewsletter)
		assert.InDelta(t, 0.92, analysis.Confidence, 1e-9)
		assert.Equal(t, []string{"Technology", "Business"}, analysis.Topics)
	})

	t.Run("no JSON", func(t *testing.T) {
		_, err := parseAnalysis("plain prose, no verdict")
		assert.ErrorIs(t, err, ErrUnparseable)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := parseAnalysis(`{"confidence": "very high"}`)
		assert.ErrorIs(t, err, ErrUnparseable)
	})

	t.Run("confidence out of range", func(t *testing.T) {
		_, err := parseAnalysis(`{"isNewsletter":true,"confidence":1.5}`)
		assert.ErrorIs(t, err, ErrUnparseable)
	})
}

func TestAnalyzeNewsletter(t *testing.T) {
	t.Run("parses verdict from model output", func(t *testing.T) {
		srv := modelServer(t, `{"title":"Design Digest","sender":"Design Digest","isNewsletter":true,"confidence":0.85,"topics":["Design"]}`, http.StatusOK)
		defer srv.Close()

		analysis := newTestService(srv.URL).AnalyzeNewsletter(context.Background(), "content", "subject", "sender@example.com")
		assert.True(t, analysis.IsNewsletter)
		assert.Equal(t, "Design Digest", analysis.Title)
	})

	t.Run("falls back on HTTP error", func(t *testing.T) {
		srv := modelServer(t, "", http.StatusInternalServerError)
		defer srv.Close()

		analysis := newTestService(srv.URL).AnalyzeNewsletter(context.Background(), "content", "My Subject", "sender@example.com")
		assert.False(t, analysis.IsNewsletter)
		assert.Equal(t, "My Subject", analysis.Title)
		assert.Equal(t, "sender@example.com", analysis.Sender)
		assert.InDelta(t, 0.1, analysis.Confidence, 1e-9)
		assert.Empty(t, analysis.Topics)
	})

	t.Run("falls back on unparseable output", func(t *testing.T) {
		srv := modelServer(t, "I cannot produce JSON today.", http.StatusOK)
		defer srv.Close()

		analysis := newTestService(srv.URL).AnalyzeNewsletter(context.Background(), "content", "My Subject", "sender@example.com")
		assert.False(t, analysis.IsNewsletter)
		assert.Equal(t, "My Subject", analysis.Title)
	})

	t.Run("falls back when server unreachable", func(t *testing.T) {
		svc := newTestService("http://127.0.0.1:1")

		analysis := svc.AnalyzeNewsletter(context.Background(), "content", "Subject", "s@example.com")
		assert.False(t, analysis.IsNewsletter)
		assert.InDelta(t, 0.1, analysis.Confidence, 1e-9)
	})
}

func TestGenerateSummary(t *testing.T) {
	t.Run("empty batch short-circuits without calling the model", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		got := newTestService(srv.URL).GenerateSummary(context.Background(), nil)
		assert.Equal(t, NoNewslettersMessage, got)
		assert.False(t, called)
	})

	t.Run("returns model text", func(t *testing.T) {
		srv := modelServer(t, "# Digest\n\nKey insights here.", http.StatusOK)
		defer srv.Close()

		got := newTestService(srv.URL).GenerateSummary(context.Background(), []NewsletterInput{
			{Title: "Tech Weekly", Content: "content", Sender: "Team", Date: "2025-01-01"},
		})
		assert.Equal(t, "# Digest\n\nKey insights here.", got)
	})

	t.Run("failure yields user-facing message", func(t *testing.T) {
		srv := modelServer(t, "", http.StatusBadGateway)
		defer srv.Close()

		got := newTestService(srv.URL).GenerateSummary(context.Background(), []NewsletterInput{
			{Title: "Tech Weekly", Content: "content", Sender: "Team", Date: "2025-01-01"},
		})
		assert.Equal(t, summaryErrorMessage, got)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
	assert.Equal(t, "", truncate("", 5))

	// Multi-byte runes are cut whole, never mid-sequence.
	assert.Equal(t, "héllo", truncate("héllo wörld", 5))
	assert.Equal(t, "日本語", truncate("日本語のニュース", 3))
	assert.True(t, utf8.ValidString(truncate("aé日本語テキスト", 4)))
}
