package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// Bounded prefixes sent to the model.
	analyzeContentLimit = 1000
	summaryContentLimit = 2000
)

// NoNewslettersMessage is returned by GenerateSummary for an empty batch,
// without calling the model.
const NoNewslettersMessage = "No newsletters to summarize."

const summaryErrorMessage = "Error generating summary. Please try again later."

// ErrUnparseable marks model output that contains no usable JSON verdict.
var ErrUnparseable = errors.New("no JSON object found in model output")

// Analysis is the structured verdict for one scanned message.
type Analysis struct {
	Title        string   `json:"title"`
	Sender       string   `json:"sender"`
	IsNewsletter bool     `json:"isNewsletter"`
	Confidence   float64  `json:"confidence"`
	Topics       []string `json:"topics"`
}

// NewsletterInput is one accepted newsletter handed to the summary prompt.
type NewsletterInput struct {
	Title   string
	Content string
	Sender  string
	Date    string
}

// GeminiService calls the generative-AI endpoint for newsletter
// classification and digest generation.
type GeminiService struct {
	APIKey  string
	Model   string
	BaseURL string

	httpClient *http.Client
}

func NewGeminiService(apiKey, model string) *GeminiService {
	return &GeminiService{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
}

// AnalyzeNewsletter decides whether a message is a newsletter. The model
// call is treated as an untrusted boundary: any failure (transport, HTTP
// status, unparseable output) degrades to a low-confidence "not a
// newsletter" verdict that passes the original subject and sender through.
// A failed call is one lost classification, never an error to the caller.
func (g *GeminiService) AnalyzeNewsletter(ctx context.Context, content, subject, sender string) *Analysis {
	prompt := fmt.Sprintf(`Analyze this email to determine if it's a newsletter and extract key information.

Email Subject: %s
Email Sender: %s
Email Content (first 1000 chars): %s

Please respond with a JSON object containing:
{
  "title": "Clean newsletter title (or subject if not newsletter)",
  "sender": "Sender name or organization",
  "isNewsletter": true/false,
  "confidence": 0.0-1.0,
  "topics": ["topic1", "topic2", "topic3"]
}

Consider these factors for newsletter identification:
- Contains unsubscribe links
- Regular publication pattern
- Formatted content with sections
- Marketing/informational content
- Sender appears to be organization/publication

Topics should be broad categories like: Technology, Business, Marketing, Design, Finance, Health, Science, etc.`,
		subject, sender, truncate(content, analyzeContentLimit))

	text, err := g.generate(ctx, prompt, 0.1, 500)
	if err != nil {
		log.Printf("[Gemini] Newsletter analysis failed: %v", err)
		return fallbackAnalysis(subject, sender)
	}

	analysis, err := parseAnalysis(text)
	if err != nil {
		log.Printf("[Gemini] Unusable analysis output: %v", err)
		return fallbackAnalysis(subject, sender)
	}
	return analysis
}

// GenerateSummary produces one markdown digest over the accepted batch. An
// empty batch returns a fixed message without calling the model; a failed
// call returns a user-facing plain-text string instead of an error.
func (g *GeminiService) GenerateSummary(ctx context.Context, newsletters []NewsletterInput) string {
	if len(newsletters) == 0 {
		return NoNewslettersMessage
	}

	var b strings.Builder
	for _, n := range newsletters {
		fmt.Fprintf(&b, "**%s** (from %s, %s)\n%s...\n\n", n.Title, n.Sender, n.Date, truncate(n.Content, summaryContentLimit))
	}

	prompt := fmt.Sprintf(`Create a comprehensive summary of these newsletters in markdown format. Focus on the most important insights, trends, and actionable information.

Newsletter Content:
%s

Please create a well-structured summary with:
1. A brief overview of the main themes
2. Key insights organized by topic
3. Important trends or developments
4. Notable quotes or statistics
5. Actionable takeaways

Format the response in clean markdown with appropriate headers, bullet points, and emphasis. Keep it concise but informative, around 500-800 words.`, b.String())

	text, err := g.generate(ctx, prompt, 0.3, 2000)
	if err != nil {
		log.Printf("[Gemini] Summary generation failed: %v", err)
		return summaryErrorMessage
	}
	return text
}

type generateRequest struct {
	Contents         []promptContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type promptContent struct {
	Parts []promptPart `json:"parts"`
}

type promptPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate issues one generateContent call and returns the first candidate's
// text. No retries.
func (g *GeminiService) generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.BaseURL, g.Model, g.APIKey)

	payload := generateRequest{
		Contents: []promptContent{
			{Parts: []promptPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no candidates returned")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// parseAnalysis locates the first balanced JSON object in free-text model
// output and unmarshals it into a verdict. This is the strict half of the
// parse policy; callers decide what to do with ErrUnparseable.
func parseAnalysis(text string) (*Analysis, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return nil, ErrUnparseable
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	if analysis.Confidence < 0 || analysis.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrUnparseable, analysis.Confidence)
	}
	return &analysis, nil
}

// extractJSON returns the first balanced {...} substring, string-literal
// aware so braces inside quoted values do not unbalance the scan.
func extractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func fallbackAnalysis(subject, sender string) *Analysis {
	return &Analysis{
		Title:        subject,
		Sender:       sender,
		IsNewsletter: false,
		Confidence:   0.1,
		Topics:       []string{},
	}
}

// truncate cuts after limit characters, never mid-rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
