// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package treat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/paperpress/internal/httputil"
)

// geminiAPIBase is the Generative Language API root. Package-level var for
// test substitution.
var geminiAPIBase = "https://generativelanguage.googleapis.com"

// GeminiBackend calls the Gemini generateContent API to correct a Markdown
// document in one shot.
type GeminiBackend struct {
	APIKey     string
	Model      string
	MaxRetries int
	Client     *http.Client
}

// geminiRequest is the request body for the generateContent API.
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

// geminiContent is one conversation turn; treatment sends a single turn
// with a single text part.
type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

// geminiPart is a text fragment within a content turn.
type geminiPart struct {
	Text string `json:"text"`
}

// geminiGenConfig carries generation settings. ThinkingBudget -1 lets the
// model decide how long to think; long papers need the headroom.
type geminiGenConfig struct {
	ThinkingConfig geminiThinkingConfig `json:"thinkingConfig"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

// geminiResponse is the subset of the generateContent response we read.
type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

// Treat sends the markdown and instruction to the Gemini API and returns
// the model's corrected document. Rate-limited calls are retried by
// httputil.DoWithRetry.
func (g *GeminiBackend) Treat(ctx context.Context, markdown, instruction string) (string, error) {
	prompt, err := renderPrompt(markdown, instruction)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			ThinkingConfig: geminiThinkingConfig{ThinkingBudget: -1},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		geminiAPIBase, url.PathEscape(g.Model), url.QueryEscape(g.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, g.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Gemini API returned %d: %s", resp.StatusCode, string(body))
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", fmt.Errorf("decoding Gemini response: %w", err)
	}

	if len(gResp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini API returned no candidates")
	}

	var text strings.Builder
	for _, part := range gResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text content in Gemini API response")
	}
	return text.String(), nil
}

// fenceInfoPattern matches the info line of a whole-document code fence,
// e.g. "```markdown" or a bare "```".
var fenceInfoPattern = regexp.MustCompile("^```[a-zA-Z]*$")

// explanationMarkers begin the trailing addenda models append despite the
// prompt telling them not to.
var explanationMarkers = []string{
	"\n### Explanation",
	"\n## Explanation",
	"\n---\nExplanation:",
}

// CleanResponse strips the chatter models wrap around corrected markdown:
// a whole-document code fence and trailing explanation sections. Fences
// inside the document are left alone.
func CleanResponse(s string) string {
	out := strings.TrimSpace(s)

	lines := strings.Split(out, "\n")
	if len(lines) > 1 && fenceInfoPattern.MatchString(strings.TrimSpace(lines[0])) {
		last := len(lines) - 1
		if strings.TrimSpace(lines[last]) == "```" {
			out = strings.Join(lines[1:last], "\n")
		}
	}

	for _, marker := range explanationMarkers {
		if i := strings.Index(out, marker); i >= 0 {
			out = out[:i]
		}
	}

	return strings.TrimSpace(out)
}
