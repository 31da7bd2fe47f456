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

	"dreamscope/internal/config"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const promptTemplate = `SYSTEM
You are "DreamScope," a careful, non-clinical dream analyst.
You DO NOT predict the future or give medical/psychological diagnosis.
You explore symbolic meanings, emotions, and personal themes to help reflection.
Be culturally neutral, nonjudgmental, and curious.
Write in the same language as the user's input, but tags must always be categorized in English.

INSTRUCTIONS
1) Read the dream and extract:
   - summary: a 1-2 sentence gist of the dream.
   - tags: broad categories (events, objects, background, characters) so users can
     browse dreams by theme. "dream of falling" -> "falling"; "driving with family"
     -> "driving", "family". Prefer reusing a tag from the existing vocabulary below
     over inventing a near-duplicate. Each tag needs a short description.
   - analysis: an interpretation grounded in astrology, oneiromancy, or eastern dream
     interpretation history; mention the source of the interpretation.
2) Recent dreams from the same dreamer are listed below as context; you may draw on
   recurring themes but interpret the new dream on its own.
3) Return only a JSON object: {"summary": string, "analysis": string,
   "tags": [{"name": string, "description": string}]}.

EXISTING TAG VOCABULARY:
%s

RECENT DREAMS:
%s

DREAM INPUT:
%s`

// GeminiClient calls the Gemini generateContent endpoint and parses its JSON
// output into an Interpretation.
type GeminiClient struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

var _ Interpreter = (*GeminiClient)(nil)

// NewGeminiClient builds the provider client from configuration.
func NewGeminiClient(cfg *config.Config) *GeminiClient {
	return &GeminiClient{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: defaultGeminiBaseURL,
		// The generation call is the one slow operation in the system; no
		// application-level timeout beyond the transport's.
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Interpret sends the dream to the hosted model and decodes the structured
// result. Any failure (transport, non-200, malformed payload) is returned
// as-is; the pipeline wraps it and does not retry.
func (g *GeminiClient) Interpret(ctx context.Context, req Request) (*Interpretation, error) {
	vocabulary := "(none yet)"
	if len(req.KnownTags) > 0 {
		vocabulary = strings.Join(req.KnownTags, "\n")
	}
	memory := req.MemoryContext
	if memory == "" {
		memory = "(no previous dreams)"
	}

	prompt := fmt.Sprintf(promptTemplate, vocabulary, memory, req.Content)

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.7,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, g.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("malformed generation response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("generation response contained no candidates")
	}

	var result Interpretation
	text := decoded.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("generation output is not the expected JSON shape: %w", err)
	}
	if result.Summary == "" && result.Analysis == "" {
		return nil, fmt.Errorf("generation output missing summary and analysis")
	}

	return &result, nil
}
