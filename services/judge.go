package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"debatehub/models"
)

// Verdict is the external judge's answer for a single claim.
type Verdict struct {
	Result          string
	ConfidenceScore *float64
	Sources         []models.FactCheckSource
}

// Judge is the external fact-check collaborator. Implementations may fail or
// time out; callers treat every error as retryable.
type Judge interface {
	Judge(ctx context.Context, claim string) (*Verdict, error)
}

const judgePrompt = `You are a neutral fact checker reviewing a claim made during a live debate.

Claim: %q

Respond with ONLY a JSON object, no markdown, in this exact shape:
{"result": "<verdict: true | mostly-true | unverifiable | mostly-false | false>", "confidenceScore": <number between 0 and 1>, "sources": [{"url": "<url>", "title": "<title>"}]}

Use an empty sources array if you cannot cite any.`

// GeminiJudge verifies claims with the Gemini API.
type GeminiJudge struct {
	client *genai.Client
	model  string
}

// NewGeminiJudge creates the Gemini-backed judge. An empty apiKey falls back
// to the client's environment configuration.
func NewGeminiJudge(ctx context.Context, apiKey, model string) (*GeminiJudge, error) {
	config := &genai.ClientConfig{}
	if apiKey != "" {
		config.APIKey = apiKey
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiJudge{client: client, model: model}, nil
}

// Judge sends the claim to the model and parses the JSON verdict.
func (g *GeminiJudge) Judge(ctx context.Context, claim string) (*Verdict, error) {
	prompt := fmt.Sprintf(judgePrompt, claim)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	cleaned := cleanModelOutput(resp.Text())
	var parsed struct {
		Result          string                   `json:"result"`
		ConfidenceScore *float64                 `json:"confidenceScore"`
		Sources         []models.FactCheckSource `json:"sources"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed judge response: %v", ErrVerificationUnavailable, err)
	}
	if parsed.Result == "" {
		return nil, fmt.Errorf("%w: empty verdict", ErrVerificationUnavailable)
	}

	return &Verdict{
		Result:          parsed.Result,
		ConfidenceScore: parsed.ConfidenceScore,
		Sources:         parsed.Sources,
	}, nil
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
