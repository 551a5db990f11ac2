package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/unweightedai/kol-trust-service/internal/chain"
	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/errs"
	"github.com/unweightedai/kol-trust-service/internal/social"
)

const systemPrompt = `You are an AI analyst specializing in cryptocurrency and Solana token analysis.
Your task is to analyze social-media content and token patterns to:
1. Identify potential scams or suspicious behavior
2. Analyze token contract patterns
3. Evaluate KOL (Key Opinion Leader) credibility
4. Assess risk levels in token calls

Provide concise, factual analyses without speculation. Always respond
with the requested JSON object. Use null for any numeric field you
cannot determine confidently and "unknown" for string fields.`

// OpenAIAnalyzer implements Analyzer using the OpenAI chat API
type OpenAIAnalyzer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIAnalyzer creates an analyzer from configuration
func NewOpenAIAnalyzer(cfg config.OpenAIConfig) *OpenAIAnalyzer {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4TurboPreview
	}
	return &OpenAIAnalyzer{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

// AnalyzeContent implements the Analyzer interface
func (a *OpenAIAnalyzer) AnalyzeContent(ctx context.Context, posts []social.Post) (*ContentAnalysis, error) {
	texts := make([]string, 0, len(posts))
	for _, p := range posts {
		texts = append(texts, p.Text)
	}

	prompt := fmt.Sprintf(`Analyze these posts for cryptocurrency-related patterns and risks:
%s

Output format is JSON:
{
    "sentiment": float between -1 and 1 or null,
    "risk_indicators": ["indicator", ...],
    "credibility_score": float between 0 and 1 or null
}`, strings.Join(texts, "\n---\n"))

	resp, err := a.createChatCompletion(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var analysis ContentAnalysis
	if err := json.Unmarshal([]byte(resp), &analysis); err != nil {
		return nil, &errs.ExternalServiceError{Service: "openai", Err: fmt.Errorf("failed to parse content analysis: %w", err)}
	}
	return &analysis, nil
}

// AnalyzeTokenPattern implements the Analyzer interface
func (a *OpenAIAnalyzer) AnalyzeTokenPattern(ctx context.Context, token *chain.TokenData) (*TokenPatternAnalysis, error) {
	prompt := fmt.Sprintf(`Analyze this token data for risk patterns:
Address: %s
Liquidity: %s
Holder Count: %d
Age: %d days
Suspicious Activity Flag: %t

Output format is JSON:
{
    "risk_level": "High" | "Medium" | "Low" | "unknown",
    "warning_flags": ["flag", ...],
    "recommendation": string
}`, token.Address, token.Liquidity.String(), token.HolderCount, token.AgeDays, token.Suspicious)

	resp, err := a.createChatCompletion(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var analysis TokenPatternAnalysis
	if err := json.Unmarshal([]byte(resp), &analysis); err != nil {
		return nil, &errs.ExternalServiceError{Service: "openai", Err: fmt.Errorf("failed to parse token analysis: %w", err)}
	}
	if analysis.RiskLevel == "" {
		analysis.RiskLevel = RiskLevelUnknown
	}
	return &analysis, nil
}

// EvaluateCredibility implements the Analyzer interface
func (a *OpenAIAnalyzer) EvaluateCredibility(ctx context.Context, input CredibilityInput) (*KOLCredibility, error) {
	prompt := fmt.Sprintf(`Evaluate this KOL's credibility:
Handle: %s
Total Calls: %d
Success Rate: %.2f
Account Age: %d days
Engagement Rate: %.2f

Output format is JSON:
{
    "credibility_score": float between 0 and 1 or null,
    "risk_factors": ["factor", ...],
    "overall_assessment": string
}`, input.Handle, input.TotalCalls, input.SuccessRate, input.AccountAgeDays, input.EngagementRate)

	resp, err := a.createChatCompletion(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var credibility KOLCredibility
	if err := json.Unmarshal([]byte(resp), &credibility); err != nil {
		return nil, &errs.ExternalServiceError{Service: "openai", Err: fmt.Errorf("failed to parse credibility evaluation: %w", err)}
	}
	return &credibility, nil
}

// createChatCompletion is a helper function for OpenAI API calls
func (a *OpenAIAnalyzer) createChatCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       a.model,
			MaxTokens:   a.maxTokens,
			Temperature: a.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		},
	)
	if err != nil {
		return "", &errs.ExternalServiceError{Service: "openai", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &errs.ExternalServiceError{Service: "openai", Err: fmt.Errorf("no response choices returned")}
	}

	return resp.Choices[0].Message.Content, nil
}
