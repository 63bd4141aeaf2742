package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"shopping-assistant-api/internal/models"
)

// ChatConfig configures the chat completion client.
type ChatConfig struct {
	APIKey  string
	BaseURL string // e.g. https://api.deepseek.com
	Model   string
	Timeout time.Duration
}

// ChatAdvisor asks an OpenAI-compatible chat completion API for analyses.
type ChatAdvisor struct {
	cfg    ChatConfig
	client *http.Client
}

func NewChatAdvisor(cfg ChatConfig) *ChatAdvisor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ChatAdvisor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatAdvisor) Analyze(ctx context.Context, profile *models.BuyerProfile) (models.Analysis, error) {
	history, err := json.MarshalIndent(profile.History, "", "  ")
	if err != nil {
		return models.Analysis{}, fmt.Errorf("%w: encode history: %v", ErrCollaborator, err)
	}

	prompt := fmt.Sprintf(`Analyze this buyer's purchase history and provide insights:

Buyer ID: %s
Purchase History:
%s

Please provide:
1. Key buying patterns and preferences
2. Preferred product categories
3. Price sensitivity analysis
4. Shopping frequency patterns

Respond in JSON format with keys: patterns, preferred_categories, price_sensitivity, frequency_analysis`,
		profile.UserID, history)

	content, err := c.complete(ctx, "advisor.analyze",
		"You are an expert shopping behavior analyst. Provide detailed insights in JSON format.",
		prompt, 0.7, 1000)
	if err != nil {
		return models.Analysis{}, err
	}

	var analysis models.Analysis
	if err := decodeEmbeddedJSON(content, &analysis); err != nil {
		return models.Analysis{}, err
	}
	if analysis.PreferredCategories == nil {
		analysis.PreferredCategories = profile.Categories()
	}
	return analysis, nil
}

func (c *ChatAdvisor) RecommendCategory(ctx context.Context, profile *models.BuyerProfile, analysis models.Analysis) (models.Recommendation, error) {
	pr := profile.PriceStats()
	prompt := fmt.Sprintf(`Based on this buyer's analysis, recommend a new product category:

Current preferred categories: %s
Price range: $%.2f - $%.2f (avg: $%.2f)
Buying patterns: %s
Price sensitivity: %s

Recommend a NEW product category (different from current ones) that would appeal to this buyer.
Provide the recommendation in JSON format with keys: recommended_category, reasoning, suggested_price_range`,
		strings.Join(profile.Categories(), ", "), pr.Min, pr.Max, pr.Avg,
		orDefault(analysis.Patterns, "Not available"), orDefault(analysis.PriceSensitivity, "moderate"))

	content, err := c.complete(ctx, "advisor.recommend",
		"You are a product recommendation expert. Suggest new product categories based on buyer behavior.",
		prompt, 0.8, 500)
	if err != nil {
		return models.Recommendation{}, err
	}

	var rec models.Recommendation
	if err := decodeEmbeddedJSON(content, &rec); err != nil {
		return models.Recommendation{}, err
	}
	rec.RecommendedCategory = strings.ToLower(strings.TrimSpace(rec.RecommendedCategory))
	if rec.RecommendedCategory == "" {
		return models.Recommendation{}, fmt.Errorf("%w: response has no recommended_category", ErrCollaborator)
	}
	if rec.SuggestedPriceRange == (models.PriceRange{}) {
		rec.SuggestedPriceRange = pr
	}
	return rec, nil
}

func (c *ChatAdvisor) Justify(ctx context.Context, profile *models.BuyerProfile, rec models.Recommendation) (string, error) {
	prompt := fmt.Sprintf(`Explain why this product recommendation makes sense for the buyer:

Buyer ID: %s
Recommended Category: %s
Reasoning: %s

Provide a friendly, conversational explanation (2-3 sentences) of why this recommendation is perfect for this buyer.`,
		profile.UserID, orDefault(rec.RecommendedCategory, "N/A"), orDefault(rec.Reasoning, "N/A"))

	content, err := c.complete(ctx, "advisor.justify",
		"You are a friendly shopping assistant explaining recommendations in a conversational tone.",
		prompt, 0.7, 200)
	if err != nil {
		return "", err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: empty justification", ErrCollaborator)
	}
	return content, nil
}

// complete sends one system + user exchange and returns the reply text.
func (c *ChatAdvisor) complete(ctx context.Context, spanName, system, prompt string, temperature float64, maxTokens int) (string, error) {
	ctx, span := otel.Tracer("shopping-assistant-api").Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.model", c.cfg.Model),
		attribute.Int("ai.prompt_length", len(prompt)),
	)

	content, err := c.do(ctx, chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return content, nil
}

func (c *ChatAdvisor) do(ctx context.Context, req chatRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: API key not configured", ErrCollaborator)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrCollaborator, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrCollaborator, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCollaborator, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrCollaborator, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrCollaborator, resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrCollaborator, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrCollaborator)
	}
	return parsed.Choices[0].Message.Content, nil
}

// decodeEmbeddedJSON decodes the outermost {...} found in free-form text.
func decodeEmbeddedJSON(content string, dest interface{}) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in response", ErrCollaborator)
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), dest); err != nil {
		return fmt.Errorf("%w: unparsable JSON in response: %v", ErrCollaborator, err)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
