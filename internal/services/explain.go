package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/datatypes"

	"github.com/propboard/propboard/internal/models"
	"github.com/propboard/propboard/pkg/config"
	"github.com/propboard/propboard/pkg/database"
)

const llmEndpoint = "https://api.anthropic.com/v1/messages"

// ErrExplainRateLimited is returned when the per-minute LLM budget is spent.
var ErrExplainRateLimited = errors.New("explanation rate limit exceeded, try again shortly")

// llmRequest represents the request structure for the messages API
type llmRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []llmMessage `json:"messages"`
}

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// llmResponse represents the response from the messages API
type llmResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ExplainRequest is a natural-language question about a projection.
type ExplainRequest struct {
	ProjectionID uint   `json:"projection_id" binding:"required"`
	Question     string `json:"question"`
}

// ExplainResult is free text plus the optional structured fields the model
// managed to produce.
type ExplainResult struct {
	Explanation string   `json:"explanation"`
	Confidence  float64  `json:"confidence,omitempty"`
	RiskLevel   string   `json:"risk_level,omitempty"`
	Factors     []string `json:"factors,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ExplainService produces natural-language explanations for projections via
// an LLM API, with caching, rate limiting, and best-effort persistence.
type ExplainService struct {
	db        *database.DB
	config    *config.Config
	cache     *CacheService
	apiClient *http.Client
	limiter   *rate.Limiter
}

func NewExplainService(db *database.DB, cfg *config.Config, cache *CacheService) *ExplainService {
	perMinute := cfg.LLMRateLimit
	if perMinute <= 0 {
		perMinute = 5
	}
	return &ExplainService{
		db:     db,
		config: cfg,
		cache:  cache,
		apiClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

// ExplainProjection answers a question about a projection. Default-question
// responses are cached per projection.
func (s *ExplainService) ExplainProjection(ctx context.Context, projection models.Projection, question string) (*ExplainResult, error) {
	cacheable := question == ""
	cacheKey := ExplanationCacheKey(projection.ID)

	if cacheable {
		var cached ExplainResult
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	if !s.limiter.Allow() {
		return nil, ErrExplainRateLimited
	}

	prompt := s.buildPrompt(projection, question)

	text, tokens, err := s.callLLM(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to get explanation: %w", err)
	}

	result := parseExplanation(text)

	// Store for analytics; failure must not fail the request
	s.persist(projection.ID, prompt, question, result, tokens)

	if cacheable {
		expiration := time.Duration(s.config.LLMCacheExpiration) * time.Second
		s.cache.Set(ctx, cacheKey, result, expiration)
	}

	return result, nil
}

func (s *ExplainService) buildPrompt(p models.Projection, question string) string {
	var sb strings.Builder

	sb.WriteString("You are a sports betting analyst. Analyze this player prop projection:\n\n")
	fmt.Fprintf(&sb, "Player: %s (%s)\n", p.PlayerName, p.Team)
	fmt.Fprintf(&sb, "Sport: %s", p.Sport)
	if p.League != "" && p.League != p.Sport {
		fmt.Fprintf(&sb, " / %s", p.League)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Stat: %s, Line: %.1f\n", p.StatType, p.Line)
	fmt.Fprintf(&sb, "Model confidence: %.1f%%, Odds: %d\n", p.Confidence, p.Odds)
	if p.RiskLevel != "" {
		fmt.Fprintf(&sb, "Risk level: %s\n", p.RiskLevel)
	}
	if p.KellyPct > 0 {
		fmt.Fprintf(&sb, "Kelly percentage: %.1f%%\n", p.KellyPct)
	}
	if p.Recommendation != "" {
		fmt.Fprintf(&sb, "Current recommendation: %s\n", p.Recommendation)
	}

	sb.WriteString("\n")
	if question != "" {
		fmt.Fprintf(&sb, "Question: %s\n\n", question)
	} else {
		sb.WriteString("Explain whether the over or under looks favorable and why.\n\n")
	}

	sb.WriteString("Respond in JSON with fields: explanation (string), confidence (0-100), ")
	sb.WriteString("risk_level (low/medium/high), factors (string array), suggestions (string array).")

	return sb.String()
}

func (s *ExplainService) callLLM(ctx context.Context, prompt string) (string, int, error) {
	if s.config.LLMAPIKey == "" {
		return "", 0, fmt.Errorf("LLM API key not configured")
	}

	reqBody := llmRequest{
		Model:     s.config.LLMModel,
		MaxTokens: 1024,
		Messages: []llmMessage{
			{Role: "user", Content: prompt},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, llmEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.LLMAPIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.apiClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("LLM request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read LLM response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("LLM returned status %d: %s", resp.StatusCode, string(body))
	}

	var llmResp llmResponse
	if err := json.Unmarshal(body, &llmResp); err != nil {
		return "", 0, fmt.Errorf("failed to decode LLM response: %w", err)
	}
	if len(llmResp.Content) == 0 {
		return "", 0, fmt.Errorf("LLM returned empty content")
	}

	tokens := llmResp.Usage.InputTokens + llmResp.Usage.OutputTokens
	return llmResp.Content[0].Text, tokens, nil
}

// parseExplanation extracts the structured JSON block from the model output.
// Falls back to treating the whole text as the explanation.
func parseExplanation(text string) *ExplainResult {
	var result ExplainResult

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &result); err == nil && result.Explanation != "" {
			return &result
		}
	}

	return &ExplainResult{Explanation: strings.TrimSpace(text)}
}

func (s *ExplainService) persist(projectionID uint, prompt, question string, result *ExplainResult, tokens int) {
	if s.db == nil {
		return
	}

	requestData, _ := json.Marshal(map[string]string{"question": question})
	responseData, _ := json.Marshal(result)

	record := models.Explanation{
		ProjectionID: projectionID,
		Prompt:       prompt,
		Request:      datatypes.JSON(requestData),
		Response:     datatypes.JSON(responseData),
		Confidence:   result.Confidence,
		RiskLevel:    result.RiskLevel,
		TokensUsed:   tokens,
	}

	if err := s.db.Create(&record).Error; err != nil {
		fmt.Printf("Failed to store explanation: %v\n", err)
	}
}
