package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/propboard/propboard/internal/models"
)

// ProplineClient fetches player prop projections from the upstream vendor
// REST API. The endpoint returns either a bare JSON array or a
// {"projections": [...]} envelope depending on the vendor API version.
type ProplineClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewProplineClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *ProplineClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProplineClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// proplineProjection mirrors the vendor payload. Unknown fields are ignored;
// the nested prediction object is carried through untouched.
type proplineProjection struct {
	ID             string          `json:"id"`
	PlayerName     string          `json:"player_name"`
	Player         string          `json:"player"` // older payloads
	Team           string          `json:"team"`
	Sport          string          `json:"sport"`
	League         string          `json:"league"`
	StatType       string          `json:"stat_type"`
	Line           float64         `json:"line"`
	Confidence     float64         `json:"confidence"`
	Odds           int             `json:"odds"`
	ExpectedValue  float64         `json:"expected_value"`
	KellyPct       float64         `json:"kelly_percentage"`
	RiskLevel      string          `json:"risk_level"`
	Recommendation string          `json:"recommendation"`
	MLPrediction   json.RawMessage `json:"ml_prediction"`
}

type projectionsEnvelope struct {
	Projections []proplineProjection `json:"projections"`
}

// FetchProjections retrieves the current projection board, optionally
// filtered by sport on the vendor side.
func (c *ProplineClient) FetchProjections(ctx context.Context, sport string) ([]models.Projection, error) {
	endpoint := fmt.Sprintf("%s/api/props/enhanced", c.baseURL)
	if sport != "" {
		endpoint += "?sport=" + url.QueryEscape(sport)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("propline request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("propline returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read propline response: %w", err)
	}

	raw, err := decodeProjections(body)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	projections := make([]models.Projection, 0, len(raw))
	for _, p := range raw {
		name := p.PlayerName
		if name == "" {
			name = p.Player
		}
		if p.ID == "" || name == "" {
			c.logger.Warnf("Skipping propline projection with missing id or player: %+v", p)
			continue
		}
		projections = append(projections, models.Projection{
			ExternalID:     p.ID,
			PlayerName:     name,
			Team:           p.Team,
			Sport:          p.Sport,
			League:         p.League,
			StatType:       p.StatType,
			Line:           p.Line,
			Confidence:     p.Confidence,
			Odds:           p.Odds,
			ExpectedValue:  p.ExpectedValue,
			KellyPct:       p.KellyPct,
			RiskLevel:      p.RiskLevel,
			Recommendation: p.Recommendation,
			MLPrediction:   datatypes.JSON(p.MLPrediction),
			FetchedAt:      now,
		})
	}

	return projections, nil
}

func decodeProjections(body []byte) ([]proplineProjection, error) {
	var list []proplineProjection
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var envelope projectionsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected projections format: %w", err)
	}
	return envelope.Projections, nil
}
