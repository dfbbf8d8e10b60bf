package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*ProplineClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewProplineClient(server.URL, "test-key", 5*time.Second, logger), server
}

func TestFetchProjectionsBareArray(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/props/enhanced", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "pp_1", "player_name": "LeBron James", "team": "LAL", "sport": "NBA", "stat_type": "Points", "line": 25.5, "confidence": 85, "odds": -115, "kelly_percentage": 4.2, "risk_level": "low"},
			{"id": "pp_2", "player": "Stephen Curry", "team": "GSW", "sport": "NBA", "stat_type": "Threes", "line": 4.5, "confidence": 78}
		]`))
	})

	projections, err := client.FetchProjections(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, projections, 2)

	assert.Equal(t, "pp_1", projections[0].ExternalID)
	assert.Equal(t, "LeBron James", projections[0].PlayerName)
	assert.Equal(t, 25.5, projections[0].Line)
	assert.Equal(t, -115, projections[0].Odds)
	assert.Equal(t, "Stephen Curry", projections[1].PlayerName, "older payloads use the player field")
	assert.False(t, projections[0].FetchedAt.IsZero())
}

func TestFetchProjectionsEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"projections": [{"id": "pp_9", "player_name": "Aaron Judge", "sport": "MLB", "stat_type": "Home Runs", "line": 0.5, "confidence": 55}]}`))
	})

	projections, err := client.FetchProjections(context.Background(), "MLB")
	require.NoError(t, err)
	require.Len(t, projections, 1)
	assert.Equal(t, "pp_9", projections[0].ExternalID)
}

func TestFetchProjectionsSportQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NBA", r.URL.Query().Get("sport"))
		w.Write([]byte(`[]`))
	})

	projections, err := client.FetchProjections(context.Background(), "NBA")
	require.NoError(t, err)
	assert.Empty(t, projections)
}

func TestFetchProjectionsUpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchProjections(context.Background(), "")
	assert.ErrorContains(t, err, "status 502")
}

func TestFetchProjectionsMalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"contests": true}`))
	})

	projections, err := client.FetchProjections(context.Background(), "")
	require.NoError(t, err, "an envelope without projections decodes to an empty board")
	assert.Empty(t, projections)

	client2, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	_, err = client2.FetchProjections(context.Background(), "")
	assert.ErrorContains(t, err, "unexpected projections format")
}

func TestFetchProjectionsSkipsIncompleteRows(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": "", "player_name": "No ID", "confidence": 70},
			{"id": "pp_3", "player_name": "", "confidence": 70},
			{"id": "pp_4", "player_name": "Kept Player", "confidence": 70}
		]`))
	})

	projections, err := client.FetchProjections(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, projections, 1)
	assert.Equal(t, "Kept Player", projections[0].PlayerName)
}

func TestSyntheticBoard(t *testing.T) {
	board := SyntheticBoard(10)
	require.Len(t, board, 10)

	seen := map[string]bool{}
	for _, p := range board {
		assert.NotEmpty(t, p.ExternalID)
		assert.False(t, seen[p.ExternalID], "external IDs must be unique")
		seen[p.ExternalID] = true
		assert.GreaterOrEqual(t, p.Confidence, 55.0)
		assert.LessOrEqual(t, p.Confidence, 95.0)
		assert.NotEmpty(t, p.RiskLevel)
	}
}
