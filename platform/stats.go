package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"staff-helper/model"
)

// HTTPStatsClient queries the external statistics aggregation service for
// promotion stats and warning counts.
type HTTPStatsClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPStatsClient(baseURL string) *HTTPStatsClient {
	return &HTTPStatsClient{baseURL: baseURL, client: &http.Client{}}
}

func (c *HTTPStatsClient) get(ctx context.Context, path string, guildID, userID string, v any) error {
	u := fmt.Sprintf("%s%s?guild_id=%s&user_id=%s",
		c.baseURL, path, url.QueryEscape(guildID), url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stats service returned %s for %s", resp.Status, path)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// PromotionStats implements model.StatsProvider.
func (c *HTTPStatsClient) PromotionStats(ctx context.Context, guildID, userID string) (model.PromotionStats, error) {
	var payload struct {
		TicketsResolved int     `json:"tickets_resolved"`
		SupportMessages int     `json:"support_messages"`
		HoursClockedIn  float64 `json:"hours_clocked_in"`
	}
	if err := c.get(ctx, "/promotion-stats", guildID, userID, &payload); err != nil {
		return model.PromotionStats{}, fmt.Errorf("failed to fetch promotion stats for user %s: %w", userID, err)
	}
	return model.PromotionStats{
		TicketsResolved: payload.TicketsResolved,
		SupportMessages: payload.SupportMessages,
		HoursClockedIn:  payload.HoursClockedIn,
	}, nil
}

// WarningCount implements model.WarningsProvider.
func (c *HTTPStatsClient) WarningCount(ctx context.Context, guildID, userID string) (int, error) {
	var payload struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/warnings", guildID, userID, &payload); err != nil {
		return 0, fmt.Errorf("failed to fetch warning count for user %s: %w", userID, err)
	}
	return payload.Count, nil
}
