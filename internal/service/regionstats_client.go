package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"povertyline/internal/repository"
)

// regionStatsResponse is the provider's envelope for a single region lookup.
type regionStatsResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

type regionStatsPayload struct {
	Population   *int64   `json:"population"`
	PovertyRate  *float64 `json:"poverty_rate"`
	MedianIncome *float64 `json:"median_income"`
}

// RegionStatsClient fetches demographic statistics for a region from the
// external statistics provider.
type RegionStatsClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewRegionStatsClient(baseURL, apiKey string, logger *zap.Logger) *RegionStatsClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-API-Key", apiKey)

	return &RegionStatsClient{
		httpClient: client,
		logger:     logger,
	}
}

// FetchStatistics looks up the latest statistics for a region by its
// administrative code.
func (c *RegionStatsClient) FetchStatistics(ctx context.Context, regionCode string) (*repository.RegionStatistics, error) {
	c.logger.Info("Calling statistics API",
		zap.String("region_code", regionCode),
	)

	var response regionStatsResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&response).
		Get(fmt.Sprintf("/v1/regions/%s/statistics", regionCode))

	if err != nil {
		c.logger.Error("Statistics API call failed",
			zap.Error(err),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("failed to call statistics API: %w", err)
	}

	if response.Status != 0 {
		c.logger.Error("Statistics API returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return nil, fmt.Errorf("statistics API error: %s (status: %d)", response.Msg, response.Status)
	}

	var payload regionStatsPayload
	if err := json.Unmarshal(response.Data, &payload); err != nil {
		c.logger.Error("Failed to unmarshal statistics API response",
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to unmarshal statistics: %w", err)
	}

	return &repository.RegionStatistics{
		Population:   payload.Population,
		PovertyRate:  payload.PovertyRate,
		MedianIncome: payload.MedianIncome,
		Raw:          string(response.Data),
	}, nil
}
