package redata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"genpulse/internal/config"
	apperrors "genpulse/internal/errors"
	"genpulse/pkg/contracts/domain"
)

// apiDateFormat is the format the REData API expects for range bounds.
const apiDateFormat = "2006-01-02T15:04"

// Client provides access to the REData API (apidatos.ree.es).
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	retryBackoff time.Duration
	logger       *slog.Logger
}

// NewClient creates a REData client from configuration.
func NewClient(cfg config.APIConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestBurst),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       logger,
	}
}

// FetchRequest describes one generation-structure query.
type FetchRequest struct {
	// GeoID is the REData identifier of the autonomous community.
	GeoID int
	// Start and End bound the query, inclusive.
	Start time.Time
	End   time.Time
	// TimeTrunc is the aggregation level; "day" for this pipeline.
	TimeTrunc string
}

// generationResponse mirrors the REData JSON envelope. Each included
// entry is one technology with its time series.
type generationResponse struct {
	Included []struct {
		Type       string `json:"type"`
		Attributes struct {
			Title  string `json:"title"`
			Values []struct {
				Value      *float64 `json:"value"`
				Percentage *float64 `json:"percentage"`
				Datetime   string   `json:"datetime"`
			} `json:"values"`
		} `json:"attributes"`
	} `json:"included"`
}

// FetchGenerationStructure retrieves the generation mix for a region and
// date range and flattens it into raw records for the pipeline. Null
// values in the feed become missing markers.
func (c *Client) FetchGenerationStructure(ctx context.Context, req FetchRequest) ([]domain.RawRecord, error) {
	if req.TimeTrunc == "" {
		req.TimeTrunc = "day"
	}

	endpoint, err := c.buildURL(req)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid fetch request", err)
	}

	c.logger.InfoContext(ctx, "fetching generation structure",
		slog.Int("geo_id", req.GeoID),
		slog.String("start", req.Start.Format(apiDateFormat)),
		slog.String("end", req.End.Format(apiDateFormat)))

	body, err := c.doRequestWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var response generationResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, apperrors.NewParsingError("failed to decode generation response", err)
	}

	var records []domain.RawRecord
	for _, series := range response.Included {
		technology := series.Attributes.Title
		if technology == "" {
			technology = series.Type
		}
		for _, v := range series.Attributes.Values {
			records = append(records, domain.RawRecord{
				Timestamp:  v.Datetime,
				Technology: technology,
				Value:      floatOrNaN(v.Value),
				// The feed reports the share as a fraction; the pipeline
				// works in percent.
				Percentage: fractionToPercent(v.Percentage),
			})
		}
	}

	c.logger.InfoContext(ctx, "generation structure fetched",
		slog.Int("technologies", len(response.Included)),
		slog.Int("records", len(records)))

	return records, nil
}

// buildURL assembles the generation-structure endpoint with its query.
func (c *Client) buildURL(req FetchRequest) (string, error) {
	u, err := url.Parse(c.baseURL + "/datos/generacion/estructura-generacion")
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("start_date", req.Start.Format(apiDateFormat))
	q.Set("end_date", req.End.Format(apiDateFormat))
	q.Set("time_trunc", req.TimeTrunc)
	if req.GeoID != 0 {
		q.Set("geo_trunc", "electric_system")
		q.Set("geo_limit", "ccaa")
		q.Set("geo_ids", fmt.Sprintf("%d", req.GeoID))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// doRequestWithRetry performs a rate-limited GET with retries on server
// errors and transport failures.
func (c *Client) doRequestWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WarnContext(ctx, "retrying REData request",
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()))
			select {
			case <-ctx.Done():
				return nil, apperrors.NewNetworkError("request cancelled", ctx.Err())
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewNetworkError("rate limiter wait cancelled", err)
		}

		body, err := c.doRequest(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// Client errors are not retryable.
		if apperrors.IsType(err, apperrors.ErrTypeValidation) {
			return nil, err
		}
	}

	return nil, apperrors.NewNetworkError(
		fmt.Sprintf("REData request failed after %d attempts", c.maxRetries+1), lastErr)
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, apperrors.NewNetworkError("failed to read response body", err)
		}
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("REData rejected the request: %s", resp.Status), nil)
	default:
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("REData returned %s", resp.Status), nil)
	}
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func fractionToPercent(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v * 100
}
