package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	c "mc.forecast/api"
	"mc.forecast/config"
	m "mc.forecast/models"
)

const (
	HostDefault = "api.coingecko.com"

	marketChartRangePath = "/api/v3/coins/%s/market_chart/range"
	maxErrorBody         = 512
)

type CoinGeckoClient struct {
	*c.Client
}

func GetClient(cfg config.MarketDataConfig) CoinGeckoClient {
	host := cfg.Host
	if host == "" {
		host = HostDefault
	}

	return CoinGeckoClient{
		c.ClientFactory(c.ClientOptions{
			Host:              host,
			APIKey:            cfg.APIKey,
			APIKeyHeader:      cfg.APIKeyHeader,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}),
	}
}

// marketChartPayload is the raw shape, every series is [[unix_ms, value], ...] and values may be null
type marketChartPayload struct {
	Prices       [][]null.Float `json:"prices"`
	MarketCaps   [][]null.Float `json:"market_caps"`
	TotalVolumes [][]null.Float `json:"total_volumes"`
}

// https://docs.coingecko.com/reference/coins-id-market-chart-range
// ranges over 90 days come back with daily granularity
func (cgc *CoinGeckoClient) GetMarketChartRange(ctx context.Context, coin, vsCurrency string, from, to time.Time) (*m.MarketChart, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("market chart range for %s is empty: %s to %s", coin, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	endpoint := buildMarketChartRangePath(coin, vsCurrency, from, to)

	response, err := cgc.Connection.Request(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("error requesting market chart for %s: %w", coin, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		return nil, fmt.Errorf("market chart for %s returned %d: %s", coin, response.StatusCode, string(body))
	}

	var payload marketChartPayload
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("error unmarshaling market chart: %w", err)
	}

	prices, err := parseSeries(payload.Prices, "prices")
	if err != nil {
		return nil, err
	}
	marketCaps, err := parseSeries(payload.MarketCaps, "market_caps")
	if err != nil {
		return nil, err
	}
	totalVolumes, err := parseSeries(payload.TotalVolumes, "total_volumes")
	if err != nil {
		return nil, err
	}

	return &m.MarketChart{
		Coin:         coin,
		VsCurrency:   vsCurrency,
		Prices:       prices,
		MarketCaps:   marketCaps,
		TotalVolumes: totalVolumes,
	}, nil
}

func buildMarketChartRangePath(coin, vsCurrency string, from, to time.Time) *url.URL {
	endpoint := &url.URL{}
	endpoint.Path = fmt.Sprintf(marketChartRangePath, url.PathEscape(coin))

	query := endpoint.Query()
	query.Set("vs_currency", vsCurrency)
	query.Set("from", strconv.FormatInt(from.Unix(), 10))
	query.Set("to", strconv.FormatInt(to.Unix(), 10))
	endpoint.RawQuery = query.Encode()

	return endpoint
}

func parseSeries(raw [][]null.Float, name string) ([]m.ChartValue, error) {
	res := make([]m.ChartValue, 0, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("error parsing %s entry %d: expected [timestamp, value], got %d elements", name, i, len(pair))
		}
		if !pair[0].Valid {
			return nil, fmt.Errorf("error parsing %s entry %d: missing timestamp", name, i)
		}

		res = append(res, m.ChartValue{
			Timestamp: time.UnixMilli(int64(pair[0].Float64)).UTC(),
			Value:     pair[1],
		})
	}

	// the provider sends these oldest first, the returns preprocessor depends on it so make sure
	slices.SortStableFunc(res, func(a, b m.ChartValue) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return res, nil
}
