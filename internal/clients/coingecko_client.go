package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/finbook/internal/domain"
	"github.com/vadiminshakov/finbook/pkg/retrier"
)

const (
	coingeckoAPIKeyHeader = "x-cg-demo-api-key"
	maxErrorBodyLen       = 512
)

// CoinGeckoClient looks up USD and CNY prices on the CoinGecko simple price API.
type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// NewCoinGeckoClient creates a price feed client. maxRetries applies to
// network errors, 429 and 5xx responses only.
func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration, maxRetries int, logger *zap.Logger) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retrier: retrier.New(
			retrier.WithMaxRetries(maxRetries),
			retrier.WithOnRetry(func(attempt int, err error) {
				logger.Warn("price feed request failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			}),
		),
	}
}

// priceResponse is keyed by coin id, then by vs currency.
type priceResponse map[string]map[string]float64

// Quotes returns prices for the given coin ids. Ids are matched lowercased;
// ids the feed does not know are absent from the result.
func (c *CoinGeckoClient) Quotes(ctx context.Context, coinIDs []string) (domain.Quotes, error) {
	ids := normalizeIDs(coinIDs)
	if len(ids) == 0 {
		return domain.Quotes{}, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd,cny")
	endpoint := fmt.Sprintf("%s/simple/price?%s", c.baseURL, q.Encode())

	resp, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (priceResponse, error) {
		return c.sendRequest(ctx, endpoint)
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch prices from CoinGecko")
	}

	quotes := make(domain.Quotes, len(resp))
	for id, vs := range resp {
		quotes[strings.ToLower(id)] = domain.CurrencyPrice{
			USD: decimal.NewFromFloat(vs["usd"]),
			CNY: decimal.NewFromFloat(vs["cny"]),
		}
	}
	return quotes, nil
}

func (c *CoinGeckoClient) sendRequest(ctx context.Context, endpoint string) (priceResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retrier.Permanent(errors.Wrap(err, "failed to create HTTP request"))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(coingeckoAPIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("CoinGecko API returned status %d: %s", resp.StatusCode, truncate(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, statusErr
		}
		return nil, retrier.Permanent(statusErr)
	}

	var out priceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, retrier.Permanent(errors.Wrap(err, "failed to unmarshal response"))
	}
	return out, nil
}

func normalizeIDs(coinIDs []string) []string {
	seen := make(map[string]struct{}, len(coinIDs))
	ids := make([]string, 0, len(coinIDs))
	for _, id := range coinIDs {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func truncate(s string) string {
	if len(s) > maxErrorBodyLen {
		return s[:maxErrorBodyLen]
	}
	return s
}
