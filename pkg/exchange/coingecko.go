package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrPriceUnavailable 所有价格来源都取不到有效价格
var ErrPriceUnavailable = errors.New("price unavailable from all sources")

// coinIdMap 常见币种到CoinGecko id的映射，不在表里的币种直接用小写币种名
var coinIdMap = map[string]string{
	"sei":  "sei-network",
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"sol":  "solana",
	"tia":  "celestia",
	"bnb":  "binancecoin",
	"ada":  "cardano",
	"dot":  "polkadot",
	"link": "chainlink",
	"uni":  "uniswap",
}

// CoinGeckoSource CoinGecko备用价格来源，只在主来源失败时使用
type CoinGeckoSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoSource 创建CoinGecko客户端
func NewCoinGeckoSource() *CoinGeckoSource {
	return &CoinGeckoSource{
		baseURL: "https://api.coingecko.com/api/v3",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetPrice 获取当前美元价格
func (c *CoinGeckoSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	coin := strings.ToLower(strings.TrimSuffix(Symbol(symbol), "USDT"))
	coinId, ok := coinIdMap[coin]
	if !ok {
		coinId = coin
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, coinId)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	var data map[string]map[string]float64
	if err := json.Unmarshal(body, &data); err != nil {
		return 0, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if prices, exists := data[coinId]; exists {
		if usd, exists := prices["usd"]; exists && usd > 0 {
			return usd, nil
		}
	}

	return 0, fmt.Errorf("no price data for symbol %s", symbol)
}
