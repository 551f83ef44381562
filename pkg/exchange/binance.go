package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
)

// BinanceSource Binance期货行情客户端
type BinanceSource struct {
	client *futures.Client
}

// NewBinanceSource 创建Binance行情客户端
func NewBinanceSource(apiKey, secretKey, proxyURL string, testnet bool) *BinanceSource {
	var client *futures.Client
	if proxyURL != "" {
		client = futures.NewProxiedClient(apiKey, secretKey, proxyURL)
	} else {
		client = futures.NewClient(apiKey, secretKey)
	}

	if testnet {
		// 测试网URL
		futures.UseTestnet = true
	}

	return &BinanceSource{client: client}
}

// GetPrice 获取当前价格
func (b *BinanceSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(Symbol(symbol)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current price: %w", err)
	}

	if len(prices) == 0 {
		return 0, fmt.Errorf("no price data for symbol %s", symbol)
	}

	price, _ := strconv.ParseFloat(prices[0].Price, 64)
	return price, nil
}

// Kline K线数据
type Kline struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// GetKlines 获取K线数据
func (b *BinanceSource) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*Kline, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(Symbol(symbol)).
		Interval(interval).
		Limit(limit).
		Do(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	result := make([]*Kline, 0, len(klines))
	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		close, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		result = append(result, &Kline{
			OpenTime:  time.Unix(k.OpenTime/1000, 0),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: time.Unix(k.CloseTime/1000, 0),
		})
	}

	return result, nil
}

// Ping 检查连通性
func (b *BinanceSource) Ping(ctx context.Context) error {
	if err := b.client.NewPingService().Do(ctx); err != nil {
		return fmt.Errorf("failed to ping binance: %w", err)
	}
	return nil
}

// Symbol 把信号里的币种名规范化为合约交易对，如 BTC -> BTCUSDT
func Symbol(pair string) string {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	if strings.HasSuffix(pair, "USDT") || strings.HasSuffix(pair, "USDC") || strings.HasSuffix(pair, "BUSD") {
		return pair
	}
	return pair + "USDT"
}
