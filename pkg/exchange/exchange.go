package exchange

import "context"

// PriceSource 行情价格来源。
// 返回 0 或 error 都表示本轮取不到价格，调用方应跳过而不是当成有效价。
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

// ChainSource 依次尝试多个价格来源，第一个成功的结果胜出
type ChainSource struct {
	sources []PriceSource
}

func NewChainSource(sources ...PriceSource) *ChainSource {
	return &ChainSource{sources: sources}
}

func (c *ChainSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	var lastErr error
	for _, source := range c.sources {
		price, err := source.GetPrice(ctx, symbol)
		if err == nil && price > 0 {
			return price, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return 0, lastErr
	}
	return 0, ErrPriceUnavailable
}
