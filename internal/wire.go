//go:build wireinject
// +build wireinject

package internal

import (
	"net/http"
	"time"

	"github.com/dushixiang/vigil/pkg/exchange"
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/vigil/internal/config"
	"github.com/dushixiang/vigil/internal/handler"
	"github.com/dushixiang/vigil/internal/service"
	"github.com/dushixiang/vigil/internal/telegram"
)

const (
	telegramHTTPTimeout = 10 * time.Second
)

var (
	handlerSet = wire.NewSet(
		handler.NewMonitorHandler,
	)

	monitorSet = wire.NewSet(
		providePriceSource,
		service.NewAlertEngine,
		service.NewAlertRenderer,
		service.NewSignalService,
		service.NewMonitorService,
		service.NewMonitorLoop,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		monitorSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}

// provideTelegram provides telegram instance
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}

// providePriceSource provides the price source chain
func providePriceSource(conf *config.Config, logger *zap.Logger) exchange.PriceSource {
	binance := exchange.NewBinanceSource(
		conf.Binance.APIKey,
		conf.Binance.Secret,
		conf.Binance.ProxyURL,
		conf.Binance.Testnet,
	)

	logger.Info("Binance price source initialized",
		zap.Bool("testnet", conf.Binance.Testnet),
		zap.Bool("has_credentials", conf.Binance.APIKey != "" && conf.Binance.Secret != ""),
	)

	// Binance 取不到价时回退到 CoinGecko
	return exchange.NewChainSource(binance, exchange.NewCoinGeckoSource())
}
