package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dushixiang/vigil/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// MonitorLoop 监控循环调度器。
// 价格轮询使用秒级 ticker（cron 的最小粒度是分钟，满足不了 10s 间隔），
// 每日汇总走 cron。所有信号在同一个顺序循环里评估，保证单写者模型。
type MonitorLoop struct {
	conf           config.MonitorConf
	monitorService *MonitorService
	logger         *zap.Logger

	startTime time.Time
	tickCount int
	isRunning bool
	stopChan  chan struct{}
	cron      *cron.Cron
	cancel    context.CancelFunc
}

// NewMonitorLoop 创建监控循环
func NewMonitorLoop(conf *config.Config, monitorService *MonitorService, logger *zap.Logger) *MonitorLoop {
	return &MonitorLoop{
		conf:           conf.Monitor,
		monitorService: monitorService,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start 启动监控循环，阻塞直到 Stop 或 ctx 取消
func (l *MonitorLoop) Start(ctx context.Context) error {
	if l.isRunning {
		return fmt.Errorf("monitor loop is already running")
	}

	l.isRunning = true
	l.startTime = time.Now()
	l.stopChan = make(chan struct{})
	ctx, l.cancel = context.WithCancel(ctx)

	interval := time.Duration(l.conf.CheckIntervalSeconds) * time.Second

	l.logger.Info("monitor loop started",
		zap.Duration("interval", interval),
		zap.Int("history_limit", l.conf.PriceHistoryLimit))

	if err := l.monitorService.Notify("🤖 *Trade monitor started!*\n\nWatching active trades..."); err != nil {
		l.logger.Warn("startup message failed", zap.Error(err))
	}

	// 每日0点(UTC)发送汇总
	l.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := l.cron.AddFunc("0 0 * * *", func() {
		l.sendDailyDigest(context.Background())
	}); err != nil {
		l.isRunning = false
		return fmt.Errorf("failed to add digest cron job: %w", err)
	}
	l.cron.Start()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 启动后立即执行第一轮
	l.runTick(ctx)

	for {
		select {
		case <-ticker.C:
			l.runTick(ctx)
		case <-l.stopChan:
			l.logger.Info("monitor loop stopped by user")
			return nil
		case <-ctx.Done():
			l.logger.Info("monitor loop stopped by context")
			return ctx.Err()
		}
	}
}

func (l *MonitorLoop) runTick(ctx context.Context) {
	l.tickCount++
	if err := l.monitorService.Tick(ctx); err != nil {
		l.logger.Error("tick failed", zap.Int("tick", l.tickCount), zap.Error(err))
	}
}

func (l *MonitorLoop) sendDailyDigest(ctx context.Context) {
	digest, err := l.monitorService.DailyDigest(ctx)
	if err != nil {
		l.logger.Error("failed to build daily digest", zap.Error(err))
		return
	}
	if digest == "" {
		return
	}
	if err := l.monitorService.Notify(digest); err != nil {
		l.logger.Error("failed to send daily digest", zap.Error(err))
	}
}

// Stop 停止监控循环
func (l *MonitorLoop) Stop() {
	if !l.isRunning {
		return
	}

	l.logger.Info("stopping monitor loop...")

	if l.cron != nil {
		ctx := l.cron.Stop()
		<-ctx.Done()
	}

	if l.cancel != nil {
		l.cancel()
	}

	l.isRunning = false
	close(l.stopChan)
	l.logger.Info("monitor loop stopped")
}

// IsRunning 检查是否正在运行
func (l *MonitorLoop) IsRunning() bool {
	return l.isRunning
}

// GetStatus 获取状态信息
func (l *MonitorLoop) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"is_running":             l.isRunning,
		"tick_count":             l.tickCount,
		"start_time":             l.startTime,
		"elapsed_hours":          time.Since(l.startTime).Hours(),
		"check_interval_seconds": l.conf.CheckIntervalSeconds,
	}
}
