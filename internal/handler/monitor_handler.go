package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dushixiang/vigil/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MonitorHandler 信号监控HTTP处理器
type MonitorHandler struct {
	monitorService *service.MonitorService
	monitorLoop    *service.MonitorLoop
	logger         *zap.Logger
	loopCtx        context.Context
	loopCancel     context.CancelFunc
}

// NewMonitorHandler 创建监控处理器
func NewMonitorHandler(
	monitorService *service.MonitorService,
	monitorLoop *service.MonitorLoop,
	logger *zap.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		monitorLoop:    monitorLoop,
		logger:         logger,
	}
}

// GetStatus 获取监控状态
// GET /api/monitor/status
func (h *MonitorHandler) GetStatus(c echo.Context) error {
	ctx := c.Request().Context()

	trades, err := h.monitorService.ActiveTrades(ctx)
	if err != nil {
		h.logger.Error("failed to get active trades", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]interface{}{
			"loop": h.monitorLoop.GetStatus(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"loop":          h.monitorLoop.GetStatus(),
		"active_trades": len(trades),
	})
}

// GetTrades 获取信号列表
// GET /api/monitor/trades?scope=active|finished&limit=20
func (h *MonitorHandler) GetTrades(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var err error
	var trades interface{}
	if c.QueryParam("scope") == "finished" {
		trades, err = h.monitorService.FinishedTrades(ctx, limit)
	} else {
		trades, err = h.monitorService.ActiveTrades(ctx)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": trades,
	})
}

// GetTrade 按ID查询信号
// GET /api/monitor/trades/:id
func (h *MonitorHandler) GetTrade(c echo.Context) error {
	ctx := c.Request().Context()

	trade, err := h.monitorService.GetTrade(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	alerts, err := h.monitorService.TradeAlerts(ctx, trade.ID)
	if err != nil {
		h.logger.Error("failed to get trade alerts", zap.Error(err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"trade":  trade,
		"alerts": alerts,
	})
}

// GetAlerts 获取最近的提醒记录
// GET /api/monitor/alerts?limit=50
func (h *MonitorHandler) GetAlerts(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	alerts, err := h.monitorService.RecentAlerts(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(alerts),
		"data":  alerts,
	})
}

type submitSignalRequest struct {
	Text string `json:"text" validate:"required"`
}

// SubmitSignal 提交信号文本开始监控
// POST /api/monitor/signal
func (h *MonitorHandler) SubmitSignal(c echo.Context) error {
	var req submitSignalRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	trade, err := h.monitorService.SubmitSignal(c.Request().Context(), req.Text)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"trade": trade,
	})
}

// CloseTrade 手动关闭某个交易对的监控
// POST /api/monitor/trades/:pair/close
func (h *MonitorHandler) CloseTrade(c echo.Context) error {
	count, err := h.monitorService.CloseByPair(c.Request().Context(), c.Param("pair"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"closed": count,
	})
}

// Start 启动监控循环
// POST /api/monitor/start
func (h *MonitorHandler) Start(c echo.Context) error {
	if h.monitorLoop.IsRunning() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "monitor loop is already running",
		})
	}

	h.loopCtx, h.loopCancel = context.WithCancel(context.Background())

	go func() {
		if err := h.monitorLoop.Start(h.loopCtx); err != nil {
			h.logger.Error("monitor loop error", zap.Error(err))
		}
	}()

	h.logger.Info("monitor loop started via API")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "monitor loop started",
	})
}

// Stop 停止监控循环
// POST /api/monitor/stop
func (h *MonitorHandler) Stop(c echo.Context) error {
	if !h.monitorLoop.IsRunning() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "monitor loop is not running",
		})
	}

	h.monitorLoop.Stop()
	if h.loopCancel != nil {
		h.loopCancel()
	}

	h.logger.Info("monitor loop stopped via API")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "monitor loop stopped",
	})
}

// RegisterRoutes 注册路由
func (h *MonitorHandler) RegisterRoutes(g *echo.Group) {
	monitor := g.Group("/monitor")

	// 查询接口
	monitor.GET("/status", h.GetStatus)
	monitor.GET("/trades", h.GetTrades)
	monitor.GET("/trades/:id", h.GetTrade)
	monitor.GET("/alerts", h.GetAlerts)

	// 控制接口
	monitor.POST("/signal", h.SubmitSignal)
	monitor.POST("/trades/:pair/close", h.CloseTrade)
	monitor.POST("/start", h.Start)
	monitor.POST("/stop", h.Stop)
}
