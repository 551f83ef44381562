package internal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dushixiang/vigil/internal/config"
	"github.com/dushixiang/vigil/internal/handler"
	"github.com/dushixiang/vigil/internal/models"
	"github.com/dushixiang/vigil/internal/service"
	"github.com/dushixiang/vigil/internal/telegram"
	"github.com/dushixiang/vigil/pkg/nostd"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewVigilApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewVigilApp() orz.Application {
	return &VigilApp{}
}

var _ orz.Application = (*VigilApp)(nil)

type AppComponents struct {
	MonitorHandler *handler.MonitorHandler

	MonitorLoop    *service.MonitorLoop
	MonitorService *service.MonitorService
	SignalService  *service.SignalService

	tg *telegram.Telegram
}

type VigilApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *VigilApp) GetComponents() *AppComponents {
	return r.components
}

func (r *VigilApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	conf.Normalize()

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Trade{}, models.AlertRecord{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	api := e.Group("/api")
	{
		api.GET("/health", func(c echo.Context) error {
			return c.JSON(http.StatusOK, orz.Map{"status": "ok"})
		})

		if r.components.MonitorHandler != nil {
			r.components.MonitorHandler.RegisterRoutes(api)
		}
	}

	return nil
}

func (r *VigilApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Vigil Signal Monitor Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.MonitorLoop == nil {
		return fmt.Errorf("monitor loop not available, please check configuration")
	}

	if components.tg != nil {
		components.tg.RegisterHandlers(components.MonitorService, components.MonitorLoop)
		components.tg.Start()
		logger.Info("telegram bot started")
	}

	logger.Info("Monitor loop initialized, starting...")

	go func() {
		if err := components.MonitorLoop.Start(context.Background()); err != nil {
			logger.Error("monitor loop error", zap.Error(err))
		}
	}()
	return nil
}
