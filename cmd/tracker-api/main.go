package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"covid_tracker/internal/config"
	"covid_tracker/internal/dashboard"
	"covid_tracker/internal/upstream"
	"covid_tracker/internal/viewstate"

	"github.com/sirupsen/logrus"
)

func main() {
	// 主流程：加载配置、启动状态控制器与 HTTP 服务并等待退出信号
	cfg := config.Load(":8083")

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Warn("invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logger := logrus.WithField("service", "tracker-api")

	client := upstream.New(cfg.UpstreamBaseURL, upstream.NewHTTPClient(cfg.UpstreamTimeout))

	// 上游请求的生命周期跟随进程，而不是某个 HTTP 请求
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	controller := viewstate.NewController(appCtx, client)
	defer controller.Close()

	go func() {
		if err := controller.Start().Wait(appCtx); err != nil {
			logger.WithError(err).Warn("initial load incomplete")
			return
		}
		logger.Info("initial data loaded")
	}()

	handler := dashboard.NewHandler(controller, client, cfg.ChartLastDays, logger)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		// 启动 HTTP 服务，非正常关闭才记录错误
		logger.WithField("addr", cfg.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// 监听系统信号，触发优雅退出
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
	cancelApp()
}
