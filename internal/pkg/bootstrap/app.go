// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"kasir/internal/pkg/logger"
	"kasir/internal/pkg/nacos"
	"kasir/internal/pkg/tracing"
	"kasir/internal/pkg/utils"

	"golang.org/x/sync/errgroup"
)

type AppCtx struct {
	Mux   *http.ServeMux
	Nacos *nacos.Client
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx) // 一个函数，允许每个服务注册自己独特的 HTTP 路由
	// BackgroundTasks 是随服务生命周期运行的后台任务（如过期清扫器）。
	// 传入的 context 在服务关停时被取消，任务返回后进程才退出。
	BackgroundTasks []func(ctx context.Context) error
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	logger.Init(info.ServiceName)

	// 1. 从环境变量读取通用配置
	nacosServerAddrs := getEnv("NACOS_SERVER_ADDRS", "localhost:8848")
	nacosNamespace := getEnv("NACOS_NAMESPACE", "")
	nacosGroup := getEnv("NACOS_GROUP", "DEFAULT_GROUP")

	// 2. 初始化核心组件
	// a. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, GetCurrentConfig().Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	namingClient, err := nacos.NewNacosClient(nacosServerAddrs, nacosNamespace, nacosGroup)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize nacos client")
	}

	// 3. 获取本机 IP 用于注册
	ip, err := utils.GetOutboundIP()
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to get outbound IP address")
	}

	// 4. 执行服务注册
	if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to register service with nacos")
	}

	// 5. 创建 HTTP Server，并与后台任务一起交给 errgroup 管理
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Nacos: namingClient})
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Logger().Info().Str("addr", server.Addr).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	for _, task := range info.BackgroundTasks {
		task := task
		g.Go(func() error { return task(gctx) })
	}

	// 6. 优雅关停：等待退出信号或任一任务异常退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Logger().Info().Str("signal", sig.String()).Msgf("Shutting down service %s...", info.ServiceName)
	case <-gctx.Done():
		logger.Logger().Error().Msg("background task exited unexpectedly, shutting down")
	}

	// 创建一个有超时的 context，用于关停流程
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// 7. 在关停流程中，按顺序执行清理操作 (后进先出)
	// a. 从 Nacos 注销服务
	if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		logger.Logger().Error().Err(err).Msg("Error deregistering from Nacos")
	}

	// b. 关闭 HTTP 服务器并等待后台任务收尾
	if err := server.Shutdown(ctx); err != nil {
		logger.Logger().Error().Err(err).Msg("Error shutting down http server")
	}
	cancel()
	if err := g.Wait(); err != nil {
		logger.Logger().Error().Err(err).Msg("task finished with error")
	}

	// c. 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := tp.Shutdown(ctx); err != nil {
		logger.Logger().Error().Err(err).Msg("Error shutting down tracer provider")
	}

	logger.Logger().Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
}
