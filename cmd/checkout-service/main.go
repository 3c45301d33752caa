// cmd/checkout-service/main.go
package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"kasir/internal/pkg/bootstrap"
	"kasir/internal/pkg/constants"
	"kasir/internal/pkg/httpclient"
	"kasir/internal/pkg/logger"
	"kasir/internal/pkg/mq"
	"kasir/internal/pkg/redis"
	"kasir/internal/service/checkout/application"
	"kasir/internal/service/checkout/infrastructure"
	"kasir/internal/service/checkout/infrastructure/adapter"
	"kasir/internal/service/checkout/interfaces"
	"kasir/internal/service/checkout/port"
	"kasir/internal/zookeeper"
)

const serviceName = "checkout-service"

var tracer = otel.Tracer(serviceName)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()
	checkoutCfg := cfg.App.Checkout

	httpPort, _ := strconv.Atoi(getEnv("PORT", "8090"))

	// MySQL
	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to connect mysql")
	}
	repo, err := infrastructure.NewGormCheckoutRepository(db)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to init checkout repository")
	}

	// Redis 缓存，可按配置关闭
	var cache port.CheckoutCache = infrastructure.NoopCheckoutCache{}
	if checkoutCfg.UseRedis {
		redisClient, err := redis.NewClient(context.Background(),
			cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to connect redis")
		}
		defer redisClient.Close()
		cache = infrastructure.NewRedisCheckoutCache(redisClient.GetClient())
	}

	// Kafka 事件生产者
	writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, constants.CheckoutEventsTopic)
	events := adapter.NewCheckoutEventKafkaAdapter(writer)
	defer events.Close()

	remoteTimeout := time.Duration(checkoutCfg.RemoteTimeoutMillis) * time.Millisecond
	window := time.Duration(checkoutCfg.ReservationWindowSeconds) * time.Second

	var svc *application.CheckoutService
	var handler *interfaces.Handler

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        httpPort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			// 下游调用通过 nacos 做服务发现
			client := httpclient.NewClient(tracer, appCtx.Nacos)
			inventory := adapter.NewInventoryHTTPAdapter(client, remoteTimeout)
			members := adapter.NewMemberHTTPAdapter(client, remoteTimeout)
			carts := adapter.NewCartHTTPAdapter(client, remoteTimeout)

			svc = application.NewCheckoutService(
				repo, cache, inventory, members, carts, events, tracer,
				window, checkoutCfg.OrderIDPrefix, checkoutCfg.PaymentCodePrefix,
			)
			handler = interfaces.NewHandler(svc, tracer, checkoutCfg.DefaultPageSize)
			handler.RegisterRoutes(appCtx.Mux)
		},
		BackgroundTasks: backgroundTasks(cfg, checkoutCfg, func() *application.CheckoutService { return svc }, repo),
	})
}

// backgroundTasks 按配置决定是否在服务进程内运行过期清扫器。
func backgroundTasks(cfg *bootstrap.Config, checkoutCfg bootstrap.CheckoutConfig, svc func() *application.CheckoutService, repo *infrastructure.GormCheckoutRepository) []func(ctx context.Context) error {
	if !checkoutCfg.ReaperEnabled {
		return nil
	}
	return []func(ctx context.Context) error{
		func(ctx context.Context) error {
			var lock application.SweepLock
			var busyErr error
			if len(cfg.Infra.Zookeeper.Servers) > 0 {
				conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, 10*time.Second)
				if err != nil {
					return err
				}
				defer conn.Close()
				lock = zookeeper.NewDistributedLock(conn, "checkout-expiry-sweep")
				busyErr = zookeeper.ErrLockBusy
			}
			reaper := application.NewExpiryReaper(
				svc(), repo, lock, busyErr,
				time.Duration(checkoutCfg.SweepIntervalSeconds)*time.Second,
				checkoutCfg.SweepBatchSize,
			)
			return reaper.Run(ctx)
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
