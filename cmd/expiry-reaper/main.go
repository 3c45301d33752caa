// cmd/expiry-reaper/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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
	"kasir/internal/service/checkout/port"
	"kasir/internal/zookeeper"
)

const serviceName = "checkout-expiry-reaper"

var tracer = otel.Tracer(serviceName)

// 独立部署的过期清扫进程。结账服务自身的内置清扫器关闭时使用这个入口，
// 多实例之间通过 ZooKeeper 锁保证同一轮扫描只有一个执行者。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()
	checkoutCfg := cfg.App.Checkout

	httpPort, _ := strconv.Atoi(getEnv("PORT", "8091"))

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to connect mysql")
	}
	repo, err := infrastructure.NewGormCheckoutRepository(db)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to init checkout repository")
	}

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

	writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, constants.CheckoutEventsTopic)
	events := adapter.NewCheckoutEventKafkaAdapter(writer)
	defer events.Close()

	remoteTimeout := time.Duration(checkoutCfg.RemoteTimeoutMillis) * time.Millisecond
	window := time.Duration(checkoutCfg.ReservationWindowSeconds) * time.Second

	var svc *application.CheckoutService

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        httpPort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())

			client := httpclient.NewClient(tracer, appCtx.Nacos)
			inventory := adapter.NewInventoryHTTPAdapter(client, remoteTimeout)
			members := adapter.NewMemberHTTPAdapter(client, remoteTimeout)
			carts := adapter.NewCartHTTPAdapter(client, remoteTimeout)

			svc = application.NewCheckoutService(
				repo, cache, inventory, members, carts, events, tracer,
				window, checkoutCfg.OrderIDPrefix, checkoutCfg.PaymentCodePrefix,
			)
		},
		BackgroundTasks: []func(ctx context.Context) error{
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
					svc, repo, lock, busyErr,
					time.Duration(checkoutCfg.SweepIntervalSeconds)*time.Second,
					checkoutCfg.SweepBatchSize,
				)
				return reaper.Run(ctx)
			},
		},
	})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
