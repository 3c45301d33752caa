// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strings"
	"sync/atomic"

	"kasir/internal/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Config 是整个进程的配置根。
// 配置来源优先级: 环境变量 > yaml 文件 > 内置默认值。
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	Checkout CheckoutConfig `yaml:"checkout"`
}

// CheckoutConfig 是结算协调器的业务配置。
type CheckoutConfig struct {
	// ReservationWindowSeconds 是库存锁定的 TTL，也即结算会话的有效窗口
	ReservationWindowSeconds int `yaml:"reservationWindowSeconds"`
	// SweepIntervalSeconds 是过期清扫器的轮询周期，应远小于预留窗口
	SweepIntervalSeconds int `yaml:"sweepIntervalSeconds"`
	// SweepBatchSize 是单次清扫处理的最大会话数
	SweepBatchSize int `yaml:"sweepBatchSize"`
	// RemoteTimeoutMillis 是对库存/会员等下游服务单次 RPC 的超时
	RemoteTimeoutMillis int  `yaml:"remoteTimeoutMillis"`
	ReaperEnabled       bool `yaml:"reaperEnabled"`
	// UseRedis 控制是否用 Redis 缓存活跃会话视图
	UseRedis          bool   `yaml:"useRedis"`
	OrderIDPrefix     string `yaml:"orderIdPrefix"`
	PaymentCodePrefix string `yaml:"paymentCodePrefix"`
	DefaultPageSize   int    `yaml:"defaultPageSize"`
}

type InfraConfig struct {
	Mysql struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
	} `yaml:"kafka"`
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Zookeeper struct {
		Servers []string `yaml:"servers"`
	} `yaml:"zookeeper"`
}

var currentConfig atomic.Pointer[Config]

// Init 加载配置并初始化全局状态，必须在 main 的最开始调用。
func Init() {
	cfg := defaultConfig()

	if path := getEnv("CONFIG_PATH", "config.yaml"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				logger.Logger().Fatal().Err(err).Str("path", path).Msg("invalid config file")
			}
			logger.Logger().Info().Str("path", path).Msg("config loaded")
		}
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置。
func GetCurrentConfig() *Config {
	cfg := currentConfig.Load()
	if cfg == nil {
		// 容忍测试等场景下未调用 Init 的情况
		cfg = defaultConfig()
		currentConfig.Store(cfg)
	}
	return cfg
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Checkout = CheckoutConfig{
		ReservationWindowSeconds: 900,
		SweepIntervalSeconds:     30,
		SweepBatchSize:           100,
		RemoteTimeoutMillis:      3000,
		ReaperEnabled:            true,
		UseRedis:                 true,
		OrderIDPrefix:            "ORD",
		PaymentCodePrefix:        "PAY",
		DefaultPageSize:          10,
	}
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/kasir?charset=utf8mb4&parseTime=True&loc=UTC"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	return cfg
}

// applyEnvOverrides 允许容器环境下不改文件直接覆盖基础设施地址。
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("ZOOKEEPER_SERVERS"); v != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
