package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port           int           `mapstructure:"port"`
		RequestTimeout time.Duration `mapstructure:"requestTimeout"` // applied per request at the HTTP boundary
	} `mapstructure:"server"`
	Database struct {
		Driver              string `mapstructure:"driver"` // postgres or memory
		PostgresDSN         string `mapstructure:"postgresDSN"`
		Schema              string `mapstructure:"schema"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	NATS struct {
		URL    string             `mapstructure:"url"`
		Import ConsumerNatsConfig `mapstructure:"import"`
		Events EventsNatsConfig   `mapstructure:"events"`
	} `mapstructure:"nats"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		StatsTTL time.Duration `mapstructure:"statsTTL"`
	} `mapstructure:"redis"`
	Auth struct {
		JWTSecret   string `mapstructure:"jwtSecret"`
		JWTIssuer   string `mapstructure:"jwtIssuer"`
		JWTAudience string `mapstructure:"jwtAudience"`
	} `mapstructure:"auth"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	WorkerPools struct {
		Events WorkerPoolConfig `mapstructure:"events"`
	} `mapstructure:"workerPools"`
}

// WorkerPoolConfig holds configuration for an ants worker pool
type WorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	MaxBlock   time.Duration `mapstructure:"maxBlock"`   // Max time to block when submitting if queue full
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// ConsumerNatsConfig holds configuration specific to a NATS consumer
type ConsumerNatsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxAge       int64         `mapstructure:"maxAge"` // max age of messages in day
	Stream       string        `mapstructure:"stream"`
	Consumer     string        `mapstructure:"consumer"` // durable name
	QueueGroup   string        `mapstructure:"group"`
	SubjectList  []string      `mapstructure:"subjectList"`
	MaxDeliver   int           `mapstructure:"maxDeliver"`
	NakBaseDelay time.Duration `mapstructure:"nakBaseDelay"`
	NakMaxDelay  time.Duration `mapstructure:"nakMaxDelay"`
}

// EventsNatsConfig configures domain event publication
type EventsNatsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Stream        string `mapstructure:"stream"`
	SubjectPrefix string `mapstructure:"subjectPrefix"`
	MaxAge        int64  `mapstructure:"maxAge"` // days
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requestTimeout", 15*time.Second)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.schema", "public")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)
	v.SetDefault("redis.statsTTL", 30*time.Second)

	v.SetDefault("nats.import.stream", "calllist_import")
	v.SetDefault("nats.import.consumer", "calllist-import-consumer")
	v.SetDefault("nats.import.group", "calllist-import")
	v.SetDefault("nats.import.subjectList", []string{"v1.calllist.items.import.>"})
	v.SetDefault("nats.import.maxAge", 7)
	v.SetDefault("nats.import.maxDeliver", 5)
	v.SetDefault("nats.import.nakBaseDelay", time.Second)
	v.SetDefault("nats.import.nakMaxDelay", time.Minute)
	v.SetDefault("nats.events.stream", "calllist_events")
	v.SetDefault("nats.events.subjectPrefix", "v1.calllist.events")
	v.SetDefault("nats.events.maxAge", 14)

	v.SetDefault("workerPools.events.poolSize", 10)
	v.SetDefault("workerPools.events.queueSize", 10000)
	v.SetDefault("workerPools.events.maxBlock", time.Second)
	v.SetDefault("workerPools.events.expiryTime", time.Minute)

	v.SetConfigName("default")
	v.SetConfigType("yaml")

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.daisi-call-campaign-engine")
	v.AddConfigPath("/etc/daisi-call-campaign-engine")

	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		v.Set("redis.addr", addr)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		v.Set("auth.jwtSecret", secret)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(append([]string{}, parts...), tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
