package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/libranova/library-service/internal/gateway"
	"github.com/libranova/library-service/internal/scheduler"
	"github.com/libranova/library-service/internal/server"
	"github.com/libranova/library-service/pkg/kafka"
	"github.com/libranova/library-service/pkg/logger"
	"github.com/libranova/library-service/pkg/postgres"
	"github.com/libranova/library-service/pkg/redislock"
)

type FineConfig struct {
	Multiplier float64 `yaml:"multiplier" envconfig:"FINE_MULTIPLIER" default:"2.0"`
}

type Config struct {
	Server    server.Config    `yaml:"server"`
	Database  postgres.Config  `yaml:"database"`
	Kafka     kafka.Config     `yaml:"kafka"`
	Redis     redislock.Config `yaml:"redis"`
	Gateway   gateway.Config   `yaml:"gateway"`
	Fine      FineConfig       `yaml:"fine"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Log       logger.Log       `yaml:"log"`
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		for _, op := range ops {
			op(&config)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
