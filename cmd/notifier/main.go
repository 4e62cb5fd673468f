package main

import (
	"context"
	stdLog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/libranova/library-service/config"
	"github.com/libranova/library-service/internal/notify"
	"github.com/libranova/library-service/pkg/kafka"
	"github.com/libranova/library-service/pkg/logger"
)

// The notifier drains lifecycle events and delivers them. Delivery here is a
// structured log line; the messenger integration plugs into the same callback.
func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Fatal("load envs from .env ", zap.Error(err))
	}
	cfg := config.NewConfig(config.WithLogLevel(zapcore.DebugLevel))
	log := logger.NewLogger(cfg.Log, "notifier")

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.NotifierConsumerGroup)
	if err != nil {
		log.Fatal("kafka.NewConsumer", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliver := func(event notify.Event) {
		log.Info("notification",
			zap.String("kind", string(event.Kind)),
			zap.Time("at", event.At),
			zap.Any("payload", event.Payload))
	}
	go kafka.Consume(ctx, consumer, notify.NewConsumer(deliver, log), log, kafka.NotificationsTopic)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))
	cancel()

	if err := consumer.Close(); err != nil {
		log.Error("consumer.Close", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}
