package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libranova/library-service/config"
	"github.com/libranova/library-service/internal/gateway"
	"github.com/libranova/library-service/internal/handler"
	"github.com/libranova/library-service/internal/notify"
	"github.com/libranova/library-service/internal/repository"
	"github.com/libranova/library-service/internal/scheduler"
	"github.com/libranova/library-service/internal/server"
	"github.com/libranova/library-service/internal/service/book"
	"github.com/libranova/library-service/internal/service/borrowing"
	"github.com/libranova/library-service/internal/service/fine"
	"github.com/libranova/library-service/internal/service/payment"
	"github.com/libranova/library-service/migrations"
	"github.com/libranova/library-service/pkg/kafka"
	"github.com/libranova/library-service/pkg/logger"
	"github.com/libranova/library-service/pkg/postgres"
	"github.com/libranova/library-service/pkg/redislock"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Fatal("kafka.NewProducer", zap.Error(err))
	}
	sink := notify.NewKafkaSink(producer, log)

	gw := gateway.NewRazorpayClient(cfg.Gateway, log)

	borrowingSvc := borrowing.NewService(repo, sink, log)
	fineSvc := fine.NewService(repo, sink, cfg.Fine.Multiplier, log)
	paymentSvc := payment.NewService(repo, gw, sink, log)
	bookSvc := book.NewService(repo, log)

	locker, err := redislock.New(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("redis init", zap.Error(err))
	}
	worker := scheduler.New(cfg.Scheduler, fineSvc, paymentSvc, locker, log)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("scheduler run", zap.Error(err))
		}
	}()

	h := handler.New(borrowingSvc, fineSvc, paymentSvc, bookSvc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))
	cancel()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if err = producer.Close(); err != nil {
		log.Error("producer.Close", zap.Error(err))
	}
	if err = locker.Close(); err != nil {
		log.Error("locker.Close", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
