package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace-fulfillment.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/notify"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/orders"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/redisx"
)

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-notifier",
		Log:         log,
	}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderStatusChanged, workers, log)

	go func() {
		log.Info("notifier consumer started",
			zap.String("group", group),
			zap.String("topic", orders.TopicOrderStatusChanged),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleStatusChanged); err != nil {
			log.Warn("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
