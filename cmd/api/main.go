package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/config"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace-fulfillment.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/orders"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/postgres"
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

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.ApplySchema(ctx, db); err != nil {
		log.Fatal("apply schema", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
	pPlaced.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, log)
	pStatus.Start(ctx)
	pInvoice := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicInvoiceIssued, 1024, log)
	pInvoice.Start(ctx)

	// Repos & handler
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Checkout:        &orders.CheckoutRepo{DB: db},
		Fulfillment:     &orders.FulfillmentRepo{DB: db},
		Reader:          &orders.Repo{DB: db},
		Redis:           rdb,
		PlacedProducer:  pPlaced,
		StatusProducer:  pStatus,
		InvoiceProducer: pInvoice,
		Service:         cfg.ServiceName,
		Log:             log,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pPlaced.Close() // close inbox -> flush & close writer
	pStatus.Close()
	pInvoice.Close()
	cancel()
	pPlaced.WaitClosed()
	pStatus.WaitClosed()
	pInvoice.WaitClosed()
}
