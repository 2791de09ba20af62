package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canteenworks/go-canteen-orders/internal/auth"
	"github.com/canteenworks/go-canteen-orders/internal/config"
	"github.com/canteenworks/go-canteen-orders/internal/feedback"
	"github.com/canteenworks/go-canteen-orders/internal/httpx"
	kafkax "github.com/canteenworks/go-canteen-orders/internal/kafka"
	"github.com/canteenworks/go-canteen-orders/internal/menu"
	"github.com/canteenworks/go-canteen-orders/internal/orders"
	"github.com/canteenworks/go-canteen-orders/internal/postgres"
	"github.com/canteenworks/go-canteen-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
	prod.Start(ctx)

	svc := &orders.Service{Store: &orders.Repo{DB: db}, Log: log}
	sessions := auth.NewSessions(rdb)

	router := httpx.NewRouter(log)
	oh := &httpx.OrdersHandler{
		Svc:      svc,
		Cache:    &redisx.Store{Client: rdb},
		Producer: prod,
		Service:  cfg.ServiceName,
		Log:      log,
	}
	oh.Register(router, sessions)
	(&httpx.MenuHandler{Repo: &menu.Repo{DB: db}}).Register(router, sessions)
	(&httpx.FeedbackHandler{Repo: &feedback.Repo{DB: db}}).Register(router, sessions)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
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
	prod.Close() // flush buffered events
	cancel()
	prod.WaitClosed()
}
