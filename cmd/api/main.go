package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quiquecx/backoffice/internal/auth"
	"github.com/quiquecx/backoffice/internal/catalog"
	"github.com/quiquecx/backoffice/internal/config"
	"github.com/quiquecx/backoffice/internal/customers"
	"github.com/quiquecx/backoffice/internal/httpx"
	kafkax "github.com/quiquecx/backoffice/internal/kafka"
	"github.com/quiquecx/backoffice/internal/logging"
	"github.com/quiquecx/backoffice/internal/materials"
	"github.com/quiquecx/backoffice/internal/orders"
	"github.com/quiquecx/backoffice/internal/postgres"
	"github.com/quiquecx/backoffice/internal/redisx"
	"github.com/quiquecx/backoffice/internal/workflow"

	"github.com/go-chi/chi/v5"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for placed orders
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, logger)
	prod.Start(ctx)

	// Services & handlers
	authSvc := auth.NewService(&auth.Repo{DB: db}, cfg.JWTSecret, cfg.TokenTTL)
	engine := workflow.NewEngine(&workflow.PGStore{DB: db})

	router := httpx.NewRouter(logger)
	(&httpx.AuthHandler{Service: authSvc}).Register(router)
	router.Group(func(pr chi.Router) {
		pr.Use(httpx.RequireAuth(authSvc))
		(&httpx.ProductsHandler{Repo: &catalog.Repo{DB: db}}).Register(pr)
		(&httpx.CustomersHandler{Repo: &customers.Repo{DB: db}}).Register(pr)
		(&httpx.MaterialsHandler{Repo: &materials.Repo{DB: db}}).Register(pr)
		(&httpx.OrdersHandler{
			Engine:   engine,
			Store:    &orders.Repo{DB: db},
			Producer: prod,
			Redis:    rdb,
			Service:  cfg.ServiceName,
		}).Register(pr)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-gctx.Done():
		}
		logger.Info("shutting down")

		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("exit", zap.Error(err))
	}
	prod.Close()      // close inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
