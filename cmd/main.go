package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopflow/fulfillment-service/internal/app"
	"github.com/shopflow/fulfillment-service/internal/carrier"
	"github.com/shopflow/fulfillment-service/internal/config"
	"github.com/shopflow/fulfillment-service/internal/events"
	"github.com/shopflow/fulfillment-service/internal/gateway"
	"github.com/shopflow/fulfillment-service/internal/handler"
	"github.com/shopflow/fulfillment-service/internal/postgres"
	"github.com/shopflow/fulfillment-service/internal/repo"
	"github.com/shopflow/fulfillment-service/internal/service"
	"github.com/shopflow/fulfillment-service/internal/shipment"
	"github.com/shopflow/fulfillment-service/pkg/cache"
	"github.com/shopflow/fulfillment-service/pkg/trm"

	"github.com/joho/godotenv"
)

const paymentProvider = "mercadopago"

func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	db, err := postgres.New(conf.Postgres)
	panicIfErr("failed to connect to db", err)
	defer db.Close()
	logger.Info("postgres connected")

	store := repo.NewPostgresRepo(db)
	txManager := trm.NewManager(db)
	orderCache := cache.NewLRUCache(conf.Cache.Capacity, conf.Cache.TTL)

	gatewayClient := gateway.NewClient(conf.Gateway)

	var tokens carrier.TokenStore
	if conf.Redis.Addr != "" {
		tokens = carrier.NewRedisTokenStore(conf.Redis.Addr)
	} else {
		// Instance-local tokens: each instance authenticates on its own.
		tokens = carrier.NewMemoryTokenStore()
	}
	courier := carrier.NewClient(conf.Carrier, tokens)

	notifier := events.NewNotifier(logger, conf.Kafka)
	runner := shipment.NewRunner(logger, store, courier, conf.Carrier, conf.Shipment)

	ledger := service.NewStockLedger(logger, store)
	reconciler := service.NewReconciler(logger, paymentProvider, store, store, store, ledger, runner, notifier)
	resolver := service.NewResolver(logger, gatewayClient, reconciler)
	orderService := service.NewOrderService(logger, txManager, store, orderCache, paymentProvider)

	webhookHandler := handler.NewWebhookHandler(logger, resolver)
	orderHandler := handler.NewOrderHandler(logger, orderService)

	app := app.New(logger, conf)

	app.SetHTTPHandlers(orderHandler, webhookHandler)
	app.SetStarters(orderCache, runner)
	app.SetClosers(runner, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	panicIfErr("failed to start app", app.Start(ctx))
	<-ctx.Done()
	panicIfErr("failed to stop app", app.Stop())
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}
