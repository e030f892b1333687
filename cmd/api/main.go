package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tfinproject/shop-api/internal/cart"
	"github.com/tfinproject/shop-api/internal/catalog"
	"github.com/tfinproject/shop-api/internal/config"
	"github.com/tfinproject/shop-api/internal/httpx"
	kafkax "github.com/tfinproject/shop-api/internal/kafka"
	"github.com/tfinproject/shop-api/internal/orders"
	"github.com/tfinproject/shop-api/internal/payment"
	"github.com/tfinproject/shop-api/internal/postgres"
	"github.com/tfinproject/shop-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zlog.With().Str("service", cfg.ServiceName).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	gateway := payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey, cfg.GatewayTimeout)
	orderRepo := &orders.Repo{DB: db}

	svc := &orders.Service{
		Repo:        orderRepo,
		Gateway:     gateway,
		Publisher:   prod,
		Log:         zlog.Logger,
		ServiceName: cfg.ServiceName,
		WebhookURL:  cfg.PaymentWebhookURL,
		FrontendURL: cfg.FrontendPaymentURL,
	}
	reconciler := &orders.Reconciler{
		Repo:        orderRepo,
		Publisher:   prod,
		Redis:       rdb,
		Log:         zlog.Logger,
		ServiceName: cfg.ServiceName,
	}

	products := &catalog.Repo{DB: db}
	router := httpx.NewRouter()
	router.Route("/api", func(r chi.Router) {
		(&httpx.CatalogHandler{Products: products}).Register(r)
		(&httpx.WebhookHandler{Reconciler: reconciler}).Register(r)
		r.Group(func(r chi.Router) {
			r.Use(httpx.RequireUser)
			(&httpx.CartHandler{Store: &cart.Repo{DB: db}, Products: products}).Register(r)
			(&httpx.OrdersHandler{Service: svc, Redis: rdb}).Register(r)
		})
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		zlog.Info().Msg("shutting down")

		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		zlog.Error().Err(err).Msg("server exit")
	}
	prod.Close() // flush queued events
	prod.WaitClosed()
}
