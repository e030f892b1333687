package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tfinproject/shop-api/internal/config"
	kafkax "github.com/tfinproject/shop-api/internal/kafka"
	"github.com/tfinproject/shop-api/internal/orders"
	"github.com/tfinproject/shop-api/internal/redisx"
	"github.com/tfinproject/shop-api/internal/statuscache"
)

var topics = []string{
	orders.TopicOrderCreated,
	orders.TopicPaymentInitiated,
	orders.TopicOrderPaid,
	orders.TopicOrderCancelled,
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zlog.With().Str("service", cfg.ServiceName+"-worker").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &statuscache.Service{Redis: rdb, Log: zlog.Logger}

	group := getenv("WORKER_GROUP", "status-cache")
	workers := mustAtoi(os.Getenv("WORKER_CONCURRENCY"), 4)

	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		topic := topic
		g.Go(func() error {
			zlog.Info().Str("topic", topic).Str("group", group).Msg("consumer started")
			return cons.Start(gctx, svc.Handle)
		})
	}
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
			zlog.Info().Msg("shutting down consumers")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zlog.Error().Err(err).Msg("worker exit")
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 {
		return def
	}
	return i
}
