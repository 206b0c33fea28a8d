package main

import (
	"context"
	"flag"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/hotel-booking-saga/internal/payment/application"
	paymentkafka "github.com/dmehra2102/hotel-booking-saga/internal/payment/infrastructure/kafka"
	paymentpg "github.com/dmehra2102/hotel-booking-saga/internal/payment/infrastructure/postgres"
	"github.com/dmehra2102/hotel-booking-saga/pkg/clock"
	"github.com/dmehra2102/hotel-booking-saga/pkg/config"
	"github.com/dmehra2102/hotel-booking-saga/pkg/logging"
	"github.com/dmehra2102/hotel-booking-saga/pkg/platform"
	"github.com/dmehra2102/hotel-booking-saga/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	var cfg config.Payment
	if err := config.Load(*configPath, &cfg); err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	p, err := platform.Open(ctx, "payment-service", cfg.Common, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer p.Close(context.WithoutCancel(ctx))

	store := p.OutboxStore("payment_outbox")
	repo := paymentpg.NewRepository(log, p.Pool, store)
	svc := application.NewService(log, repo, clock.NewSystem(), cfg.FailureThreshold)

	commands := paymentkafka.NewConsumer(log, p.Brokers(), p.Topics().PaymentCommands, cfg.GroupOr("payment-service"), svc, p.ConsumerOptions()...)
	relay := p.Relay(store)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return commands.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error("payment-service stopped with error", "err", err)
	}
	log.Info("payment-service shutdown complete")
}
