package main

import (
	"context"
	"flag"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/hotel-booking-saga/internal/inventory/application"
	invgrpc "github.com/dmehra2102/hotel-booking-saga/internal/inventory/infrastructure/grpc"
	invkafka "github.com/dmehra2102/hotel-booking-saga/internal/inventory/infrastructure/kafka"
	invpg "github.com/dmehra2102/hotel-booking-saga/internal/inventory/infrastructure/postgres"
	"github.com/dmehra2102/hotel-booking-saga/pkg/config"
	"github.com/dmehra2102/hotel-booking-saga/pkg/logging"
	"github.com/dmehra2102/hotel-booking-saga/pkg/platform"
	"github.com/dmehra2102/hotel-booking-saga/pkg/retry"
	"github.com/dmehra2102/hotel-booking-saga/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	var cfg config.Inventory
	if err := config.Load(*configPath, &cfg); err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	p, err := platform.Open(ctx, "inventory-service", cfg.Common, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer p.Close(context.WithoutCancel(ctx))

	store := p.OutboxStore("inventory_outbox")
	repo := invpg.NewRepository(log, p.Pool)
	engine := application.NewEngine(log, repo)

	policy := retry.Default()
	policy.Retries = cfg.Consumer.Retries
	handler := application.NewCommandHandler(log, engine, repo, store, policy)

	// The handler retries and always answers the saga, so the consumer only
	// redelivers when even the fallback reply could not be stored.
	commands := invkafka.NewConsumer(log, p.Brokers(), p.Topics().InventoryCommands, cfg.GroupOr("inventory-service"), handler, p.ConsumerOptions()...)
	sweeper := application.NewSweeper(log, engine, cfg.SweeperInterval)
	relay := p.Relay(store)

	gs, err := invgrpc.Run(cfg.GRPCAddr, invgrpc.NewServer(log, engine))
	if err != nil {
		log.Error("grpc server failed", "err", err)
		os.Exit(1)
	}
	log.Info("grpc listening", "addr", cfg.GRPCAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return commands.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		gs.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("inventory-service stopped with error", "err", err)
	}
	log.Info("inventory-service shutdown complete")
}
