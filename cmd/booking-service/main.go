package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/hotel-booking-saga/internal/booking/application"
	bookinggrpc "github.com/dmehra2102/hotel-booking-saga/internal/booking/infrastructure/grpc"
	bookinghttp "github.com/dmehra2102/hotel-booking-saga/internal/booking/infrastructure/http"
	bookingkafka "github.com/dmehra2102/hotel-booking-saga/internal/booking/infrastructure/kafka"
	bookingpg "github.com/dmehra2102/hotel-booking-saga/internal/booking/infrastructure/postgres"
	"github.com/dmehra2102/hotel-booking-saga/pkg/clock"
	"github.com/dmehra2102/hotel-booking-saga/pkg/config"
	"github.com/dmehra2102/hotel-booking-saga/pkg/logging"
	"github.com/dmehra2102/hotel-booking-saga/pkg/platform"
	"github.com/dmehra2102/hotel-booking-saga/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	var cfg config.Booking
	if err := config.Load(*configPath, &cfg); err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	p, err := platform.Open(ctx, "booking-service", cfg.Common, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer p.Close(context.WithoutCancel(ctx))

	clk := clock.NewSystem()
	store := p.OutboxStore("booking_outbox")
	repo := bookingpg.NewRepository(log, p.Pool, store)

	inv, err := bookinggrpc.NewInventoryClient(log, cfg.InventoryAddr)
	if err != nil {
		log.Error("inventory client failed", "err", err)
		os.Exit(1)
	}
	defer inv.Close()

	orch := application.NewOrchestrator(log, repo, clk, cfg.HoldDuration)
	sagaConsumer := bookingkafka.NewSagaConsumer(log, p.Brokers(), p.Topics().Events, cfg.GroupOr("booking-saga"), orch, p.ConsumerOptions()...)
	relay := p.Relay(store)

	svc := application.NewService(log, repo, store, inv, clk)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      bookinghttp.NewHandler(log, svc).Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return sagaConsumer.Run(gctx) })
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("booking-service stopped with error", "err", err)
	}
	log.Info("booking-service shutdown complete")
}
