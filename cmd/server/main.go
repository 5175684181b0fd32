package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vogiaan1904/transit-reservation/config"
	httpDelivery "github.com/vogiaan1904/transit-reservation/internal/delivery/http"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/consumer"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/transit-reservation/internal/inventory"
	"github.com/vogiaan1904/transit-reservation/internal/repository/memory"
	redisrepo "github.com/vogiaan1904/transit-reservation/internal/repository/redis"
	"github.com/vogiaan1904/transit-reservation/internal/service"
	pkgKafka "github.com/vogiaan1904/transit-reservation/pkg/kafka"
	pkgLog "github.com/vogiaan1904/transit-reservation/pkg/logger"
	pkgRedis "github.com/vogiaan1904/transit-reservation/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	// Redis read model (optional)
	var readModel redisrepo.ReadModelRepository
	var redisCli *goredis.Client
	if cfg.Redis.Enabled {
		redisCli, err = pkgRedis.Connect(ctx, cfg.Redis)
		if err != nil {
			l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
		}
		defer pkgRedis.Disconnect(redisCli)
		readModel = redisrepo.NewRedisReadModelRepository(redisCli, l)
	}

	// Kafka producer and consumer (optional)
	prod := producer.NewNoopProducer()
	var kSyncProd sarama.SyncProducer
	var kConsGr sarama.ConsumerGroup
	if cfg.Kafka.Enabled {
		kSyncProd, err = pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		defer kSyncProd.Close()
		prod = producer.NewProducer(kSyncProd, l)

		kConsGr, err = pkgKafka.NewConsumer(pkgKafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.ConsumerGroupID,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka consumer: %v", err)
		}
		defer kConsGr.Close()
	}

	// Repositories
	inv := inventory.NewStore()
	tripRepo := memory.NewTripRepository()
	holdRepo := memory.NewHoldRepository()
	ticketRepo := memory.NewTicketRepository()
	tokenRepo := memory.NewTransferTokenRepository()
	idemRepo := memory.NewIdempotencyRepository()
	bookingRepo := memory.NewBookingRepository()

	// Services
	tripSvc := service.NewTripService(tripRepo, inv, readModel, l)
	holdSvc := service.NewHoldService(holdRepo, tripRepo, inv, prod, cfg.Booking, l)
	ticketSvc := service.NewTicketService(ticketRepo, tripRepo, inv, readModel, prod, cfg.Booking, l)
	paySvc := service.NewPaymentService(holdRepo, ticketRepo, idemRepo, ticketSvc, inv, prod, l)
	transferSvc := service.NewTransferService(ticketRepo, tokenRepo, readModel, prod, cfg.Booking, l)
	cancelSvc := service.NewCancellationService(ticketRepo, inv, readModel, prod, cfg.Booking, l)
	rtSvc := service.NewRoundTripService(bookingRepo, holdSvc, paySvc, l)

	// Background hold sweeper
	sweeper := service.NewHoldSweeper(holdRepo, ticketRepo, inv, prod, cfg.Booking, l)
	if err := sweeper.Start(ctx); err != nil {
		l.Fatalf(ctx, "Failed to start hold sweeper: %v", err)
	}

	// Payment webhook consumer
	if kConsGr != nil {
		cons := consumer.NewConsumer(kConsGr, paySvc, rtSvc, l)
		if err := cons.Start(ctx); err != nil {
			l.Fatalf(ctx, "Failed to start payment consumer: %v", err)
		}
	}

	// HTTP server
	h := httpDelivery.NewHTTPHandler(tripSvc, holdSvc, paySvc, ticketSvc, transferSvc, cancelSvc, rtSvc, sweeper, l)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      httpDelivery.NewRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		l.Infof(ctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatalf(ctx, "Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info(ctx, "Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Errorf(ctx, "HTTP server shutdown: %v", err)
	}

	cancel()
	if err := sweeper.Stop(); err != nil {
		l.Errorf(ctx, "Hold sweeper stop: %v", err)
	}

	l.Info(ctx, "Server exited")
}
