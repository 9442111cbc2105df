package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nest-deiber/payments-management-microservice/internal/config"
	"github.com/nest-deiber/payments-management-microservice/internal/payments/application"
	paymentshttp "github.com/nest-deiber/payments-management-microservice/internal/payments/infrastructure/http"
	paymentskafka "github.com/nest-deiber/payments-management-microservice/internal/payments/infrastructure/kafka"
	"github.com/nest-deiber/payments-management-microservice/internal/payments/infrastructure/orders"
	stripegw "github.com/nest-deiber/payments-management-microservice/internal/payments/infrastructure/stripe"
	"github.com/nest-deiber/payments-management-microservice/pkg/logging"
	"github.com/nest-deiber/payments-management-microservice/pkg/shutdown"
	"github.com/nest-deiber/payments-management-microservice/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Common.ServiceName, cfg.Common.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Common.ServiceName, cfg.Tracing.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Bus publisher (async, fire-and-forget)
	writer := paymentskafka.NewWriter(log, cfg.Kafka.Brokers)
	defer writer.Close()
	publisher := paymentskafka.NewPublisher(log, writer)

	// Provider gateway: mock by default, real Stripe when configured
	var gateway application.ProviderGateway
	if cfg.Stripe.UseMock {
		log.Warn("using mock payment provider, webhook signatures are NOT verified")
		gateway = stripegw.NewMockGateway(log)
	} else {
		gateway = stripegw.NewGateway(log, cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)
	}

	ordersClient := orders.NewClient(log, cfg.Orders.BaseURL)

	classifier := application.NewClassifier(log)
	webhooks := application.NewWebhookService(log, gateway, classifier, publisher)
	payments := application.NewService(log, gateway, publisher, ordersClient)
	handler := paymentshttp.NewHandler(log, webhooks, payments)

	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("payments-service shutdown complete")
}
