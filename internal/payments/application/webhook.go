package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

var webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payments_webhook_events_total",
	Help: "Provider webhook deliveries by processing outcome.",
}, []string{"outcome"})

// WebhookService runs the verify -> classify -> publish pipeline for one
// provider delivery. It is stateless; every invocation stands alone.
//
// Failure policy: verification failures are returned to the caller (the
// transport answers with a client error), unhandled kinds and publish
// failures are logged and acknowledged so the provider does not retry.
type WebhookService struct {
	log        *slog.Logger
	gateway    ProviderGateway
	classifier *Classifier
	publisher  EventPublisher
	tracer     trace.Tracer
}

func NewWebhookService(log *slog.Logger, gateway ProviderGateway, classifier *Classifier, publisher EventPublisher) *WebhookService {
	return &WebhookService{
		log:        log,
		gateway:    gateway,
		classifier: classifier,
		publisher:  publisher,
		tracer:     otel.Tracer("payments-webhook"),
	}
}

// Process handles one raw webhook delivery. A non-nil error always means the
// payload was rejected at the trust boundary and no event was published.
func (s *WebhookService) Process(ctx context.Context, payload []byte, signature string) error {
	ctx, span := s.tracer.Start(ctx, "ProcessWebhook")
	defer span.End()

	ev, err := s.gateway.ConstructWebhookEvent(payload, signature)
	if err != nil {
		webhookEvents.WithLabelValues("rejected").Inc()
		s.log.Warn("webhook rejected", "err", err)
		return err
	}

	event, err := s.classifier.Classify(ev)
	if err != nil {
		if errors.Is(err, domain.ErrUnhandledEvent) {
			webhookEvents.WithLabelValues("ignored").Inc()
			return nil
		}
		return err
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		// Acknowledge anyway; the event is lost, not retried.
		webhookEvents.WithLabelValues("publish_failed").Inc()
		s.log.Error("publish failed, event dropped", "event_id", ev.ID, "subject", event.Subject(), "err", err)
		return nil
	}

	webhookEvents.WithLabelValues("published").Inc()
	s.log.Info("webhook event published", "event_id", ev.ID, "subject", event.Subject(), "order_id", event.Key())
	return nil
}
