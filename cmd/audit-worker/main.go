package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	mongoadapter "github.com/sevasangam/puja-bookings/internal/adapters/mongo"
	"github.com/sevasangam/puja-bookings/internal/adapters/rabbit"
	"github.com/sevasangam/puja-bookings/internal/config"
	"github.com/sevasangam/puja-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("puja"), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, "audit.q")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := NewAuditWorker(consumer, audit, logger)
	go worker.Run(ctx)
	logger.Info("Audit worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown audit worker")
}

// AuditWorker archives every order event to the audit trail. Redeliveries
// are acceptable: the trail is append-only and consumers dedupe on the
// message id.
type AuditWorker struct {
	consumer *rabbit.Consumer
	audit    *mongoadapter.AuditLogger
	logger   observability.Logger
}

func NewAuditWorker(consumer *rabbit.Consumer, audit *mongoadapter.AuditLogger, logger observability.Logger) *AuditWorker {
	return &AuditWorker{consumer: consumer, audit: audit, logger: logger}
}

func (w *AuditWorker) Run(ctx context.Context) {
	deliveries, err := w.consumer.Consume(ctx)
	if err != nil {
		w.logger.WithError(err).Error("failed to start consuming")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *AuditWorker) handle(ctx context.Context, d amqp.Delivery) {
	var data map[string]interface{}
	if err := json.Unmarshal(d.Body, &data); err != nil {
		w.logger.WithError(err).Warn("dropping malformed event")
		d.Nack(false, false)
		return
	}

	if err := w.audit.LogEvent(ctx, d.RoutingKey, d.MessageId, data); err != nil {
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}
