// Worker consumes decision telemetry events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"adaptive-auth/backend/internal/config"
	"adaptive-auth/backend/internal/logging"
	"adaptive-auth/backend/internal/telemetry/loki"
)

const pushTimeout = 10 * time.Second

// messageReader is the subset of *kafka.Reader used by the worker.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// eventPusher is the subset of *loki.Client used by the worker.
type eventPusher interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("config: %v", err)
	}
	logging.Init(cfg.OTelServiceName+"-worker", cfg.LogLevel, cfg.LogFormat)
	log := logging.For("worker")

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.TelemetryKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("worker: shutting down...")
		cancel()
	}()

	log.WithFields(logrus.Fields{
		"topic": cfg.TelemetryKafkaTopic,
		"group": cfg.KafkaGroupID,
		"loki":  cfg.LokiURL,
	}).Info("worker: consuming")

	forward(ctx, reader, loki.NewClient(cfg.LokiURL, cfg.OTelServiceName, nil), log)
	log.Info("worker: stopped")
}

// forward copies messages from r to p until ctx is done. Read and push errors are logged and skipped.
// It returns the number of messages pushed.
func forward(ctx context.Context, r messageReader, p eventPusher, log *logrus.Entry) int {
	pushed := 0
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return pushed
			}
			log.WithError(err).Warn("worker: kafka read error")
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, pushTimeout)
		if err := p.PushEventJSON(pushCtx, msg.Value); err != nil {
			log.WithError(err).WithField("offset", msg.Offset).Warn("worker: loki push failed")
		} else {
			pushed++
		}
		pushCancel()
	}
}
