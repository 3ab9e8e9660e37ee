package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/couchbase/gocb/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"topicpub/internal/publish"
	"topicpub/internal/publish/metrics"
	"topicpub/internal/publish/offload"
	"topicpub/internal/publish/publisher"
	"topicpub/internal/publish/storage"
	"topicpub/internal/publish/tracing"
)

type Config struct {
	CouchbaseConnectionString string        `env:"COUCHBASE_CONNECTION_STRING" envDefault:"couchbase://localhost"`
	CouchbaseUsername         string        `env:"COUCHBASE_USERNAME" envDefault:"Administrator"`
	CouchbasePassword         string        `env:"COUCHBASE_PASSWORD" envDefault:"password"`
	CouchbaseBucketName       string        `env:"COUCHBASE_BUCKET_NAME" envDefault:"topicpub"`
	CouchbaseScopeName        string        `env:"COUCHBASE_SCOPE_NAME" envDefault:"default"`
	DestinationID             string        `env:"DESTINATION_ID" envDefault:"arn:aws:sns:us-east-1:000000000000:orders"`
	ServiceName               string        `env:"SERVICE_NAME" envDefault:"topicpub-e2e"`
	TenantCode                string        `env:"TENANT_CODE" envDefault:"acme"`
	EventCount                int           `env:"EVENT_COUNT" envDefault:"15"`
	OversizeEventCount        int           `env:"OVERSIZE_EVENT_COUNT" envDefault:"1"`
	LogLevel                  string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsPort               int           `env:"METRICS_PORT" envDefault:"9090"`
	MetricsTimeout            time.Duration `env:"METRICS_TIMEOUT" envDefault:"30s"`
	TracingServiceName        string        `env:"TRACING_SERVICE_NAME" envDefault:"topicpub-e2e"`
	TracingServiceVersion     string        `env:"TRACING_SERVICE_VERSION" envDefault:"1.0.0"`
	OTLPEndpoint              string        `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate         float64       `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to parse environment variables: %v", err)
	}

	config := zap.NewProductionConfig()
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Printf("invalid log level %q, defaulting to info: %v", cfg.LogLevel, err)
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cluster, bucket, err := newCouchbase(cfg)
	if err != nil {
		log.Fatalf("failed to connect to Couchbase: %v", err)
	}

	metricsRegistry := metrics.NewRegistry()
	metricsRegistry.SetSystemInfo("e2e-test", time.Now().Format(time.RFC3339))

	metricsServer := metrics.NewServer(
		metrics.ServerConfig{
			Port:    cfg.MetricsPort,
			Timeout: cfg.MetricsTimeout,
		},
		metricsRegistry,
		logger,
	)

	go func() {
		if err := metricsServer.Start(context.Background()); err != nil {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("metrics server started",
		zap.String("endpoint", fmt.Sprintf("http://localhost:%d/metrics", cfg.MetricsPort)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.MetricsPort)),
	)

	tracer, tracingCleanup, err := tracing.NewTracer(tracing.Config{
		ServiceName:    cfg.TracingServiceName,
		ServiceVersion: cfg.TracingServiceVersion,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TracingSampleRate,
	})
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingCleanup(shutdownCtx); err != nil {
			logger.Error("failed to cleanup tracing", zap.Error(err))
		}
	}()

	payloads, err := storage.NewPayloadsStore(cluster, bucket, cfg.CouchbaseScopeName)
	if err != nil {
		log.Fatalf("failed to create payloads store: %v", err)
	}
	records, err := storage.NewRegistryStore(cluster, bucket, cfg.CouchbaseScopeName)
	if err != nil {
		log.Fatalf("failed to create registry store: %v", err)
	}

	blobStore, err := storage.NewBlobStore(payloads, logger)
	if err != nil {
		log.Fatalf("failed to create blob store: %v", err)
	}
	registry, err := storage.NewRegistry(records, cfg.CouchbaseBucketName, cfg.CouchbaseScopeName, logger)
	if err != nil {
		log.Fatalf("failed to create destination registry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := registry.Seed(ctx, []publish.Destination{
		{Name: "offload-primary", Region: "us-east-1", Default: true},
		{Name: "offload-fallback", Region: "us-west-2"},
	}); err != nil {
		log.Fatalf("failed to seed destination registry: %v", err)
	}

	cache, err := publish.NewDestinationCache(registry)
	if err != nil {
		log.Fatalf("failed to create destination cache: %v", err)
	}

	coordinator, err := offload.NewCoordinator(cache, blobStore, logger)
	if err != nil {
		log.Fatalf("failed to create offload coordinator: %v", err)
	}
	offloader := offload.NewMetricsCoordinator(coordinator, metricsRegistry)

	basePublisher, err := publisher.NewPublisher(
		newLogTransport(logger),
		offloader,
		publish.StaticTenant(cfg.TenantCode),
		publisher.Config{Service: cfg.ServiceName},
		logger,
	)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	metricsPublisher := publisher.NewMetricsPublisher(basePublisher, metricsRegistry)
	pub := publisher.NewTracedPublisher(metricsPublisher, tracer)

	now := time.Now()

	batch := events(cfg.EventCount, cfg.OversizeEventCount)
	result, err := pub.PublishEvents(ctx, cfg.DestinationID, batch)
	if err != nil {
		logger.Fatal("failed to publish events", zap.Error(err))
	}
	logger.Info("batch publish complete",
		zap.Int("successCount", result.SuccessCount),
		zap.Int("failedCount", result.FailedCount),
	)

	single, err := pub.PublishEvent(ctx, cfg.DestinationID, batch[0])
	if err != nil {
		logger.Fatal("failed to publish single event", zap.Error(err))
	}
	logger.Info("single publish complete", zap.String("messageId", single.MessageID))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop metrics server", zap.Error(err))
	}

	fmt.Printf("\n\n TEST COMPLETE IN %.2f seconds\n", time.Since(now).Seconds())
}

// logTransport stands in for the real pub/sub transport: it acknowledges
// every entry and logs what would have been sent.
type logTransport struct {
	logger *zap.Logger
	seq    atomic.Uint64
}

func newLogTransport(logger *zap.Logger) *logTransport {
	return &logTransport{logger: logger.Named("transport")}
}

func (t *logTransport) Publish(ctx context.Context, topicID string, entry publish.WireEntry) (*publish.PublishAck, error) {
	id := t.seq.Add(1)
	t.logger.Info("publish",
		zap.String("topicId", topicID),
		zap.Int("bodyBytes", len(entry.Body)),
	)

	return &publish.PublishAck{MessageID: fmt.Sprintf("msg-%d", id)}, nil
}

func (t *logTransport) PublishBatch(ctx context.Context, topicID string, entries []publish.WireEntry) (*publish.BatchAck, error) {
	ack := publish.BatchAck{}
	for _, e := range entries {
		ack.Successful = append(ack.Successful, publish.BatchSuccess{
			ID:        e.ID,
			MessageID: fmt.Sprintf("msg-%d", t.seq.Add(1)),
		})
	}

	t.logger.Info("publish batch",
		zap.String("topicId", topicID),
		zap.Int("entries", len(entries)),
	)

	return &ack, nil
}

func events(count, oversize int) []publish.Event {
	customers := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	out := make([]publish.Event, 0, count+oversize)

	for i := 0; i < count; i++ {
		out = append(out, publish.Event{
			Content: map[string]any{
				"order_id":    fmt.Sprintf("ORD-%04d", i+1),
				"customer_id": customers[rand.Intn(len(customers))],
				"amount":      10.0 + rand.Float64()*990.0,
				"timestamp":   time.Now().Format(time.RFC3339),
			},
			Attributes: map[string]any{
				"eventType": "order.created",
				"channels":  []string{"email", "webhook"},
			},
		})
	}

	for i := 0; i < oversize; i++ {
		out = append(out, publish.Event{
			Content: map[string]any{
				"order_id": fmt.Sprintf("ORD-BULK-%04d", i+1),
				"manifest": strings.Repeat("x", publish.MaxMessageBytes+1),
			},
			PayloadFixedProperties: []string{"order_id"},
		})
	}

	return out
}

func newCouchbase(config Config) (*gocb.Cluster, *gocb.Bucket, error) {
	cluster, err := gocb.Connect(config.CouchbaseConnectionString, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: config.CouchbaseUsername,
			Password: config.CouchbasePassword,
		},
		TimeoutsConfig: gocb.TimeoutsConfig{
			ConnectTimeout: 10 * time.Second,
			KVTimeout:      5 * time.Second,
			QueryTimeout:   30 * time.Second,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	bucket := cluster.Bucket(config.CouchbaseBucketName)

	if err := bucket.WaitUntilReady(5*time.Second, nil); err != nil {
		return nil, nil, fmt.Errorf("bucket not ready: %w", err)
	}

	return cluster, bucket, nil
}
