// Command projector follows the published game events and keeps a summary
// of every game in Redis under projection:game:<id>.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/infra"
	"github.com/attaboy/matchwager/internal/projection"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	group := flag.String("group", "matchwager-projector", "kafka consumer group")
	ttl := flag.Duration("ttl", 0, "expiry for settled and open summaries; 0 keeps them")
	flag.Parse()

	if err := run(logger, *group, *ttl); err != nil {
		logger.Error("projector failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, group string, ttl time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.KafkaEnabled {
		return fmt.Errorf("KAFKA_ENABLED is false; there is no event stream to follow")
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	projector := projection.NewProjector(projection.NewRedisStore(rdb), ttl, logger)

	topic := infra.TopicFor(string(domain.AggregateGame))
	consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, topic, group, cfg.KafkaEnabled, logger)
	defer consumer.Close()
	logger.Info("projector started", "topic", topic, "group", group)

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("projector shutting down")
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if err := projector.Apply(ctx, msg.Value); err != nil {
			// a poison message must not stall the partition
			logger.Error("apply event", "offset", msg.Offset, "partition", msg.Partition, "error", err)
		}
	}
}
