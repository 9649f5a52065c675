// Package kafka queues ingestion tasks and consumes them.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/alex-lapipa/lawton-engine/internal/config"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
	"github.com/alex-lapipa/lawton-engine/pkg/tasks"
)

// TaskProcessor handles one ingestion task.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestTask) error
}

// AttemptCounter tracks how often a task has failed.
type AttemptCounter interface {
	Incr(ctx context.Context, taskKey string) (int64, error)
	Reset(ctx context.Context, taskKey string) error
}

// Producer publishes ingestion tasks.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Producer for the configured topic.
func NewProducer(cfg config.KafkaConfig) *Producer {
	log.Info("Kafka producer initialized")
	return &Producer{writer: &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// ProduceIngestTask publishes task, partitioned by its document path.
func (p *Producer) ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.PartitionKey()),
		Value: taskBytes,
	})
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartConsumer reads tasks until ctx is cancelled or the reader fails.
// A failed task is retried in place until it has failed cfg.MaxAttempts
// times; only then is its offset committed and the task dropped.
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, attempts AttemptCounter) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(cfg.Brokers, ","),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	log.Infof("Kafka consumer started on topic '%s'", cfg.Topic)
	consume(ctx, r, processor, attempts, cfg.MaxAttempts)
}

func consume(ctx context.Context, r messageReader, processor TaskProcessor, attempts AttemptCounter, maxAttempts int) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("failed to close Kafka consumer: %v", err)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Error("failed to read from Kafka", err)
			}
			return
		}
		log.Infof("received Kafka message: offset %d", m.Offset)

		var task tasks.IngestTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("malformed Kafka message: %v, value: %s", err, string(m.Value))
			commit(ctx, r, m)
			continue
		}

		if !processWithRetry(ctx, processor, attempts, task, maxAttempts) {
			// Cancelled mid-retry: leave the offset for the next session.
			return
		}
		commit(ctx, r, m)
	}
}

// processWithRetry runs task until it succeeds, fails permanently, or has
// failed maxAttempts times. The Redis counter survives restarts, so a task
// redelivered after a crash keeps its earlier failures. It reports false
// only when ctx is cancelled before the task is settled.
func processWithRetry(ctx context.Context, processor TaskProcessor, attempts AttemptCounter, task tasks.IngestTask, maxAttempts int) bool {
	local := int64(0)
	for {
		err := processor.Process(ctx, task)
		if err == nil {
			log.Infof("ingestion task done: task=%s, path=%s", task.Key(), task.Request.Path)
			_ = attempts.Reset(ctx, task.Key())
			return true
		}
		if errors.Is(err, tasks.ErrPermanent) {
			log.Errorf("ingestion task rejected, dropping: task=%s, error: %v", task.Key(), err)
			_ = attempts.Reset(ctx, task.Key())
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		local++
		n, incErr := attempts.Incr(ctx, task.Key())
		if incErr != nil {
			log.Warnf("attempt counter unavailable, counting locally: %v", incErr)
			n = local
		}
		log.Errorf("ingestion task failed (attempt %d/%d): task=%s, error: %v", n, maxAttempts, task.Key(), err)
		if n >= int64(maxAttempts) {
			log.Errorf("ingestion task failed %d times, dropping: task=%s, path=%s", n, task.Key(), task.Request.Path)
			_ = attempts.Reset(ctx, task.Key())
			return true
		}
	}
}

func commit(ctx context.Context, r messageReader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("failed to commit Kafka offset: %v", err)
	}
}
