package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/watchvibe/auth-service/internal/infra/config"
)

const errBufferSize = 256

// Producer wraps a Sarama async producer with error draining and lifecycle management.
type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	cfg      config.KafkaSettings
	errChan  chan error
	done     chan struct{}
}

func producerConfig() *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_5_0_0

	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Flush.Frequency = 100 * time.Millisecond
	sc.Producer.Flush.Messages = 100
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = false
	sc.Producer.Return.Errors = true

	sc.Metadata.Retry.Max = 3
	sc.Metadata.Retry.Backoff = 250 * time.Millisecond

	return sc
}

// NewProducer connects an async producer to the configured brokers and
// starts draining its error channel in the background.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	asyncProducer, err := sarama.NewAsyncProducer(cfg.Brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	p := &Producer{
		producer: asyncProducer,
		logger:   logger,
		cfg:      cfg,
		errChan:  make(chan error, errBufferSize),
		done:     make(chan struct{}),
	}

	go p.drainErrors()

	logger.Info("kafka producer ready",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
	)

	return p, nil
}

// drainErrors forwards producer errors to errChan so callers can observe
// delivery failures without blocking the Sarama internals.
func (p *Producer) drainErrors() {
	for {
		select {
		case perr := <-p.producer.Errors():
			if perr == nil {
				continue
			}
			p.logger.Error("kafka delivery failed",
				zap.Error(perr.Err),
				zap.String("topic", perr.Msg.Topic),
				zap.Int32("partition", perr.Msg.Partition),
			)
			select {
			case p.errChan <- perr.Err:
			default:
			}
		case <-p.done:
			return
		}
	}
}

// Producer returns the underlying Sarama async producer.
func (p *Producer) Producer() sarama.AsyncProducer {
	return p.producer
}

// Errors exposes delivery failures for external monitoring.
func (p *Producer) Errors() <-chan error {
	return p.errChan
}

// Close stops the error drain and flushes pending messages.
func (p *Producer) Close() error {
	p.logger.Debug("closing kafka producer")
	close(p.done)

	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}

	close(p.errChan)
	return nil
}

// TopicName prepends the configured topic prefix unless the event type
// already carries it.
func (p *Producer) TopicName(eventType string) string {
	if p.cfg.TopicPrefix == "" {
		return eventType
	}

	prefix := p.cfg.TopicPrefix + "."
	if strings.HasPrefix(eventType, prefix) {
		return eventType
	}
	return prefix + eventType
}
