package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"cv-match-go/internal/config"
	"cv-match-go/internal/logger"
)

// CandidateUploadedEvent is published after an upload lands in object
// storage; the analysis worker consumes it.
type CandidateUploadedEvent struct {
	CandidateID      string    `json:"candidate_id"`
	JobID            string    `json:"job_id"`
	OriginalFileKey  string    `json:"original_file_key"`
	OriginalFilename string    `json:"original_filename"`
	RawFileMD5       string    `json:"raw_file_md5"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// MessageQueue abstracts the broker operations used by the application.
type MessageQueue interface {
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
	EnsureExchange(exchangeName, exchangeType string, durable bool) error
	EnsureQueue(queueName string, durable bool) error
	BindQueue(queueName, exchangeName, routingKey string) error
	Consume(ctx context.Context, queueName string, prefetch int, handler func(ctx context.Context, body []byte) error) error
	Close() error
}

var _ MessageQueue = (*RabbitMQ)(nil)

// RabbitMQ wraps one connection with a pooled-channel publisher and a
// dedicated consumer channel. Declared topology is cached so repeated Ensure
// calls stay cheap.
type RabbitMQ struct {
	conn        *amqp.Connection
	channelPool sync.Pool
	topologyMu  sync.Mutex
	exchangeMap map[string]bool
	queueMap    map[string]bool
	bindingMap  map[string]bool
	cfg         *config.RabbitMQConfig
	logger      zerolog.Logger
}

// NewRabbitMQ dials the broker and declares the upload-event topology:
// the candidate events exchange, the analysis queue and their binding.
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rabbitmq config cannot be nil")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		queueMap:    make(map[string]bool),
		bindingMap:  make(map[string]bool),
		cfg:         cfg,
		logger:      logger.Logger.With().Str("component", "rabbitmq").Logger(),
	}
	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, chErr := conn.Channel()
			if chErr != nil {
				mq.logger.Error().Err(chErr).Msg("failed to open rabbitmq channel")
				return nil
			}
			return ch
		},
	}

	if err := mq.EnsureExchange(cfg.CandidateEventsExchange, "topic", true); err != nil {
		conn.Close()
		return nil, err
	}
	if err := mq.EnsureQueue(cfg.AnalysisQueue, true); err != nil {
		conn.Close()
		return nil, err
	}
	if err := mq.BindQueue(cfg.AnalysisQueue, cfg.CandidateEventsExchange, cfg.UploadedRoutingKey); err != nil {
		conn.Close()
		return nil, err
	}

	mq.logger.Info().Str("url", cfg.URL).Msg("rabbitmq connected, topology declared")
	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to open rabbitmq channel")
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close closes the connection and every channel on it.
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange declares a named exchange once per process.
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange name cannot be empty")
	}

	r.topologyMu.Lock()
	defer r.topologyMu.Unlock()
	if r.exchangeMap[exchangeName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot acquire rabbitmq channel")
	}
	defer r.putChannel(ch)

	if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchangeName, err)
	}
	r.exchangeMap[exchangeName] = true
	return nil
}

// EnsureQueue declares a named queue once per process.
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	if queueName == "" {
		return fmt.Errorf("queue name cannot be empty")
	}

	r.topologyMu.Lock()
	defer r.topologyMu.Unlock()
	if r.queueMap[queueName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot acquire rabbitmq channel")
	}
	defer r.putChannel(ch)

	if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	r.queueMap[queueName] = true
	return nil
}

// BindQueue binds a queue to an exchange under a routing key, once per
// process.
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	bindingKey := fmt.Sprintf("%s:%s:%s", exchangeName, queueName, routingKey)

	r.topologyMu.Lock()
	defer r.topologyMu.Unlock()
	if r.bindingMap[bindingKey] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot acquire rabbitmq channel")
	}
	defer r.putChannel(ch)

	if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queueName, exchangeName, err)
	}
	r.bindingMap[bindingKey] = true
	return nil
}

// PublishJSON marshals data and publishes it with a JSON content type.
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot acquire rabbitmq channel")
	}
	defer r.putChannel(ch)

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}
	err = ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: deliveryMode,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchangeName, routingKey, err)
	}
	return nil
}

// PublishCandidateUploaded publishes the upload event to the analysis
// pipeline.
func (r *RabbitMQ) PublishCandidateUploaded(ctx context.Context, event CandidateUploadedEvent) error {
	return r.PublishJSON(ctx, r.cfg.CandidateEventsExchange, r.cfg.UploadedRoutingKey, event, true)
}

// Consume reads messages from a queue until ctx is canceled. A handler error
// nacks the delivery back onto the queue; success acks it.
func (r *RabbitMQ) Consume(ctx context.Context, queueName string, prefetch int, handler func(ctx context.Context, body []byte) error) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consumer on %s: %w", queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("consumer channel on %s closed", queueName)
			}
			if err := handler(ctx, delivery.Body); err != nil {
				r.logger.Warn().Err(err).Str("queue", queueName).Msg("message handling failed, requeueing")
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					r.logger.Error().Err(nackErr).Msg("nack failed")
				}
				continue
			}
			if ackErr := delivery.Ack(false); ackErr != nil {
				r.logger.Error().Err(ackErr).Msg("ack failed")
			}
		}
	}
}
