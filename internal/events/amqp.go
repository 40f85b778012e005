package events

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPForwarder publishes product events to a durable queue
type AMQPForwarder struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel amqpChannel
	queue   string
}

// DialAMQP connects to the broker and declares the queue
func DialAMQP(url, queue string) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "connect rabbitmq")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	_, err = channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare queue %s", queue)
	}

	return &AMQPForwarder{conn: conn, channel: channel, queue: queue}, nil
}

// Forward publishes evt; failures are logged, never returned to the writer
func (f *AMQPForwarder) Forward(evt ProductEvent) {
	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(evt)
	if err != nil {
		zap.L().Error("failed to encode product event", zap.String("type", string(evt.Type)), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	err = f.channel.PublishWithContext(ctx,
		"",      // exchange
		f.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         string(evt.Type),
			Timestamp:    evt.At,
			Body:         body,
		},
	)
	if err != nil {
		zap.L().Error("failed to publish product event",
			zap.String("queue", f.queue),
			zap.String("type", string(evt.Type)),
			zap.Int64("product_id", evt.Product.ID),
			zap.Error(err))
	}
}

func (f *AMQPForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channel != nil {
		_ = f.channel.Close()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
