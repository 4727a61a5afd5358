// Package amqp publishes and consumes parse jobs over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/jobs"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
)

const publishTimeout = 5 * time.Second

// Client is a jobs.Publisher and jobs.Consumer on one AMQP channel. The job
// store is optional; when set, state transitions are recorded there.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	store        jobs.JobStore

	publishFn func(ctx context.Context, msg *ParseJobMessage) error
	backoff   func(attempt int) time.Duration
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(url, exchangeName, queueName string, store jobs.JobStore) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("NewClient: dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("NewClient: open channel: %w", err)
	}

	client := newClient(exchangeName, queueName, store)
	client.conn = conn
	client.channel = channel

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewClient: setup exchange and queue: %w", err)
	}
	return client, nil
}

func newClient(exchangeName, queueName string, store jobs.JobStore) *Client {
	c := &Client{
		exchangeName: exchangeName,
		queueName:    queueName,
		store:        store,
		backoff:      jobs.Backoff,
		now:          time.Now,
	}
	c.publishFn = c.publish
	return c
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Direct exchange: the routing key is the queue name.
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishParseText records the job as queued and sends it to the queue.
func (c *Client) PublishParseText(ctx context.Context, job *jobs.ParseTextJob) error {
	job.Prepare(c.now())

	if c.store != nil {
		if err := c.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishParseText: save job: %w", err)
		}
	}
	if err := c.publishFn(ctx, NewParseJobMessage(job, c.now())); err != nil {
		return fmt.Errorf("PublishParseText: %w", err)
	}
	return nil
}

func (c *Client) publish(ctx context.Context, msg *ParseJobMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.JobID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("job_id", msg.JobID).
		Int("attempt", msg.Attempt).
		Str("queue", c.queueName).
		Msg("Published parse job")
	return nil
}

// Start consumes deliveries in a background goroutine, one at a time.
func (c *Client) Start(ctx context.Context, handler jobs.JobHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return fmt.Errorf("Start: consumer already running")
	}

	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("Start: set qos: %w", err)
	}
	deliveries, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("Start: start consuming: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		if err := c.consume(ctx, deliveries, handler); err != nil && !errors.Is(err, context.Canceled) {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Msg("Parse job consumer stopped")
		}
	}()

	log := logger.FromContext(ctx)

	log.Info().Str("queue", c.queueName).Msg("Started consuming parse jobs")
	return nil
}

func (c *Client) consume(ctx context.Context, deliveries <-chan amqp091.Delivery, handler jobs.JobHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

// handleDelivery runs one attempt of a job and settles the delivery.
// Undecodable messages are dropped; retryable failures are republished with
// the attempt counter advanced.
func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler jobs.JobHandler) {
	log := logger.FromContext(ctx)

	msg, err := ParseJobMessageFromJSON(d.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode parse job message")
		_ = d.Nack(false, false)
		return
	}

	job := c.loadJob(ctx, msg)
	log = logger.WithFields(log, map[string]interface{}{"job_id": job.ID, "attempt": job.RetryCount})

	if job.Status.IsTerminal() {
		log.Info().Str("status", string(job.Status)).Msg("Skipping already finished job")
		_ = d.Ack(false)
		return
	}

	job.Begin(c.now())
	c.save(ctx, job)

	handlerErr := handler(ctx, job)
	retry := job.Finish(handlerErr, c.now())
	c.save(ctx, job)

	if !retry {
		if handlerErr != nil {
			log.Error().Err(handlerErr).Msg("Parse job failed")
		}
		_ = d.Ack(false)
		return
	}

	log.Warn().Err(handlerErr).Msg("Parse job will be retried")
	select {
	case <-ctx.Done():
		_ = d.Nack(false, true)
		return
	case <-time.After(c.backoff(job.RetryCount)):
	}

	if err := c.publishFn(ctx, NewParseJobMessage(job, c.now())); err != nil {
		log.Error().Err(err).Msg("Failed to republish parse job")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (c *Client) loadJob(ctx context.Context, msg *ParseJobMessage) *jobs.ParseTextJob {
	job := msg.Job()
	if c.store == nil {
		return job
	}
	stored, err := c.store.GetJob(ctx, msg.JobID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("job_id", msg.JobID).Msg("Failed to load job state")
		}
		return job
	}
	if stored.UserID != msg.UserID {
		return job
	}
	stored.RetryCount = msg.Attempt
	return stored
}

func (c *Client) save(ctx context.Context, job *jobs.ParseTextJob) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to save job state")
	}
}

// Stop cancels consumption and waits for the in-flight delivery.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Close() error {
	_ = c.Stop(context.Background())
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

var _ jobs.Publisher = (*Client)(nil)
var _ jobs.Consumer = (*Client)(nil)
