package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/streadway/amqp"
)

const (
	rabbitPollTimeout = time.Second
	rabbitPrefetch    = 16
	rabbitDialRetries = 5
	rabbitDialDelay   = 2 * time.Second
)

// rabbitChannel is the part of *amqp.Channel used for publishing and inspection.
type rabbitChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueInspect(name string) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type rabbitConsumer struct {
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
}

type rabbitCounters struct {
	active, completed, failed int64
}

// RabbitMQBackend stores jobs in durable queues. Delays use per-duration
// holding queues whose messages dead-letter into the work queue on expiry.
// Locks are process-local since the broker offers none.
type RabbitMQBackend struct {
	conn    *amqp.Connection
	channel func() (rabbitChannel, error)

	pubMu   sync.Mutex
	publish rabbitChannel

	mu          sync.Mutex
	declared    map[string]bool
	delayQueues map[string]map[string]bool
	consumers map[string]*rabbitConsumer
	inflight  map[string]amqp.Delivery
	counters  map[string]*rabbitCounters
	locks     map[string]time.Time
	closed    bool
}

// DialRabbitMQ connects with the retry policy used across our services.
func DialRabbitMQ(url string) (*RabbitMQBackend, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < rabbitDialRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		utils.ErrorLogger.Printf("RabbitMQ connection error (attempt %d/%d): %v", i+1, rabbitDialRetries, err)
		if i < rabbitDialRetries-1 {
			time.Sleep(rabbitDialDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}

	b := newRabbitMQBackend(conn, ch, func() (rabbitChannel, error) {
		c, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return c, nil
	})

	go func() {
		if cerr := <-conn.NotifyClose(make(chan *amqp.Error, 1)); cerr != nil {
			utils.ErrorLogger.Printf("RabbitMQ connection lost: %v", cerr)
		}
	}()

	utils.InfoLogger.Println("Successfully connected to RabbitMQ")
	return b, nil
}

func newRabbitMQBackend(conn *amqp.Connection, publish rabbitChannel, channel func() (rabbitChannel, error)) *RabbitMQBackend {
	return &RabbitMQBackend{
		conn:        conn,
		channel:     channel,
		publish:     publish,
		declared:    make(map[string]bool),
		delayQueues: make(map[string]map[string]bool),
		consumers:   make(map[string]*rabbitConsumer),
		inflight:    make(map[string]amqp.Delivery),
		counters:    make(map[string]*rabbitCounters),
		locks:       make(map[string]time.Time),
	}
}

// declare must be called with pubMu held. Work queues never expire, so each
// is declared once per process.
func (b *RabbitMQBackend) declare(name string, args amqp.Table) error {
	b.mu.Lock()
	done := b.declared[name]
	b.mu.Unlock()
	if done {
		return nil
	}
	if _, err := b.publish.QueueDeclare(name, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	b.mu.Lock()
	b.declared[name] = true
	b.mu.Unlock()
	return nil
}

func delayQueueName(queue string, delay time.Duration) string {
	return fmt.Sprintf("%s.delay.%d", queue, delay.Milliseconds())
}

// holdingDelay buckets the time until runAt into whole seconds. It returns
// false when the job is already due.
func holdingDelay(runAt, now time.Time) (time.Duration, bool) {
	delay := runAt.Sub(now)
	if delay < time.Millisecond {
		return 0, false
	}
	delay = delay.Round(time.Second)
	if delay < time.Second {
		delay = time.Second
	}
	return delay, true
}

func holdingQueueArgs(queue string, delay time.Duration) amqp.Table {
	ttl := delay.Milliseconds()
	return amqp.Table{
		"x-message-ttl":             ttl,
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
		"x-expires":                 ttl + int64(time.Minute/time.Millisecond),
	}
}

// declareHolding redeclares on every push. Only a declare resets x-expires,
// so a cached name could point at a queue the broker already dropped.
// Must be called with pubMu held.
func (b *RabbitMQBackend) declareHolding(queue string, delay time.Duration) (string, error) {
	name := delayQueueName(queue, delay)
	if _, err := b.publish.QueueDeclare(name, true, false, false, false, holdingQueueArgs(queue, delay)); err != nil {
		return "", fmt.Errorf("declare queue %s: %w", name, err)
	}
	b.mu.Lock()
	if b.delayQueues[queue] == nil {
		b.delayQueues[queue] = make(map[string]bool)
	}
	b.delayQueues[queue][name] = true
	b.mu.Unlock()
	return name, nil
}

func (b *RabbitMQBackend) Push(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	if err := b.declare(job.Queue, nil); err != nil {
		return err
	}

	target := job.Queue
	if delay, ok := holdingDelay(job.RunAt, time.Now()); ok {
		if target, err = b.declareHolding(job.Queue, delay); err != nil {
			return err
		}
	}

	return b.publish.Publish("", target, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (b *RabbitMQBackend) consumer(queue string) (*rabbitConsumer, error) {
	b.mu.Lock()
	c, ok := b.consumers[queue]
	b.mu.Unlock()
	if ok {
		return c, nil
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(rabbitPrefetch, 0, false); err != nil {
		ch.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, err
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}

	c = &rabbitConsumer{channel: ch, deliveries: deliveries}
	b.mu.Lock()
	if existing, ok := b.consumers[queue]; ok {
		b.mu.Unlock()
		ch.Close()
		return existing, nil
	}
	b.consumers[queue] = c
	b.mu.Unlock()
	return c, nil
}

func (b *RabbitMQBackend) counter(queue string) *rabbitCounters {
	c, ok := b.counters[queue]
	if !ok {
		c = &rabbitCounters{}
		b.counters[queue] = c
	}
	return c
}

func (b *RabbitMQBackend) Pop(ctx context.Context, queue string) (*Job, error) {
	c, err := b.consumer(queue)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(rabbitPollTimeout):
		return nil, nil
	case d, ok := <-c.deliveries:
		if !ok {
			return nil, ErrClosed
		}
		var job Job
		if err := json.Unmarshal(d.Body, &job); err != nil {
			d.Nack(false, false)
			return nil, fmt.Errorf("decode job: %w", err)
		}
		b.mu.Lock()
		b.inflight[job.ID] = d
		b.counter(queue).active++
		b.mu.Unlock()
		return &job, nil
	}
}

func (b *RabbitMQBackend) takeDelivery(job *Job) (amqp.Delivery, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.inflight[job.ID]
	delete(b.inflight, job.ID)
	b.counter(job.Queue).active--
	return d, ok
}

func (b *RabbitMQBackend) Complete(ctx context.Context, job *Job, cause error) error {
	d, ok := b.takeDelivery(job)
	b.mu.Lock()
	if cause != nil {
		b.counter(job.Queue).failed++
	} else {
		b.counter(job.Queue).completed++
	}
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return d.Ack(false)
}

func (b *RabbitMQBackend) Requeue(ctx context.Context, job *Job) error {
	if err := b.Push(ctx, job); err != nil {
		return err
	}
	d, ok := b.takeDelivery(job)
	if !ok {
		return nil
	}
	return d.Ack(false)
}

func (b *RabbitMQBackend) Lock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if expires, held := b.locks[key]; held && expires.After(now) {
		return nil, false, nil
	}
	expires := now.Add(ttl)
	b.locks[key] = expires

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.locks[key].Equal(expires) {
				delete(b.locks, key)
			}
		})
	}, true, nil
}

// inspect reports the message count of a queue. A failed inspect closes its
// channel, so each call uses a throwaway one.
func (b *RabbitMQBackend) inspect(name string) (int64, bool, error) {
	ch, err := b.channel()
	if err != nil {
		return 0, false, err
	}
	defer ch.Close()
	q, err := ch.QueueInspect(name)
	if err != nil {
		return 0, false, nil
	}
	return int64(q.Messages), true, nil
}

// Stats counts delayed jobs only in the holding queues this process has
// published to.
func (b *RabbitMQBackend) Stats(ctx context.Context, queue string) (Stats, error) {
	var stats Stats
	waiting, _, err := b.inspect(queue)
	if err != nil {
		return Stats{}, err
	}
	stats.Waiting = waiting

	b.mu.Lock()
	holding := make([]string, 0, len(b.delayQueues[queue]))
	for name := range b.delayQueues[queue] {
		holding = append(holding, name)
	}
	b.mu.Unlock()

	for _, name := range holding {
		n, exists, err := b.inspect(name)
		if err != nil {
			return Stats{}, err
		}
		if !exists {
			b.mu.Lock()
			delete(b.delayQueues[queue], name)
			b.mu.Unlock()
			continue
		}
		stats.Delayed += n
	}

	b.mu.Lock()
	c := b.counter(queue)
	stats.Active, stats.Completed, stats.Failed = c.active, c.completed, c.failed
	b.mu.Unlock()
	return stats, nil
}

func (b *RabbitMQBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	consumers := b.consumers
	b.consumers = make(map[string]*rabbitConsumer)
	b.mu.Unlock()

	for _, c := range consumers {
		c.channel.Close()
	}
	b.pubMu.Lock()
	b.publish.Close()
	b.pubMu.Unlock()

	if err := b.conn.Close(); err != nil {
		return fmt.Errorf("connection close error: %w", err)
	}
	utils.InfoLogger.Println("RabbitMQ connection closed successfully")
	return nil
}
