package worker

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/adapters/mq/queue"
	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/pkg/logger"
	"github.com/okian/speedhud/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount     = 4
	defaultMetricsInterval = 5 * time.Second
	poolShutdownTimeout    = 5 * time.Second
)

// Deliverer writes a message to a viewer's connection.
type Deliverer interface {
	ActionBar(ctx context.Context, viewer uuid.UUID, update model.HUDUpdate) error
	Chat(ctx context.Context, recipient uuid.UUID, text string) error
}

// Queue defines how workers receive deliveries.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Delivery
}

// InMemoryWorker delivers everything read from one queue.
type InMemoryWorker struct {
	queue     Queue
	deliverer Deliverer
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, d Deliverer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		deliverer: d,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run delivers until the queue is closed and drained, ctx is done or
// Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case d, ok := <-ch:
			if !ok {
				return
			}
			w.deliver(ctx, d)
		}
	}
}

// Shutdown stops the worker without draining its queue.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// deliver writes one delivery. Failures mean the recipient left; the
// delivery is dropped.
func (w *InMemoryWorker) deliver(ctx context.Context, d queue.Delivery) { //nolint:gocritic // hugeParam: Delivery is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordDeliveryLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	var err error
	switch d.Kind {
	case model.DeliveryActionBar:
		err = w.deliverer.ActionBar(ctx, d.Recipient, d.Update)
	case model.DeliveryChat:
		err = w.deliverer.Chat(ctx, d.Recipient, d.Text)
	default:
		err = fmt.Errorf("unknown delivery kind %d", d.Kind)
	}
	if err != nil {
		metrics.RecordDeliveryFailure()
		w.logger.Debug(ctx, "delivery dropped",
			logger.String("kind", d.Kind.String()),
			logger.String("recipient", d.Recipient.String()),
			logger.Error(err),
		)
	}
}

// Pool shards deliveries across workers by recipient, so each recipient's
// messages arrive in the order they were sent. Pool satisfies the engine's
// Messenger by enqueuing instead of writing.
type Pool struct {
	workers   []*InMemoryWorker
	queues    []*queue.InMemoryQueue
	deliverer Deliverer

	queueCapacity   int
	metricsInterval time.Duration

	shutdown  chan struct{}
	closeOnce sync.Once

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers writing to d.
func NewPool(workerCount int, d Deliverer, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers:         make([]*InMemoryWorker, workerCount),
		queues:          make([]*queue.InMemoryQueue, workerCount),
		deliverer:       d,
		metricsInterval: defaultMetricsInterval,
		shutdown:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("delivery-pool")
	}

	for i := 0; i < workerCount; i++ {
		p.queues[i] = queue.NewInMemoryQueue(queue.WithCapacity(p.queueCapacity))
		p.workers[i] = NewInMemoryWorker(p.queues[i], d,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateDeliveryWorkers(len(p.workers))
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(p.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			metrics.UpdateDeliveryQueueSize(p.Len(ctx))
		}
	}
}

// Len returns the number of queued deliveries across all workers.
func (p *Pool) Len(ctx context.Context) int {
	n := 0
	for _, q := range p.queues {
		n += q.Len(ctx)
	}
	return n
}

func (p *Pool) shard(id uuid.UUID) *queue.InMemoryQueue {
	return p.queues[binary.BigEndian.Uint32(id[12:])%uint32(len(p.queues))]
}

func (p *Pool) enqueue(ctx context.Context, d model.Delivery) error { //nolint:gocritic // hugeParam: Delivery is passed by value for channel semantics
	q := p.shard(d.Recipient)
	if q.Enqueue(ctx, d) {
		return nil
	}
	if q.IsClosed() {
		return ErrStopped
	}
	return ErrQueueFull
}

// ActionBar queues a HUD update for viewer.
func (p *Pool) ActionBar(ctx context.Context, viewer uuid.UUID, update model.HUDUpdate) error {
	return p.enqueue(ctx, model.Delivery{Kind: model.DeliveryActionBar, Recipient: viewer, Update: update})
}

// Chat queues a text message for recipient.
func (p *Pool) Chat(ctx context.Context, recipient uuid.UUID, text string) error {
	return p.enqueue(ctx, model.Delivery{Kind: model.DeliveryChat, Recipient: recipient, Text: text})
}

// Shutdown closes the queues and waits for the workers to drain them.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() {
		for _, q := range p.queues {
			_ = q.Close()
		}
		close(p.shutdown)
	})

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateDeliveryWorkers(0)
	return nil
}
