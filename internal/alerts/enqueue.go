package alerts

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

const defaultMaxRetry = 5

// enqueuer is the part of *asynq.Client the notifier uses.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// QueueNotifier hands notifications to the asynq queue. Notify returns
// immediately; enqueue failures are logged and dropped.
type QueueNotifier struct {
	client  enqueuer
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewQueueNotifier(redisAddr string, timeout time.Duration) *QueueNotifier {
	return newQueueNotifier(asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}), timeout)
}

func newQueueNotifier(c enqueuer, timeout time.Duration) *QueueNotifier {
	return &QueueNotifier{client: c, timeout: timeout}
}

func (n *QueueNotifier) Notify(kind, recipientID string, payload map[string]any) {
	task, err := NewDeliverTask(kind, recipientID, payload)
	if err != nil {
		log.Printf("[notify][ERROR] build %s for %s: %v", kind, recipientID, err)
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		info, err := n.client.EnqueueContext(ctx, task,
			asynq.Queue(QueueNotifications), asynq.MaxRetry(defaultMaxRetry))
		if err != nil {
			log.Printf("[notify][ERROR] enqueue %s for %s: %v", kind, recipientID, err)
			return
		}
		log.Printf("[notify] queued %s for %s (task=%s)", kind, recipientID, info.ID)
	}()
}

// Close waits for in-flight enqueues and releases the client.
func (n *QueueNotifier) Close() error {
	n.wg.Wait()
	return n.client.Close()
}

// InlineNotifier delivers in a goroutine without a queue. It is used when
// REDIS_ADDR is empty.
type InlineNotifier struct {
	deliverer *Deliverer
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewInlineNotifier(d *Deliverer, timeout time.Duration) *InlineNotifier {
	return &InlineNotifier{deliverer: d, timeout: timeout}
}

func (n *InlineNotifier) Notify(kind, recipientID string, payload map[string]any) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		p := DeliverPayload{Kind: kind, RecipientID: recipientID, Payload: payload, QueuedAt: time.Now().UTC()}
		if err := n.deliverer.Deliver(ctx, p); err != nil {
			log.Printf("[notify][ERROR] deliver %s to %s: %v", kind, recipientID, err)
		}
	}()
}

func (n *InlineNotifier) Close() error {
	n.wg.Wait()
	return nil
}
