package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/skillswap/internal/models"
)

// NotificationWriter stores in-app notifications.
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Deliverer turns a notification into a stored in-app notice.
type Deliverer struct {
	store NotificationWriter
}

func NewDeliverer(s NotificationWriter) *Deliverer {
	return &Deliverer{store: s}
}

func (d *Deliverer) Deliver(ctx context.Context, p DeliverPayload) error {
	if p.RecipientID == "" || p.Kind == "" {
		return fmt.Errorf("notification missing kind or recipient")
	}
	n := &models.Notification{UserID: p.RecipientID, Kind: p.Kind, Payload: p.Payload}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return err
	}
	log.Printf("[notify] %s delivered -> user=%s id=%s", p.Kind, p.RecipientID, n.ID)
	return nil
}

// HandleDeliverTask is the asynq handler for TaskDeliverNotification.
// Payloads that cannot be decoded are not retried.
func (d *Deliverer) HandleDeliverTask(ctx context.Context, t *asynq.Task) error {
	var p DeliverPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		log.Printf("[notify][ERROR] bad %s payload: %v", t.Type(), err)
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := d.Deliver(ctx, p); err != nil {
		log.Printf("[notify][ERROR] %s delivery failed: %v", p.Kind, err)
		return err
	}
	return nil
}

// Mux routes notification tasks to d.
func (d *Deliverer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDeliverNotification, d.HandleDeliverTask)
	return mux
}

// Worker runs the asynq server that drains the notification queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	addr   string
}

func NewWorker(redisAddr string, d *Deliverer) *Worker {
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueNotifications: 10,
		},
	})
	return &Worker{server: server, mux: d.Mux(), addr: redisAddr}
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	log.Printf("Asynq worker started (addr=%s)", w.addr)
	return nil
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
