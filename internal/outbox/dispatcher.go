package outbox

import (
	"context"
	"log/slog"
	"time"
)

type Store interface {
	FetchUnpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(topic string, body []byte) error
}

// Dispatcher drains staged events onto the bus. Delivery is at-least-once: a
// crash after Publish but before MarkPublished republishes the event, which
// downstream consumers already tolerate.
type Dispatcher struct {
	store    Store
	pub      Publisher
	interval time.Duration
	batch    int
}

func NewDispatcher(store Store, pub Publisher, interval time.Duration, batch int) *Dispatcher {
	return &Dispatcher{store: store, pub: pub, interval: interval, batch: batch}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.dispatchOnce(ctx); err != nil {
				slog.Warn("outbox dispatch pass failed", "error", err)
			}
		}
	}
}

func (d *Dispatcher) dispatchOnce(ctx context.Context) error {
	events, err := d.store.FetchUnpublished(ctx, d.batch)
	if err != nil {
		return err
	}

	for _, e := range events {
		if err := d.pub.Publish(e.Topic, e.Payload); err != nil {
			// Leave the row unmarked; the next pass retries it.
			slog.Warn("failed to publish outbox event", "id", e.ID, "topic", e.Topic, "error", err)
			continue
		}
		if err := d.store.MarkPublished(ctx, e.ID); err != nil {
			slog.Warn("failed to mark outbox event published", "id", e.ID, "error", err)
			continue
		}
		slog.Info("published event", "id", e.ID, "topic", e.Topic)
	}
	return nil
}
