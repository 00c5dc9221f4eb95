package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fetchd/fetchd/internal/model"
)

// Forwarder republishes bus events on a NATS subject so external transports
// (SSE gateways, UI backends) can consume them as `{type, payload}` JSON.
type Forwarder struct {
	nc      *nats.Conn
	subject string
	log     *slog.Logger
}

// Connect dials NATS and returns a forwarder for the given subject
func Connect(url, subject string, log *slog.Logger) (*Forwarder, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Forwarder{nc: nc, subject: subject, log: log}, nil
}

// Run consumes events from the bus until the channel closes or the context
// is cancelled. Marshalling or publish failures are logged and skipped.
func (f *Forwarder) Run(ctx context.Context, events <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				f.log.Warn("forwarder: marshal event", "type", ev.Type, "error", err)
				continue
			}
			if err := f.nc.Publish(f.subject, b); err != nil {
				f.log.Warn("forwarder: publish event", "type", ev.Type, "error", err)
			}
		}
	}
}

// Close drains the NATS connection
func (f *Forwarder) Close() {
	if f.nc != nil {
		_ = f.nc.Drain()
	}
}
