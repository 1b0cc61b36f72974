package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/notify"
)

// subscriberBuffer is how many alerts a slow stream may fall behind before
// alerts are dropped for it.
const subscriberBuffer = 16

// Broker fans QA issue alerts out to connected event-stream clients. It is a
// notify.Channel, so it sits in the same fan-out as Slack and Discord.
type Broker struct {
	mu   sync.Mutex
	subs map[chan notify.Alert]struct{}
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan notify.Alert]struct{})}
}

// Name implements notify.Channel.
func (b *Broker) Name() string { return "dashboard" }

// Notify implements notify.Dispatcher. It never blocks on a slow client.
func (b *Broker) Notify(ctx context.Context, a notify.Alert) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- a:
		default:
		}
	}
	return nil
}

// Subscribe registers a listener. Call the returned func to unsubscribe.
func (b *Broker) Subscribe() (<-chan notify.Alert, func()) {
	ch := make(chan notify.Alert, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
}

// Subscribers returns the number of connected listeners.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// events streams qa_issue alerts as server-sent events.
func (h *handlers) events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	alerts, unsubscribe := h.opts.Events.Subscribe()
	defer unsubscribe()

	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	c.Writer.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case a := <-alerts:
			writeSSE(c.Writer, "qa_issue", a)
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
