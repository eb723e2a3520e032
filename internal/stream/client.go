package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
)

// writeTimeout bounds one frame write on a stream that otherwise has no
// deadline.
const writeTimeout = 30 * time.Second

// client writes SSE frames to one connection.
type client struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	budget *byteBudget

	messages int64
	bytes    int64
	dropped  int64
}

func newClient(w http.ResponseWriter, bandwidth int) *client {
	return &client{w: w, rc: http.NewResponseController(w), budget: newByteBudget(bandwidth)}
}

// frame encodes v as one SSE event. A non-zero id is sent as the event
// id so a reconnecting browser reports it in Last-Event-ID.
func frame(id uint64, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	var b bytes.Buffer
	b.Grow(len(data) + 32)
	if id > 0 {
		b.WriteString("id: ")
		b.WriteString(strconv.FormatUint(id, 10))
		b.WriteByte('\n')
	}
	b.WriteString("data: ")
	b.Write(data)
	b.WriteString("\n\n")
	return b.Bytes(), nil
}

// send writes and flushes one frame. kind labels the message metric;
// an empty kind marks control frames that are not counted as messages.
func (c *client) send(kind string, p []byte) error {
	// Recorders in tests do not support deadlines; that is not an error.
	_ = c.rc.SetWriteDeadline(time.Now().Add(writeTimeout))

	n, err := c.w.Write(p)
	if err == nil {
		err = c.rc.Flush()
	}
	c.bytes += int64(n)
	metrics.AddStreamBytes(n)
	if err != nil {
		return fmt.Errorf("stream write: %w", err)
	}
	if kind != "" {
		c.messages++
		metrics.IncStreamMessages(kind)
	}
	return nil
}

func (c *client) sendJSON(kind string, id uint64, v any) error {
	p, err := frame(id, v)
	if err != nil {
		return err
	}
	return c.send(kind, p)
}

// sendScene sends a scene frame unless it would exceed the bandwidth
// budget, in which case it is counted as dropped.
func (c *client) sendScene(p []byte, now time.Time) (sent bool, err error) {
	if !c.budget.allow(len(p), now) {
		c.dropped++
		return false, nil
	}
	return true, c.send("scene", p)
}

func (c *client) keepalive() error { return c.send("", []byte(":\n\n")) }

func (c *client) retry(ms int) error {
	return c.send("", []byte("retry: "+strconv.Itoa(ms)+"\n\n"))
}

// byteBudget allows up to limit bytes per one-second window. A frame
// larger than the whole budget still passes on an empty window so a small
// limit cannot starve the stream.
type byteBudget struct {
	limit  int
	window time.Time
	used   int
}

func newByteBudget(limit int) *byteBudget {
	return &byteBudget{limit: limit}
}

func (b *byteBudget) allow(n int, now time.Time) bool {
	if b == nil || b.limit <= 0 {
		return true
	}
	if now.Sub(b.window) >= time.Second {
		b.window = now
		b.used = 0
	}
	if b.used > 0 && b.used+n > b.limit {
		return false
	}
	b.used += n
	return true
}
