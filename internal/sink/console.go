package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/fedistream/internal/router"
)

// Console prints events as JSON, one Record per line.
type Console struct {
	mu         sync.Mutex
	w          io.Writer
	stream     string
	indent     bool
	heartbeats bool
	now        func() time.Time
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithIndent pretty-prints each record.
func WithIndent() ConsoleOption {
	return func(c *Console) { c.indent = true }
}

// WithHeartbeats prints heartbeats, which are skipped by default.
func WithHeartbeats() ConsoleOption {
	return func(c *Console) { c.heartbeats = true }
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer, stream string, opts ...ConsoleOption) *Console {
	c := &Console{w: w, stream: stream, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle implements connection.Sink.
func (c *Console) Handle(ev router.Event) {
	if _, ok := ev.(router.Heartbeat); ok && !c.heartbeats {
		return
	}

	rec, err := newRecord(uuid.NewString(), c.stream, ev, c.now())
	if err != nil {
		c.write([]byte(fmt.Sprintf(`{"error":%q}`, err.Error())))
		return
	}

	var data []byte
	if c.indent {
		data, err = json.MarshalIndent(rec, "", "  ")
	} else {
		data, err = json.Marshal(rec)
	}
	if err != nil {
		c.write([]byte(fmt.Sprintf(`{"error":%q}`, err.Error())))
		return
	}
	c.write(data)
}

func (c *Console) write(line []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Write(append(line, '\n'))
}
