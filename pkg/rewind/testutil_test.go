package rewind

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/rewind/pkg/rewind/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// item is the state used across tests: an index and an LCG value.
type item struct {
	Index int
	Value uint64
}

func nextItem(s item) (item, error) {
	return item{Index: s.Index + 1, Value: s.Value*6364136223846793005 + 1442695040888963407}, nil
}

// expected returns the first n items starting from the zero item.
func expected(n int) []item {
	out := make([]item, n)
	for i := 1; i < n; i++ {
		out[i], _ = nextItem(out[i-1])
	}
	return out
}

// counter counts step invocations.
type counter struct {
	calls int64
	hook  func(s item) error
}

func (c *counter) step(s item) (item, error) {
	c.calls++
	if c.hook != nil {
		if err := c.hook(s); err != nil {
			return s, err
		}
	}
	return nextItem(s)
}

// bounded returns a step for a sequence of n items that reports its own end.
func bounded(n int, c *counter) StepFunc[item] {
	return func(s item) (item, error) {
		if s.Index >= n-1 {
			return s, ErrEndOfSequence
		}
		if c != nil {
			return c.step(s)
		}
		return nextItem(s)
	}
}

func testCtx() context.Context {
	return context.Background()
}

// toEnd moves forward until the first error and returns it.
func toEnd[S any](e *Engine[S]) error {
	for {
		if err := e.Forward(testCtx()); err != nil {
			return err
		}
	}
}

// testLogHandler captures log records for testing.
type testLogHandler struct {
	mu    sync.Mutex
	buf   *bytes.Buffer
	attrs []slog.Attr
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{buf: &bytes.Buffer{}}
}

func (h *testLogHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, a := range h.attrs {
		data[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testLogHandler{buf: h.buf, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *testLogHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *testLogHandler) records() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (h *testLogHandler) messages() []string {
	var out []string
	for _, r := range h.records() {
		out = append(out, r["msg"].(string))
	}
	return out
}

// recordingMetrics captures metric calls.
type recordingMetrics struct {
	moves       []string
	moveErrors  int
	steps       int64
	plans       int
	checkpoints []int
	pending     int
}

var _ observability.MetricsRecorder = (*recordingMetrics)(nil)

func (m *recordingMetrics) RecordMove(_ context.Context, direction string, steps int64, _ time.Duration, err error) {
	m.moves = append(m.moves, direction)
	m.steps += steps
	if err != nil {
		m.moveErrors++
	}
}

func (m *recordingMetrics) RecordPlan(_ context.Context, _, _ int, _ int64) {
	m.plans++
}

func (m *recordingMetrics) RecordCheckpoints(_ context.Context, count int) {
	m.checkpoints = append(m.checkpoints, count)
}

func (m *recordingMetrics) RecordPending(_ context.Context, _ string) {
	m.pending++
}

// recordingSpans captures span calls.
type recordingSpans struct {
	started []string
	errored int
	ended   int
	steps   int64
}

var _ observability.SpanManager = (*recordingSpans)(nil)

func (s *recordingSpans) StartMoveSpan(ctx context.Context, _, direction string, _ int) (context.Context, trace.Span) {
	s.started = append(s.started, direction)
	return ctx, noop.Span{}
}

func (s *recordingSpans) EndMoveSpan(_ trace.Span, _ int, steps int64, err error) {
	s.ended++
	s.steps += steps
	if err != nil {
		s.errored++
	}
}

func (s *recordingSpans) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}

func sloggerFor(h slog.Handler) *slog.Logger {
	return slog.New(h)
}
