package observability

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerConfig configures the request Tracer.
type TracerConfig struct {
	// ServiceName identifies this process to the OTLP collector.
	ServiceName string
	// OTLPEndpoint is the gRPC endpoint of an OTLP collector. Empty disables
	// exporting; spans are still recorded in the in-process Trace.
	OTLPEndpoint string
}

// Tracer builds per-request Trace values and, optionally, exports otel spans
// to a collector for external observability.
type Tracer struct {
	otelTracer trace.Tracer
	shutdown   func(context.Context) error
}

// NewTracer wires an OTLP gRPC exporter when cfg.OTLPEndpoint is set,
// otherwise it returns a Tracer whose spans are recorded only in-process.
func NewTracer(ctx context.Context, cfg TracerConfig) (*Tracer, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "lucy"
	}
	if cfg.OTLPEndpoint == "" {
		tp := sdktrace.NewTracerProvider()
		return &Tracer{otelTracer: tp.Tracer(cfg.ServiceName), shutdown: tp.Shutdown}, nil
	}
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return &Tracer{otelTracer: tp.Tracer(cfg.ServiceName), shutdown: tp.Shutdown}, nil
}

// Shutdown flushes any pending otel spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// Span is a single recorded step within a Trace.
type Span struct {
	Name      string            `json:"name"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Error     string            `json:"error,omitempty"`

	otelSpan trace.Span
}

// Finish closes the span, recording an optional error.
func (s *Span) Finish(err error) {
	s.EndedAt = time.Now().UTC()
	if err != nil {
		s.Error = err.Error()
	}
	if s.otelSpan != nil {
		if err != nil {
			s.otelSpan.RecordError(err)
		}
		s.otelSpan.End()
	}
}

// Trace collects the spans and a structured log for a single request, and
// can optionally append a JSONL record to the originating thread's activity
// file for operator replay.
type Trace struct {
	mu        sync.Mutex
	RequestID string    `json:"request_id"`
	StartedAt time.Time `json:"started_at"`
	Spans     []*Span   `json:"spans"`

	ctx       context.Context
	tracer    trace.Tracer
	threadLog string // optional path to append a JSONL summary
}

// NewTrace begins a request trace. threadLogPath may be empty to disable
// per-thread JSONL persistence.
func (t *Tracer) NewTrace(ctx context.Context, requestID, threadLogPath string) *Trace {
	return &Trace{
		RequestID: requestID,
		StartedAt: time.Now().UTC(),
		ctx:       ctx,
		tracer:    t.otelTracer,
		threadLog: threadLogPath,
	}
}

// Span starts a new named span under this trace, recording string attrs.
func (tr *Trace) Span(name string, attrs map[string]string) *Span {
	_, otelSpan := tr.tracer.Start(tr.ctx, name)
	for k, v := range attrs {
		otelSpan.SetAttributes(attribute.String(k, v))
	}
	sp := &Span{Name: name, StartedAt: time.Now().UTC(), Attrs: attrs, otelSpan: otelSpan}
	tr.mu.Lock()
	tr.Spans = append(tr.Spans, sp)
	tr.mu.Unlock()
	return sp
}

// Finish closes the trace and, if a thread log path was configured, appends
// a JSON line summarizing it.
func (tr *Trace) Finish() error {
	if tr.threadLog == "" {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(tr.threadLog), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(tr.threadLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	return enc.Encode(tr)
}
