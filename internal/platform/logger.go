package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProductionLogger is a layered structured logger modeled on gomind's
// core.ProductionLogger / telemetry.TelemetryLogger: JSON lines in
// Kubernetes, human-readable key=value lines for local development, with
// a Debug gate and per-component tagging.
type ProductionLogger struct {
	mu        sync.Mutex
	level     string
	debug     bool
	service   string
	component string
	format    string
	output    io.Writer
}

// NewProductionLogger builds the default logger for the control plane.
// format is "json" or "text"; an empty format auto-detects based on
// KUBERNETES_SERVICE_HOST, the same heuristic gomind uses.
func NewProductionLogger(service, level, format string) *ProductionLogger {
	if level == "" {
		level = "info"
	}
	if format == "" {
		format = "text"
		if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
			format = "json"
		}
	}
	return &ProductionLogger{
		level:   strings.ToLower(level),
		debug:   strings.ToLower(level) == "debug",
		service: service,
		format:  format,
		output:  os.Stdout,
	}
}

// SetOutput redirects log output; used by tests to capture log lines.
func (p *ProductionLogger) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

// WithComponent returns a logger that tags every line with component,
// the way ComponentAwareLogger lets MemoryStore/RedisDiscovery/etc. each
// carry their own identity in shared log output.
func (p *ProductionLogger) WithComponent(name string) Logger {
	return &ProductionLogger{
		level:     p.level,
		debug:     p.debug,
		service:   p.service,
		component: name,
		format:    p.format,
		output:    p.output,
	}
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields)
}
func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields)
}
func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields)
}
func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields)
	}
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEventCtx(ctx, "INFO", msg, fields)
}
func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEventCtx(ctx, "ERROR", msg, fields)
}
func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEventCtx(ctx, "WARN", msg, fields)
}
func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEventCtx(ctx, "DEBUG", msg, fields)
	}
}

func (p *ProductionLogger) logEventCtx(ctx context.Context, level, msg string, fields map[string]interface{}) {
	if reqID, ok := RequestIDFromContext(ctx); ok {
		if fields == nil {
			fields = map[string]interface{}{}
		}
		fields["request_id"] = reqID
	}
	p.logEvent(level, msg, fields)
}

func (p *ProductionLogger) logEvent(level, msg string, fields map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	timestamp := time.Now().Format(time.RFC3339)
	component := p.component
	if component == "" {
		component = "control-plane"
	}

	if p.format == "json" {
		entry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   p.service,
			"component": component,
			"message":   msg,
		}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
		return
	}

	var b strings.Builder
	if len(fields) > 0 {
		b.WriteString(" ")
		for k, v := range fields {
			fmt.Fprintf(&b, "%s=%v ", k, v)
		}
	}
	fmt.Fprintf(p.output, "%s [%s] [%s/%s] %s%s\n", timestamp, level, p.service, component, msg, b.String())
}

// contextKey avoids collisions with other packages' context keys.
type contextKey string

const requestIDKey contextKey = "robotd.request_id"

// ContextWithRequestID attaches a request id for log correlation, mirroring
// gomind's trace-baggage propagation via context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves a request id set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	return v, ok
}
