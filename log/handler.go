package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// formatterHandler adapts a LogFormatter to slog.Handler, letting
// Logger dispatch through TextFormatter/JSONFormatter/ColorFormatter
// instead of only slog's own JSON encoding. Attrs accumulated via
// WithAttrs/WithGroup are flattened into the LogEntry's Fields map
// under their (possibly group-prefixed) key.
type formatterHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	formatter LogFormatter
	level     slog.Leveler
	prefix    string
	attrs     map[string]interface{}
}

// newFormatterHandler builds a slog.Handler that writes one formatted
// line per record to w via formatter, filtering out records below
// level.
func newFormatterHandler(w io.Writer, level slog.Leveler, formatter LogFormatter) slog.Handler {
	return &formatterHandler{
		mu:        &sync.Mutex{},
		w:         w,
		formatter: formatter,
		level:     level,
		attrs:     make(map[string]interface{}),
	}
}

func (h *formatterHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *formatterHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.prefix != "" {
			key = h.prefix + "." + key
		}
		fields[key] = a.Value.Any()
		return true
	})

	entry := LogEntry{
		Timestamp: r.Time,
		Level:     levelFromSlog(r.Level),
		Message:   r.Message,
		Fields:    fields,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, h.formatter.Format(entry))
	return err
}

func (h *formatterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &formatterHandler{
		mu:        h.mu,
		w:         h.w,
		formatter: h.formatter,
		level:     h.level,
		prefix:    h.prefix,
		attrs:     make(map[string]interface{}, len(h.attrs)+len(attrs)),
	}
	for k, v := range h.attrs {
		next.attrs[k] = v
	}
	for _, a := range attrs {
		key := a.Key
		if h.prefix != "" {
			key = h.prefix + "." + key
		}
		next.attrs[key] = a.Value.Any()
	}
	return next
}

func (h *formatterHandler) WithGroup(name string) slog.Handler {
	next := &formatterHandler{
		mu:        h.mu,
		w:         h.w,
		formatter: h.formatter,
		level:     h.level,
		attrs:     h.attrs,
		prefix:    name,
	}
	if h.prefix != "" {
		next.prefix = h.prefix + "." + name
	}
	return next
}

// levelFromSlog maps a slog.Level onto the coarser LogLevel scale the
// formatters render against; slog has no FATAL level, so ERROR is the
// ceiling here.
func levelFromSlog(l slog.Level) LogLevel {
	switch {
	case l < slog.LevelInfo:
		return DEBUG
	case l < slog.LevelWarn:
		return INFO
	case l < slog.LevelError:
		return WARN
	default:
		return ERROR
	}
}
