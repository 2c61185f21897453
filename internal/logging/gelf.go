package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// MessageWriter sends one GELF message. *gelf.Writer satisfies it.
type MessageWriter interface {
	WriteMessage(m *gelf.Message) error
}

// NewGELFWriter dials a Graylog UDP input.
func NewGELFWriter(addr string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("creating gelf writer for %s: %w", addr, err)
	}
	return w, nil
}

// GELFHandler ships records to Graylog as GELF messages. Attributes become
// underscore-prefixed additional fields; groups are joined with dots.
type GELFHandler struct {
	w        MessageWriter
	level    slog.Leveler
	host     string
	facility string
	attrs    []slog.Attr
	group    string
}

// NewGELFHandler creates a handler writing to w at or above level.
func NewGELFHandler(w MessageWriter, level slog.Leveler, facility string) *GELFHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "combatsim"
	}
	return &GELFHandler{w: w, level: level, host: host, facility: facility}
}

func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, len(h.attrs)+r.NumAttrs()+1)
	for _, a := range h.attrs {
		addField(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addField(extra, h.group, a)
		return true
	})
	extra["_level_name"] = r.Level.String()

	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    syslogLevel(r.Level),
		Facility: h.facility,
		Extra:    extra,
	})
}

func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *GELFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	return &c
}

func addField(extra map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addField(extra, key, ga)
		}
		return
	}
	if key == "" {
		return
	}
	v := a.Value.Any()
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	extra["_"+key] = v
}

// syslogLevel maps slog levels onto the syslog severities GELF expects.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return 3
	case l >= slog.LevelWarn:
		return 4
	case l >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}
