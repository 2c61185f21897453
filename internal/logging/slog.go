package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Options configures SlogManager.Setup. Zero fields disable their output.
type Options struct {
	// File receives text logs. When nil, logs go to Console instead.
	File io.Writer
	// Console defaults to os.Stdout.
	Console io.Writer
	Level   string
	// Provider enables the OpenTelemetry log bridge.
	Provider *sdklog.LoggerProvider
	// GELF enables Graylog shipping.
	GELF MessageWriter
	// Context stamps every record, typically SimContext.
	Context ContextProvider
	// Name is the OTel instrumentation scope and GELF facility.
	Name string
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger
	level  slog.LevelVar

	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// Setup builds the handler chain. It may be called again to switch outputs,
// for example once the session log file is open.
func (m *SlogManager) Setup(opts Options) {
	m.level.Set(parseLevel(opts.Level))
	m.logProvider = opts.Provider
	name := opts.Name
	if name == "" {
		name = "combatsim"
	}

	handlerOpts := &slog.HandlerOptions{
		Level: &m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler
	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	} else {
		console := opts.Console
		if console == nil {
			console = os.Stdout
		}
		handlers = append(handlers, slog.NewTextHandler(console, handlerOpts))
	}
	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(name, otelslog.WithLoggerProvider(opts.Provider)))
	}
	if opts.GELF != nil {
		handlers = append(handlers, NewGELFHandler(opts.GELF, &m.level, name))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		h = NewContextHandler(h, opts.Context)
	}
	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", m.level.Level().String())
}

// SetLevel changes the level of every handler built by Setup.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(parseLevel(level))
}

// Logger returns the configured slog.Logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
