package otel

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
)

// syncBuffer guards a bytes.Buffer written from exporter goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutOutputs(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "combatsim"})
	assert.Error(t, err)
}

func TestNew_LogsOnly(t *testing.T) {
	var logs syncBuffer
	p, err := New(Config{Enabled: true, ServiceName: "combatsim", BatchTimeout: time.Second, LogWriter: &logs})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.True(t, p.Enabled())
	assert.NotNil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"), "no metric writer means no meter provider")
	assert.NoError(t, p.Flush(context.Background()))
}

func TestNew_MetricsExported(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	var logs, metrics syncBuffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "combatsim",
		BatchTimeout: time.Hour,
		LogWriter:    &logs,
		MetricWriter: &metrics,
	})
	require.NoError(t, err)

	counter, err := otel.Meter("test").Int64Counter("sim.test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, metrics.String(), "sim.test.counter")
	assert.NoError(t, p.Shutdown(context.Background()))
}
