// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	arena "github.com/wundergraph/go-region-arena"
)

func attrs(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestCycleSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")

	stats := arena.Stats{Cycles: 4}
	stats.Transient.Used = 96
	stats.Transient.Peak = 128
	stats.Transient.Allocations = 2

	_, span := StartCycle(context.Background(), tracer, "factor", attribute.Int64("n", 360))
	EndCycle(span, stats, nil)

	_, span = StartCycle(context.Background(), tracer, "generate")
	EndCycle(span, stats, errors.New("arena: out of memory"))

	ended := sr.Ended()
	require.Len(t, ended, 2)

	require.Equal(t, "factor", ended[0].Name())
	got := attrs(ended[0].Attributes())
	require.Equal(t, int64(360), got["n"].AsInt64())
	require.Equal(t, int64(4), got["arena.cycle"].AsInt64())
	require.Equal(t, int64(96), got["arena.transient.used"].AsInt64())
	require.Equal(t, int64(128), got["arena.transient.peak"].AsInt64())
	require.Equal(t, int64(2), got["arena.transient.allocations"].AsInt64())
	require.Equal(t, codes.Unset, ended[0].Status().Code)

	require.Equal(t, "generate", ended[1].Name())
	require.Equal(t, codes.Error, ended[1].Status().Code)
	require.Equal(t, "arena: out of memory", ended[1].Status().Description)
	require.Len(t, ended[1].Events(), 1)
}

func TestNewProvider(t *testing.T) {
	tp, err := NewProvider("http://127.0.0.1:0/api/traces")
	require.NoError(t, err)
	require.NoError(t, tp.Shutdown(context.Background()))
}
