package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromSinkRecordsCalls(t *testing.T) {

	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	require.NoError(t, err)

	sink.RecordServiceCall("pause", "success", 20*time.Millisecond)
	sink.RecordServiceCall("pause", "success", 30*time.Millisecond)
	sink.RecordServiceCall("pause", "invalid", 0)

	assert.Equal(float64(2), testutil.ToFloat64(sink.calls.WithLabelValues("pause", "success")))
	assert.Equal(float64(1), testutil.ToFloat64(sink.calls.WithLabelValues("pause", "invalid")))
	assert.Equal(1, testutil.CollectAndCount(sink.latency))

	sink.ModbusInstrument().RecordTime("WriteRegister", 5*time.Millisecond)
	assert.Equal(1, testutil.CollectAndCount(sink.modbusOp))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {

	reg := prometheus.NewRegistry()
	first, err := NewPromSink(reg)
	require.NoError(t, err)
	second, err := NewPromSink(reg)
	require.NoError(t, err)

	first.RecordServiceCall("stop", "error", time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(second.calls.WithLabelValues("stop", "error")))
}
