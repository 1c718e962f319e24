package metrics

import (
	"time"

	"github.com/berfenger/easee2mqtt/internal/core/port"
	"github.com/berfenger/easee2mqtt/pkg/charger_modbus"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records service calls and device register operations in Prometheus metrics.
type PromSink struct {
	calls    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	modbusOp *prometheus.HistogramVec
}

// NewPromSink registers the metrics on reg, or on the default registerer when
// reg is nil. Collectors already registered are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "easee2mqtt",
		Name:      "service_calls_total",
		Help:      "Total number of service calls by outcome",
	}, []string{"service", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "easee2mqtt",
		Name:      "service_call_duration_seconds",
		Help:      "Time spent running a service handler",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "outcome"})
	modbusOp := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "easee2mqtt",
		Name:      "modbus_operation_duration_seconds",
		Help:      "Time spent on a Modbus register operation",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	var err error
	if calls, err = register(reg, calls); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if modbusOp, err = register(reg, modbusOp); err != nil {
		return nil, err
	}

	return &PromSink{calls: calls, latency: latency, modbusOp: modbusOp}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(C), nil
		}
		return collector, err
	}
	return collector, nil
}

func (s *PromSink) RecordServiceCall(service string, outcome string, duration time.Duration) {
	s.calls.WithLabelValues(service, outcome).Inc()
	// rejected calls never ran a handler
	if duration > 0 {
		s.latency.WithLabelValues(service, outcome).Observe(duration.Seconds())
	}
}

// ModbusInstrument feeds register operation timings into the sink.
func (s *PromSink) ModbusInstrument() *charger_modbus.ModbusInstrument {
	return &charger_modbus.ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			s.modbusOp.WithLabelValues(fnName).Observe(readTime.Seconds())
		},
	}
}

// ensure interface compliance
var _ port.ServiceMetrics = (*PromSink)(nil)
