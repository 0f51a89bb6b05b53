package metrics

import (
	"net/http"
	"time"

	"github.com/berfenger/modbus2mqtt/pkg/modbusclient"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "modbus2mqtt"

// Metrics owns a private registry, so that several instances can live in
// one process (tests).
type Metrics struct {
	registry        *prometheus.Registry
	modbusCalls     *prometheus.HistogramVec
	propertyChanges *prometheus.CounterVec
	modbusErrors    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		modbusCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "modbus_call_duration_seconds",
			Help:      "Duration of modbus transactions.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"fn"}),
		propertyChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_changes_total",
			Help:      "Number of property value changes reported per device.",
		}, []string{"device"}),
		modbusErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modbus_errors_total",
			Help:      "Number of failed modbus requests per device.",
		}, []string{"device"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.modbusCalls,
		m.propertyChanges,
		m.modbusErrors,
	)
	return m
}

// ModbusInstrument records transport call durations.
func (m *Metrics) ModbusInstrument() modbusclient.ModbusInstrument {
	return modbusclient.ModbusInstrument{
		RecordTime: func(fnName string, d time.Duration) {
			m.modbusCalls.WithLabelValues(fnName).Observe(d.Seconds())
		},
	}
}

func (m *Metrics) PropertyChanged(deviceId string) {
	m.propertyChanges.WithLabelValues(deviceId).Inc()
}

func (m *Metrics) ModbusError(deviceId string) {
	m.modbusErrors.WithLabelValues(deviceId).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
