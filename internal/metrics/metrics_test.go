package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/modbus2mqtt/pkg/modbusclient"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {

	assert := assert.New(t)

	m := New()
	m.PropertyChanged("meter")
	m.PropertyChanged("meter")
	m.PropertyChanged("heatpump")
	m.ModbusError("meter")

	assert.Equal(2.0, testutil.ToFloat64(m.propertyChanges.WithLabelValues("meter")))
	assert.Equal(1.0, testutil.ToFloat64(m.propertyChanges.WithLabelValues("heatpump")))
	assert.Equal(1.0, testutil.ToFloat64(m.modbusErrors.WithLabelValues("meter")))
}

func TestModbusInstrument(t *testing.T) {

	assert := assert.New(t)

	m := New()
	inst := []modbusclient.ModbusInstrument{m.ModbusInstrument()}
	done := modbusclient.RecordTimer("ReadRegisters", inst)
	time.Sleep(time.Millisecond)
	done()

	assert.Equal(1, testutil.CollectAndCount(m.modbusCalls))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(200, rec.Code)
	assert.True(strings.Contains(rec.Body.String(), "modbus2mqtt_modbus_call_duration_seconds"))
}
