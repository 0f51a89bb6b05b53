package modbusclient

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

// TraceLoggerInstrumentation logs every call duration. It returns nil when
// the logger would discard debug entries.
func TraceLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		return nil
	}
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus call", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}

func buildInstruments(logger *zap.Logger, target string, extra []ModbusInstrument) []ModbusInstrument {
	var inst []ModbusInstrument
	if logger != nil {
		if logInst := TraceLoggerInstrumentation(logger.With(zap.String("target", target))); logInst != nil {
			inst = append(inst, *logInst)
		}
	}
	return append(inst, extra...)
}
