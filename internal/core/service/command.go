package service

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/core/port"

	"go.uber.org/zap"
)

type target struct {
	deviceId string
	property domain.PropertyInfo
}

// DefaultCommandLogic indexes the writable properties of registered
// devices by their component id.
type DefaultCommandLogic struct {
	mu      sync.RWMutex
	targets map[string]target
	Logger  *zap.Logger
}

func NewCommandLogic(logger *zap.Logger) *DefaultCommandLogic {
	return &DefaultCommandLogic{
		targets: make(map[string]target),
		Logger:  logger,
	}
}

func (l *DefaultCommandLogic) Register(device domain.DeviceInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unregister(device.Id)
	for _, p := range device.Properties {
		if !p.Writable {
			continue
		}
		l.targets[domain.SensorId(device.Id, p.Name)] = target{deviceId: device.Id, property: p}
	}
}

func (l *DefaultCommandLogic) Unregister(deviceId string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unregister(deviceId)
}

func (l *DefaultCommandLogic) unregister(deviceId string) {
	for id, t := range l.targets {
		if t.deviceId == deviceId {
			delete(l.targets, id)
		}
	}
}

func (l *DefaultCommandLogic) Resolve(cmd domain.Command) (domain.WritePropertyRequest, error) {
	l.mu.RLock()
	t, ok := l.targets[strings.ToLower(cmd.TargetId)]
	l.mu.RUnlock()
	if !ok {
		return domain.WritePropertyRequest{}, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, cmd.TargetId)
	}

	value, err := commandValue(cmd, t.property)
	if err != nil {
		if l.Logger != nil {
			l.Logger.Warn("command rejected", zap.String("target", cmd.TargetId), zap.String("payload", cmd.Payload), zap.Error(err))
		}
		return domain.WritePropertyRequest{}, err
	}
	return domain.WritePropertyRequest{
		DeviceId: t.deviceId,
		Property: t.property.Name,
		Value:    value,
	}, nil
}

func commandValue(cmd domain.Command, p domain.PropertyInfo) (float64, error) {
	payload := strings.TrimSpace(cmd.Payload)
	switch cmd.Type {
	case domain.COMMAND_TYPE_SWITCH:
		if p.Kind != domain.PROPERTY_KIND_SWITCH {
			return 0, domain.ErrComponentTypeMismatch
		}
		switch strings.ToLower(payload) {
		case "on", "1", "true":
			return 1, nil
		case "off", "0", "false":
			return 0, nil
		}
	case domain.COMMAND_TYPE_NUMBER:
		if p.Kind != domain.PROPERTY_KIND_NUMBER {
			return 0, domain.ErrComponentTypeMismatch
		}
		value, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", domain.ErrInvalidPayload, err)
		}
		if p.Max > p.Min && (value < p.Min || value > p.Max) {
			return 0, fmt.Errorf("%w: %v not in [%v, %v]", domain.ErrInvalidPayload, value, p.Min, p.Max)
		}
		return value, nil
	case domain.COMMAND_TYPE_SELECT:
		if p.Kind != domain.PROPERTY_KIND_ENUM {
			return 0, domain.ErrComponentTypeMismatch
		}
		for _, o := range p.Options {
			if o.Name == payload {
				return float64(o.Tag), nil
			}
		}
	default:
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, cmd.Type)
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrInvalidPayload, payload)
}

// ensure interface compliance
var _ port.CommandLogic = (*DefaultCommandLogic)(nil)
