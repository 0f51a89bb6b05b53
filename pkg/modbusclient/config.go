package modbusclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DriverSimonvetter = "simonvetter"
	DriverGoburrow    = "goburrow"
)

var (
	ErrUnknownDriver = errors.New("unknown modbus driver")
	ErrBadURL        = errors.New("invalid modbus url")
	ErrReadOnly      = errors.New("register type is read only")
)

// Config describes one Modbus link. URL is tcp://host:port for Modbus TCP
// or rtu:///dev/ttyX for a serial bus.
type Config struct {
	URL      string
	Speed    uint
	DataBits uint
	Parity   string
	StopBits uint
	Timeout  time.Duration
}

func TCPConfig(host string, port uint, timeout time.Duration) Config {
	return Config{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	}
}

func RTUConfig(device string, speed uint, dataBits uint, parity string, stopBits uint, timeout time.Duration) Config {
	return Config{
		URL:      "rtu://" + device,
		Speed:    speed,
		DataBits: dataBits,
		Parity:   parity,
		StopBits: stopBits,
		Timeout:  timeout,
	}
}

// endpoint splits URL into scheme and address (host:port or device path).
func (c Config) endpoint() (string, string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrBadURL, err)
	}
	switch u.Scheme {
	case "tcp":
		if u.Host == "" {
			return "", "", fmt.Errorf("%w: missing host in %s", ErrBadURL, c.URL)
		}
		return u.Scheme, u.Host, nil
	case "rtu":
		if u.Path == "" {
			return "", "", fmt.Errorf("%w: missing serial device in %s", ErrBadURL, c.URL)
		}
		return u.Scheme, u.Path, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported scheme %q", ErrBadURL, u.Scheme)
	}
}

func (c Config) IsRTU() bool {
	return strings.HasPrefix(c.URL, "rtu://")
}

func (c Config) parity() string {
	switch strings.ToUpper(c.Parity) {
	case "E", "EVEN":
		return "E"
	case "O", "ODD":
		return "O"
	default:
		return "N"
	}
}
