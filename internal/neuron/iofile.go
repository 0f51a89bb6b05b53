package neuron

import (
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ioFile is an open sysfs value file. Reads and writes always address
// offset 0 so the file can stay open across poll cycles.
type ioFile struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func openIOFile(path string, writable bool) (*ioFile, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	return &ioFile{path: path, file: f}, nil
}

func (f *ioFile) readDigital() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, 1)
	if _, err := f.file.ReadAt(buf, 0); err != nil {
		return false, err
	}
	return buf[0] == '1', nil
}

// readAnalog returns the value in volts. The driver reports millivolts;
// negative readings are clamped to zero.
func (f *ioFile) readAnalog() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, 32)
	n, err := f.file.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(buf[:n])), 64)
	if err != nil {
		return 0, err
	}
	v /= 1000
	if v < 0 {
		v = 0
	}
	return v, nil
}

func (f *ioFile) writeDigital(on bool) error {
	if on {
		return f.write("1")
	}
	return f.write("0")
}

// writeAnalog writes volts as a whole millivolt count.
func (f *ioFile) writeAnalog(volts float64) error {
	return f.write(strconv.Itoa(int(math.Round(volts * 1000))))
}

func (f *ioFile) write(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// sysfs attributes ignore truncation; regular files need it
	_ = f.file.Truncate(0)
	_, err := f.file.WriteAt([]byte(s), 0)
	return err
}

func (f *ioFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
