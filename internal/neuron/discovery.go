package neuron

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const userLEDPrefix = "unipi:green:uled-x"

// Discover lists the circuits of class found under baseDir. Directory
// names are <prefix><group>.<index>; names that do not parse are logged
// and skipped.
func Discover(baseDir string, class IOClass, logger *zap.Logger) []Circuit {
	if class == UserLED {
		return discoverLEDs(baseDir, logger)
	}

	prefix := class.Prefix()
	matches, err := filepath.Glob(filepath.Join(baseDir, prefix+"*"))
	if err != nil {
		logger.Warn("neuron: discover failed", zap.String("class", class.String()), zap.Error(err))
		return nil
	}

	var circuits []Circuit
	for _, path := range matches {
		if !isDir(path) {
			continue
		}
		name := filepath.Base(path)
		logger.Debug("neuron: discovered", zap.String("path", path))

		parts := strings.Split(name[len(prefix):], ".")
		if len(parts) != 2 {
			logger.Warn("neuron: discover IOs: file path cannot be parsed", zap.String("name", name))
			continue
		}
		group, err := strconv.ParseUint(parts[0], 10, 8)
		if err != nil {
			logger.Warn("neuron: discover IOs: could not parse IO group", zap.String("name", name))
			continue
		}
		index, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil {
			logger.Warn("neuron: discover IOs: could not parse IO number", zap.String("name", name))
			continue
		}
		circuits = append(circuits, Circuit{Class: class, Group: uint8(group), Index: uint8(index)})
	}
	sortCircuits(circuits)
	return circuits
}

func discoverLEDs(baseDir string, logger *zap.Logger) []Circuit {
	matches, err := filepath.Glob(filepath.Join(baseDir, "leds", userLEDPrefix+"*"))
	if err != nil {
		logger.Warn("neuron: discover user LEDs failed", zap.Error(err))
		return nil
	}
	var circuits []Circuit
	for _, path := range matches {
		name := filepath.Base(path)
		index, err := strconv.ParseUint(strings.TrimPrefix(name, userLEDPrefix), 10, 8)
		if err != nil {
			logger.Warn("neuron: discover IOs: could not parse user LED", zap.String("name", name))
			continue
		}
		circuits = append(circuits, Circuit{Class: UserLED, Index: uint8(index)})
	}
	sortCircuits(circuits)
	return circuits
}

func sortCircuits(circuits []Circuit) {
	slices.SortFunc(circuits, func(a, b Circuit) int {
		if a.Group != b.Group {
			return int(a.Group) - int(b.Group)
		}
		return int(a.Index) - int(b.Index)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
