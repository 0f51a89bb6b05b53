package regmap

import (
	"fmt"
	"slices"
	"strings"
)

const unknownEnumName = "unknown"

// EnumTable maps vendor enum tags to names. Tags that are not in the table
// decode to an unrecognized EnumValue, never to an error.
type EnumTable struct {
	Name  string
	names map[uint32]string
}

type EnumValue struct {
	Tag   uint32
	Name  string
	Known bool
}

func NewEnumTable(name string, names map[uint32]string) *EnumTable {
	return &EnumTable{
		Name:  name,
		names: names,
	}
}

func (t *EnumTable) Lookup(tag uint32) EnumValue {
	if t != nil {
		if name, ok := t.names[tag]; ok {
			return EnumValue{Tag: tag, Name: name, Known: true}
		}
	}
	return EnumValue{Tag: tag, Name: fmt.Sprintf("%s(%d)", unknownEnumName, tag)}
}

// Tag returns the tag registered with name.
func (t *EnumTable) Tag(name string) (uint32, bool) {
	if t == nil {
		return 0, false
	}
	for tag, n := range t.names {
		if n == name {
			return tag, true
		}
	}
	return 0, false
}

// Tags returns all known tags in ascending order.
func (t *EnumTable) Tags() []uint32 {
	if t == nil {
		return nil
	}
	tags := make([]uint32, 0, len(t.names))
	for tag := range t.names {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

func (v EnumValue) String() string {
	return v.Name
}

// FlagTable names the bits of a bitfield register.
type FlagTable struct {
	Name  string
	names map[uint]string
}

func NewFlagTable(name string, names map[uint]string) *FlagTable {
	return &FlagTable{
		Name:  name,
		names: names,
	}
}

// Active returns the names of the set bits, lowest bit first. Unnamed bits
// are reported as bit<n>.
func (t *FlagTable) Active(bits uint32) []string {
	var active []string
	for i := uint(0); i < 32; i++ {
		if bits&(1<<i) == 0 {
			continue
		}
		name := ""
		if t != nil {
			name = t.names[i]
		}
		if name == "" {
			name = fmt.Sprintf("bit%d", i)
		}
		active = append(active, name)
	}
	return active
}

func (t *FlagTable) Format(bits uint32) string {
	return strings.Join(t.Active(bits), ",")
}
