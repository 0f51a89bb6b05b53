package regmap

import "fmt"

type RegisterType uint8

const (
	InputRegister RegisterType = iota
	HoldingRegister
	Coil
	DiscreteInput
)

func (t RegisterType) String() string {
	switch t {
	case InputRegister:
		return "input"
	case HoldingRegister:
		return "holding"
	case Coil:
		return "coil"
	case DiscreteInput:
		return "discrete"
	default:
		return fmt.Sprintf("%s(%d)", "unknown", t)
	}
}

// WordOrder is the order of the 16-bit words of a 32-bit value on the wire.
type WordOrder uint8

const (
	HighWordFirst WordOrder = iota
	LowWordFirst
)

type Rule uint8

const (
	RuleUInt16 Rule = iota
	RuleInt16
	RuleUInt32
	RuleInt32
	RuleFloat32
	RuleString
	RuleEnum16
	RuleEnum32
	RuleBitfield16
	RuleBitfield32
	RuleAcc32
	RuleScaleFactor
	RuleBool
)

// Words returns the natural word count of fixed size rules. Strings return 0.
func (r Rule) Words() uint16 {
	switch r {
	case RuleUInt32, RuleInt32, RuleFloat32, RuleEnum32, RuleBitfield32, RuleAcc32:
		return 2
	case RuleString:
		return 0
	default:
		return 1
	}
}

func (r Rule) signed() bool {
	return r == RuleInt16 || r == RuleInt32 || r == RuleScaleFactor
}

func (r Rule) String() string {
	switch r {
	case RuleUInt16:
		return "uint16"
	case RuleInt16:
		return "int16"
	case RuleUInt32:
		return "uint32"
	case RuleInt32:
		return "int32"
	case RuleFloat32:
		return "float32"
	case RuleString:
		return "string"
	case RuleEnum16:
		return "enum16"
	case RuleEnum32:
		return "enum32"
	case RuleBitfield16:
		return "bitfield16"
	case RuleBitfield32:
		return "bitfield32"
	case RuleAcc32:
		return "acc32"
	case RuleScaleFactor:
		return "sunssf"
	case RuleBool:
		return "bool"
	default:
		return fmt.Sprintf("%s(%d)", "unknown", r)
	}
}

// Scale is either a fixed power-of-ten exponent or a reference to a
// scale factor register decoded from the same block.
type Scale struct {
	Exponent int
	Ref      string
}

func Fixed(exponent int) Scale {
	return Scale{Exponent: exponent}
}

func ScaledBy(ref string) Scale {
	return Scale{Ref: ref}
}

func (s Scale) IsZero() bool {
	return s.Exponent == 0 && s.Ref == ""
}

// RegisterSpec describes one logical device property. Address is absolute
// for stand-alone specs and an offset for specs that belong to a Block.
type RegisterSpec struct {
	Name     string
	Type     RegisterType
	Address  uint16
	Words    uint16
	Rule     Rule
	Order    WordOrder
	Scale    Scale
	Unit     string
	Enum     *EnumTable
	Flags    *FlagTable
	Writable bool
}

func (s RegisterSpec) String() string {
	return fmt.Sprintf("%s[%s@%d/%d %s]", s.Name, s.Type, s.Address, s.Words, s.Rule)
}

// Decimals is the number of decimals needed to represent a value of this spec.
func (s RegisterSpec) Decimals() uint {
	switch {
	case s.Rule == RuleFloat32:
		return 2
	case s.Scale.Ref != "":
		return 2
	case s.Scale.Exponent < 0:
		return uint(-s.Scale.Exponent)
	default:
		return 0
	}
}

// Spec builds a spec with the natural word count of its rule.
func Spec(name string, regType RegisterType, address uint16, rule Rule) RegisterSpec {
	return RegisterSpec{
		Name:    name,
		Type:    regType,
		Address: address,
		Words:   rule.Words(),
		Rule:    rule,
	}
}

func StringSpec(name string, regType RegisterType, address uint16, words uint16) RegisterSpec {
	return RegisterSpec{
		Name:    name,
		Type:    regType,
		Address: address,
		Words:   words,
		Rule:    RuleString,
	}
}

func (s RegisterSpec) WithScale(scale Scale) RegisterSpec {
	s.Scale = scale
	return s
}

func (s RegisterSpec) WithUnit(unit string) RegisterSpec {
	s.Unit = unit
	return s
}

func (s RegisterSpec) WithOrder(order WordOrder) RegisterSpec {
	s.Order = order
	return s
}

func (s RegisterSpec) WithEnum(table *EnumTable) RegisterSpec {
	s.Enum = table
	return s
}

func (s RegisterSpec) WithFlags(table *FlagTable) RegisterSpec {
	s.Flags = table
	return s
}

func (s RegisterSpec) AsWritable() RegisterSpec {
	s.Writable = true
	return s
}
