package regmap

import (
	"fmt"
)

// Block is a contiguous register range read in one request. Member specs
// carry their offset inside the block in Address.
type Block struct {
	Name     string
	Type     RegisterType
	Address  uint16
	Length   uint16
	Specs    []RegisterSpec
	InitOnly bool
}

type Reading struct {
	Spec  RegisterSpec
	Value Value
}

// SingleBlock wraps a stand-alone spec (absolute address) as a one-spec block.
func SingleBlock(spec RegisterSpec) Block {
	member := spec
	member.Address = 0
	return Block{
		Name:    spec.Name,
		Type:    spec.Type,
		Address: spec.Address,
		Length:  spec.Words,
		Specs:   []RegisterSpec{member},
	}
}

// Singles wraps every spec as its own block.
func Singles(specs ...RegisterSpec) []Block {
	blocks := make([]Block, 0, len(specs))
	for _, spec := range specs {
		blocks = append(blocks, SingleBlock(spec))
	}
	return blocks
}

// At returns a copy of the block relocated to address.
func (b Block) At(address uint16) Block {
	b.Address = address
	return b
}

func (b Block) Spec(name string) (RegisterSpec, bool) {
	for _, s := range b.Specs {
		if s.Name == name {
			return s, true
		}
	}
	return RegisterSpec{}, false
}

// AbsoluteAddress of a member spec.
func (b Block) AbsoluteAddress(spec RegisterSpec) uint16 {
	return b.Address + spec.Address
}

// Slice returns the words of spec out of a full block reply.
func (b Block) Slice(words []uint16, spec RegisterSpec) []uint16 {
	expectWords(words, int(b.Length))
	end := int(spec.Address) + int(spec.Words)
	if end > len(words) {
		panic(fmt.Sprintf("regmap: spec %s exceeds block %s", spec, b.Name))
	}
	return words[spec.Address:end]
}

// Decode decodes every member of the block. Scale factor registers are
// decoded first and applied to the specs that reference them; they are not
// reported themselves.
func (b Block) Decode(words []uint16) []Reading {
	expectWords(words, int(b.Length))

	factors := make(map[string]int)
	for _, spec := range b.Specs {
		if spec.Rule == RuleScaleFactor {
			factors[spec.Name] = int(DecodeInt16(b.Slice(words, spec)))
		}
	}

	readings := make([]Reading, 0, len(b.Specs))
	for _, spec := range b.Specs {
		if spec.Rule == RuleScaleFactor {
			continue
		}
		exponent := spec.Scale.Exponent
		if spec.Scale.Ref != "" {
			exponent = factors[spec.Scale.Ref]
		}
		readings = append(readings, Reading{
			Spec:  spec,
			Value: DecodeScaled(spec, b.Slice(words, spec), exponent),
		})
	}
	return readings
}

// Validate checks the table: members inside the block, declared sizes
// matching the rule and scale references resolvable in this block.
func (b Block) Validate() error {
	if b.Length == 0 {
		return fmt.Errorf("block %s: empty", b.Name)
	}
	if int(b.Address)+int(b.Length) > 0x10000 {
		return fmt.Errorf("block %s: address range overflow", b.Name)
	}
	names := make(map[string]bool)
	for _, spec := range b.Specs {
		if names[spec.Name] {
			return fmt.Errorf("block %s: duplicate spec %s", b.Name, spec.Name)
		}
		names[spec.Name] = true
		if spec.Words == 0 {
			return fmt.Errorf("block %s: spec %s has no words", b.Name, spec.Name)
		}
		if n := spec.Rule.Words(); n != 0 && n != spec.Words {
			return fmt.Errorf("block %s: spec %s declares %d words for %s", b.Name, spec.Name, spec.Words, spec.Rule)
		}
		if int(spec.Address)+int(spec.Words) > int(b.Length) {
			return fmt.Errorf("block %s: spec %s exceeds block", b.Name, spec.Name)
		}
		if spec.Type != b.Type {
			return fmt.Errorf("block %s: spec %s has register type %s", b.Name, spec.Name, spec.Type)
		}
	}
	for _, spec := range b.Specs {
		if spec.Scale.Ref == "" {
			continue
		}
		ref, ok := b.Spec(spec.Scale.Ref)
		if !ok || ref.Rule != RuleScaleFactor {
			return fmt.Errorf("block %s: spec %s references unknown scale factor %s", b.Name, spec.Name, spec.Scale.Ref)
		}
	}
	return nil
}

// Blocks is a device register table.
type Blocks []Block

func (bs Blocks) Validate() error {
	names := make(map[string]bool)
	for _, b := range bs {
		if names[b.Name] {
			return fmt.Errorf("duplicate block %s", b.Name)
		}
		names[b.Name] = true
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// With returns the table extended with more blocks.
func (bs Blocks) With(more ...Block) Blocks {
	return append(bs, more...)
}

func (bs Blocks) Block(name string) (Block, bool) {
	for _, b := range bs {
		if b.Name == name {
			return b, true
		}
	}
	return Block{}, false
}

// Find returns the block that holds the property named name.
func (bs Blocks) Find(name string) (Block, RegisterSpec, bool) {
	for _, b := range bs {
		if s, ok := b.Spec(name); ok {
			return b, s, true
		}
	}
	return Block{}, RegisterSpec{}, false
}

// Specs lists every reported property (scale factors excluded).
func (bs Blocks) Specs() []RegisterSpec {
	var specs []RegisterSpec
	for _, b := range bs {
		for _, s := range b.Specs {
			if s.Rule != RuleScaleFactor {
				specs = append(specs, s)
			}
		}
	}
	return specs
}
