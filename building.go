// The structure package models buildings: hierarchical assemblies of placed
// blocks that refer to each other through wiring, support, and slot
// assignments.
//
// A Building contains a list of Roots, which are rigid sub-assemblies with
// their own transform. Each Root contains a list of Blocks. A Block belongs to
// exactly one Root, but may refer to any other Block in the building, in any
// Root, including itself. These references are weak: they do not keep their
// target alive, and a reference whose target is gone, or is not part of the
// building being encoded, is treated as absent.
//
// Buildings can be decoded from and encoded to the binary structure format
// with the "swse" sub-package, or created in a declarative style with the
// "declare" sub-package.
package structure

////////////////////////////////////////////////////////////////

// Building is an ordered list of roots. The order of the roots is the order
// in which they are indexed and encoded.
type Building struct {
	Roots []*Root
}

// AddRoot appends root to the building and returns it.
func (b *Building) AddRoot(root *Root) *Root {
	b.Roots = append(b.Roots, root)
	return root
}

// Count returns the number of roots in the building, and the number of
// blocks over all roots.
func (b *Building) Count() (roots, blocks int) {
	for _, root := range b.Roots {
		roots++
		blocks += len(root.Blocks)
	}
	return roots, blocks
}

// Root is a rigid sub-assembly of a building.
type Root struct {
	// Position is the global position of the root.
	Position [3]float32
	// Rotation is the rotation of the root, in degrees.
	Rotation [3]float32
	// Blocks is the ordered list of blocks owned by the root.
	Blocks []*Block
}

// AddBlock appends block to the root and returns it.
func (r *Root) AddBlock(block *Block) *Block {
	r.Blocks = append(r.Blocks, block)
	return block
}

// Block is a single placed unit.
type Block struct {
	// Position of the block, in world space.
	Position [3]float32
	// Rotation of the block, in degrees.
	Rotation [3]float32

	// ID is the type of the block, as listed in the block definition table.
	ID uint8

	// Name is an optional display name. An empty string is no name.
	Name string

	// EnableState is the persisted target state, within [0, 1].
	EnableState float32
	// EnableStateCurrent is the live state. It is within [0, 1], except for
	// blocks that support overdrive, where it may be up to 255.
	EnableStateCurrent float32

	// Color is the optional color of the block.
	Color *Color

	// Connections are references to blocks this block is wired to.
	Connections []Ref

	// Load refers to the block this block rests on.
	Load Ref

	// Metadata holds extra configuration, and is nil for blocks without it.
	Metadata *Metadata
}

// Overdrive returns whether the live enable state is beyond the standard
// [0, 1] range.
func (b *Block) Overdrive() bool {
	return b.EnableStateCurrent > 1
}

// Connect appends references to each target to the connections of the block.
func (b *Block) Connect(targets ...*Block) {
	for _, target := range targets {
		b.Connections = append(b.Connections, RefTo(target))
	}
}

// Copy returns a copy of the block. References are copied as-is, and so
// refer to the same targets as the original.
func (b *Block) Copy() *Block {
	c := *b
	if b.Color != nil {
		color := *b.Color
		c.Color = &color
	}
	if b.Connections != nil {
		c.Connections = make([]Ref, len(b.Connections))
		copy(c.Connections, b.Connections)
	}
	c.Metadata = b.Metadata.Copy()
	return &c
}

// Color is a color with 8-bit channels.
type Color struct {
	R, G, B, A uint8
}

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 0xFF}
}

// RGBA returns a color with an alpha channel.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// Bytes returns the channels in RGBA order.
func (c Color) Bytes() [4]uint8 {
	return [4]uint8{c.R, c.G, c.B, c.A}
}

// ColorFromBytes returns the color of channels in RGBA order.
func ColorFromBytes(b [4]uint8) Color {
	return Color{R: b[0], G: b[1], B: b[2], A: b[3]}
}
