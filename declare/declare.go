// The declare package is used to generate structure buildings in a declarative
// style.
//
// A Building declaration is a list of Root declarations, each containing Block
// declarations. Blocks may be given a Ref, a name by which other blocks refer
// to them through Connect, Load, and Field declarations. References are
// resolved after every block has been created, so a block may refer to blocks
// declared later, or in other roots.
//
// The easiest way to use this package is to import it directly into the
// current package:
//
//	import . "github.com/swsel/structure/declare"
//
// This allows the package's identifiers to be used directly without a
// qualifier.
package declare

import (
	"fmt"

	"github.com/swsel/structure"
	"github.com/swsel/structure/definitions"
	"github.com/swsel/structure/errors"
)

// Building declares a structure.Building. It is a list of Root declarations.
type Building []root

// Declare evaluates the Building declaration with the default definition
// table.
func (d Building) Declare() (*structure.Building, error) {
	return d.DeclareWith(definitions.Default())
}

// DeclareWith evaluates the Building declaration, generating roots and blocks,
// and resolving references. Block type names are looked up in table.
//
// Returns an error listing every block type and reference that could not be
// resolved.
func (d Building) DeclareWith(table *definitions.Table) (*structure.Building, error) {
	var errs errors.Errors
	b := &structure.Building{Roots: make([]*structure.Root, 0, len(d))}
	refs := map[string]*structure.Block{}
	var pending []pendingBlock

	for _, droot := range d {
		root := &structure.Root{
			Position: droot.position,
			Rotation: droot.rotation,
			Blocks:   make([]*structure.Block, 0, len(droot.blocks)),
		}
		for _, dblock := range droot.blocks {
			block, err := dblock.build(table)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if dblock.ref != "" {
				if _, ok := refs[dblock.ref]; ok {
					errs = append(errs, fmt.Errorf("duplicate ref %q", dblock.ref))
				}
				refs[dblock.ref] = block
			}
			root.AddBlock(block)
			pending = append(pending, pendingBlock{block: block, decl: dblock})
		}
		b.AddRoot(root)
	}

	for _, p := range pending {
		errs = errs.Append(p.resolve(refs))
	}
	if err := errs.Return(); err != nil {
		return nil, err
	}
	return b, nil
}

// rootElement is implemented by declarations that can be within a Root
// declaration.
type rootElement interface {
	rootElement()
}

// root represents the declaration of a structure.Root.
type root struct {
	position [3]float32
	rotation [3]float32
	blocks   []block
}

// Root declares a structure.Root. Elements may be Position and Rotation
// declarations, and Block declarations, which become the blocks of the root.
func Root(elements ...rootElement) root {
	var r root
	for _, e := range elements {
		switch e := e.(type) {
		case position:
			r.position = e
		case rotation:
			r.rotation = e
		case block:
			r.blocks = append(r.blocks, e)
		}
	}
	return r
}

// element is implemented by declarations that can be within a Block
// declaration.
type element interface {
	element()
}

// block represents the declaration of a structure.Block.
type block struct {
	typeName string
	id       uint8

	ref      string
	position [3]float32
	rotation [3]float32
	name     string
	enable   float32
	current  float32
	color    *structure.Color
	connect  []string
	load     string
	metadata *metadata
}

func (block) rootElement() {}

// Block declares a structure.Block of the named type, which is resolved by the
// definition table. Elements may be Ref, Position, Rotation, Name, Enable,
// Current, Color, Connect, Load, and Metadata declarations.
func Block(typeName string, elements ...element) block {
	b := newBlock(elements)
	b.typeName = typeName
	return b
}

// BlockID declares a structure.Block with a raw type ID.
func BlockID(id uint8, elements ...element) block {
	b := newBlock(elements)
	b.id = id
	return b
}

func newBlock(elements []element) block {
	var b block
	for _, e := range elements {
		switch e := e.(type) {
		case Ref:
			b.ref = string(e)
		case position:
			b.position = e
		case rotation:
			b.rotation = e
		case name:
			b.name = string(e)
		case enable:
			b.enable = float32(e)
		case current:
			b.current = float32(e)
		case color:
			c := structure.Color(e)
			b.color = &c
		case connect:
			b.connect = append(b.connect, e...)
		case load:
			b.load = string(e)
		case metadata:
			md := e
			b.metadata = &md
		}
	}
	return b
}

func (d block) label() string {
	if d.ref != "" {
		return fmt.Sprintf("block %q", d.ref)
	}
	if d.typeName != "" {
		return fmt.Sprintf("block of type %s", d.typeName)
	}
	return fmt.Sprintf("block of type %d", d.id)
}

// build creates the block, without resolving references.
func (d block) build(table *definitions.Table) (*structure.Block, error) {
	id := d.id
	if d.typeName != "" {
		var err error
		if id, err = table.LookupID(d.typeName); err != nil {
			return nil, fmt.Errorf("%s: %w", d.label(), err)
		}
	}
	b := &structure.Block{
		Position:           d.position,
		Rotation:           d.rotation,
		ID:                 id,
		Name:               d.name,
		EnableState:        d.enable,
		EnableStateCurrent: d.current,
	}
	if d.color != nil {
		c := *d.color
		b.Color = &c
	}
	if d.metadata != nil {
		md, err := structure.NewMetadata(nil, d.metadata.vectors)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.label(), err)
		}
		if len(d.metadata.fields) > 0 && len(d.metadata.vectors) > 0 {
			return nil, fmt.Errorf("%s: %w", d.label(), structure.ErrFieldsWithVectors)
		}
		md.Toggles = d.metadata.toggles
		md.Values = d.metadata.values
		md.Dropdowns = d.metadata.dropdowns
		md.Colors = d.metadata.colors
		md.Gradients = d.metadata.gradients
		if d.metadata.settings != nil {
			md.Settings = d.metadata.settings.Copy()
		}
		b.Metadata = md
	}
	return b, nil
}

type pendingBlock struct {
	block *structure.Block
	decl  block
}

func (p pendingBlock) resolve(refs map[string]*structure.Block) error {
	var errs errors.Errors
	lookup := func(what, ref string) structure.Ref {
		target, ok := refs[ref]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %s: unknown ref %q", p.decl.label(), what, ref))
		}
		return structure.RefTo(target)
	}
	for _, ref := range p.decl.connect {
		if r := lookup("connect", ref); !r.Absent() {
			p.block.Connections = append(p.block.Connections, r)
		}
	}
	if p.decl.load != "" {
		p.block.Load = lookup("load", p.decl.load)
	}
	if md := p.decl.metadata; md != nil && len(md.fields) > 0 {
		fields := make([][]structure.Ref, len(md.fields))
		for i, field := range md.fields {
			for _, ref := range field {
				if r := lookup(fmt.Sprintf("field %d", i), ref); !r.Absent() {
					fields[i] = append(fields[i], r)
				}
			}
		}
		if err := p.block.Metadata.SetFields(fields); err != nil {
			errs = append(errs, err)
		}
	}
	return errs.Return()
}

// Ref declares a name that can be used to refer to the Block under which it
// was declared.
type Ref string

func (Ref) element() {}

type position [3]float32

func (position) element()     {}
func (position) rootElement() {}

// Position declares the position of a Block or Root.
func Position(x, y, z float32) position {
	return position{x, y, z}
}

type rotation [3]float32

func (rotation) element()     {}
func (rotation) rootElement() {}

// Rotation declares the rotation of a Block or Root, in degrees.
func Rotation(x, y, z float32) rotation {
	return rotation{x, y, z}
}

type name string

func (name) element() {}

// Name declares the display name of a Block.
func Name(s string) name {
	return name(s)
}

type enable float32

func (enable) element() {}

// Enable declares the target enable state of a Block.
func Enable(v float32) enable {
	return enable(v)
}

type current float32

func (current) element() {}

// Current declares the live enable state of a Block.
func Current(v float32) current {
	return current(v)
}

type color structure.Color

func (color) element() {}

// Color declares the opaque color of a Block.
func Color(r, g, b uint8) color {
	return color(structure.RGB(r, g, b))
}

type connect []string

func (connect) element() {}

// Connect declares connections from a Block to the blocks with the given
// refs.
func Connect(refs ...string) connect {
	return connect(refs)
}

type load string

func (load) element() {}

// Load declares the block that a Block rests on.
func Load(ref string) load {
	return load(ref)
}
