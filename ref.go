package structure

import "weak"

// Ref is a weak reference to a Block. The zero value is an absent reference.
//
// A Ref does not keep its target alive. Once the target is no longer owned by
// anything, the reference becomes absent.
type Ref struct {
	p weak.Pointer[Block]
}

// RefTo returns a reference to block. A nil block returns an absent
// reference.
func RefTo(block *Block) Ref {
	if block == nil {
		return Ref{}
	}
	return Ref{p: weak.Make(block)}
}

// Block returns the target of the reference, or nil if the reference is
// absent.
func (r Ref) Block() *Block {
	return r.p.Value()
}

// Absent returns whether the reference has no target.
func (r Ref) Absent() bool {
	return r.p.Value() == nil
}

// Refers returns whether the reference targets block.
func (r Ref) Refers(block *Block) bool {
	return block != nil && r.p.Value() == block
}

// Remap maps original blocks to their copies. It is used to carry references
// over to a copied set of blocks.
type Remap map[*Block]*Block

// Ref returns the reference in the copied set that corresponds to r. The
// result is absent if the target of r is not in the map.
func (m Remap) Ref(r Ref) Ref {
	target := r.Block()
	if target == nil {
		return Ref{}
	}
	return RefTo(m[target])
}

// Refs maps each reference in refs, keeping only those whose target is in
// the map.
func (m Remap) Refs(refs []Ref) []Ref {
	if refs == nil {
		return nil
	}
	out := make([]Ref, 0, len(refs))
	for _, r := range refs {
		if c := m.Ref(r); !c.Absent() {
			out = append(out, c)
		}
	}
	return out
}

// apply rewrites the references of the copy of each block in the map.
func (m Remap) apply() {
	for orig, c := range m {
		c.Connections = m.Refs(orig.Connections)
		c.Load = m.Ref(orig.Load)
		if orig.Metadata == nil || c.Metadata == nil || orig.Metadata.fields == nil {
			continue
		}
		fields := make([][]Ref, len(orig.Metadata.fields))
		for i, field := range orig.Metadata.fields {
			fields[i] = m.Refs(field)
		}
		c.Metadata.fields = fields
	}
}

// Clone returns a deep copy of the root. References between blocks within the
// root are carried over to the copied blocks. References to blocks outside of
// the root are dropped.
func (r *Root) Clone() *Root {
	c := &Root{
		Position: r.Position,
		Rotation: r.Rotation,
		Blocks:   make([]*Block, len(r.Blocks)),
	}
	m := make(Remap, len(r.Blocks))
	for i, block := range r.Blocks {
		c.Blocks[i] = block.Copy()
		m[block] = c.Blocks[i]
	}
	m.apply()
	return c
}

// Copy returns a deep copy of the building. References between blocks of the
// building are carried over to the copied blocks. References to blocks
// outside of the building are dropped.
func (b *Building) Copy() *Building {
	c := &Building{Roots: make([]*Root, len(b.Roots))}
	m := Remap{}
	for i, root := range b.Roots {
		cr := &Root{
			Position: root.Position,
			Rotation: root.Rotation,
			Blocks:   make([]*Block, len(root.Blocks)),
		}
		for j, block := range root.Blocks {
			cr.Blocks[j] = block.Copy()
			m[block] = cr.Blocks[j]
		}
		c.Roots[i] = cr
	}
	m.apply()
	return c
}
