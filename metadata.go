package structure

import "errors"

// ErrFieldsWithVectors indicates an attempt to give Metadata both fields and
// vectors. The format cannot represent both at once.
var ErrFieldsWithVectors = errors.New("metadata cannot have both fields and vectors")

// Metadata is the extra configuration of a block.
type Metadata struct {
	// Toggles is a list of boolean settings.
	Toggles []bool
	// Values is a list of numeric settings.
	Values []float32
	// Dropdowns is a list of selected options.
	Dropdowns []uint8
	// Colors is a list of color settings.
	Colors []Color
	// Gradients is a list of gradient settings.
	Gradients []Gradient

	// Settings holds configuration specific to the type of the block. Nil
	// indicates that there are no such settings.
	Settings TypeSettings

	// Only one of fields and vectors may be non-empty.
	fields  [][]Ref
	vectors [][3]float32
}

// NewMetadata returns metadata with the given fields and vectors. Returns
// ErrFieldsWithVectors if both are non-empty.
func NewMetadata(fields [][]Ref, vectors [][3]float32) (*Metadata, error) {
	if len(fields) > 0 && len(vectors) > 0 {
		return nil, ErrFieldsWithVectors
	}
	return &Metadata{fields: fields, vectors: vectors}, nil
}

// Fields returns a list of fields, each being an ordered list of references
// to blocks, such as the inputs of a logic block.
func (m *Metadata) Fields() [][]Ref {
	return m.fields
}

// SetFields sets the fields of the metadata. Returns ErrFieldsWithVectors if
// fields is not empty and the metadata has vectors.
func (m *Metadata) SetFields(fields [][]Ref) error {
	if len(fields) > 0 && len(m.vectors) > 0 {
		return ErrFieldsWithVectors
	}
	m.fields = fields
	return nil
}

// Vectors returns a list of 3-component vectors.
func (m *Metadata) Vectors() [][3]float32 {
	return m.vectors
}

// SetVectors sets the vectors of the metadata. Returns ErrFieldsWithVectors
// if vectors is not empty and the metadata has fields.
func (m *Metadata) SetVectors(vectors [][3]float32) error {
	if len(vectors) > 0 && len(m.fields) > 0 {
		return ErrFieldsWithVectors
	}
	m.vectors = vectors
	return nil
}

// Copy returns a deep copy of the metadata. References within fields are
// copied as-is. Returns nil if m is nil.
func (m *Metadata) Copy() *Metadata {
	if m == nil {
		return nil
	}
	c := Metadata{
		Toggles:   append([]bool(nil), m.Toggles...),
		Values:    append([]float32(nil), m.Values...),
		Dropdowns: append([]uint8(nil), m.Dropdowns...),
		Colors:    append([]Color(nil), m.Colors...),
		vectors:   append([][3]float32(nil), m.vectors...),
	}
	if m.fields != nil {
		c.fields = make([][]Ref, len(m.fields))
		for i, field := range m.fields {
			c.fields[i] = append([]Ref(nil), field...)
		}
	}
	if m.Gradients != nil {
		c.Gradients = make([]Gradient, len(m.Gradients))
		for i, g := range m.Gradients {
			c.Gradients[i] = g.Copy()
		}
	}
	if m.Settings != nil {
		c.Settings = m.Settings.Copy()
	}
	return &c
}

// Gradient is a pair of keyed curves: one of colors and one of alpha values.
// The keys and times of each curve are parallel lists.
type Gradient struct {
	ColorKeys  []Color
	ColorTimes []float32
	AlphaKeys  []float32
	AlphaTimes []float32
}

// Copy returns a deep copy of the gradient.
func (g Gradient) Copy() Gradient {
	return Gradient{
		ColorKeys:  append([]Color(nil), g.ColorKeys...),
		ColorTimes: append([]float32(nil), g.ColorTimes...),
		AlphaKeys:  append([]float32(nil), g.AlphaKeys...),
		AlphaTimes: append([]float32(nil), g.AlphaTimes...),
	}
}
