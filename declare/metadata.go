package declare

import (
	"slices"

	"github.com/swsel/structure"
)

// metaElement is implemented by declarations that can be within a Metadata
// declaration.
type metaElement interface {
	metaElement()
}

// metadata represents the declaration of a structure.Metadata.
type metadata struct {
	toggles   []bool
	values    []float32
	fields    [][]string
	vectors   [][3]float32
	dropdowns []uint8
	colors    []structure.Color
	gradients []structure.Gradient
	settings  structure.TypeSettings
}

func (metadata) element() {}

// Metadata declares the metadata of a Block. Elements are evaluated in order;
// list elements append to their list, and each Field declaration adds a
// field. A block cannot have both fields and vectors.
func Metadata(elements ...metaElement) metadata {
	var m metadata
	for _, e := range elements {
		switch e := e.(type) {
		case toggles:
			m.toggles = append(m.toggles, e...)
		case values:
			m.values = append(m.values, e...)
		case field:
			m.fields = append(m.fields, []string(e))
		case vectors:
			m.vectors = append(m.vectors, e...)
		case dropdowns:
			m.dropdowns = append(m.dropdowns, e...)
		case colors:
			m.colors = append(m.colors, e...)
		case gradient:
			m.gradients = append(m.gradients, structure.Gradient(e))
		case settings:
			m.settings = e.TypeSettings
		}
	}
	return m
}

type toggles []bool

func (toggles) metaElement() {}

// Toggles declares boolean settings.
func Toggles(v ...bool) toggles {
	return toggles(v)
}

type values []float32

func (values) metaElement() {}

// Values declares numeric settings.
func Values(v ...float32) values {
	return values(v)
}

type field []string

func (field) metaElement() {}

// Field declares a field: an ordered list of references to blocks by their
// refs.
func Field(refs ...string) field {
	return field(refs)
}

type vectors [][3]float32

func (vectors) metaElement() {}

// Vectors declares 3-component vectors.
func Vectors(v ...[3]float32) vectors {
	return vectors(v)
}

type dropdowns []uint8

func (dropdowns) metaElement() {}

// Dropdowns declares selected options.
func Dropdowns(v ...uint8) dropdowns {
	return dropdowns(v)
}

type colors []structure.Color

func (colors) metaElement() {}

// Colors declares color settings.
func Colors(v ...structure.Color) colors {
	return colors(v)
}

type gradient structure.Gradient

func (gradient) metaElement() {}

// Gradient declares a gradient from color keys and alpha keys. colorKeys and
// alphaKeys map times to values.
func Gradient(colorKeys map[float32]structure.Color, alphaKeys map[float32]float32) gradient {
	var g structure.Gradient
	for _, t := range sortedKeys(colorKeys) {
		g.ColorTimes = append(g.ColorTimes, t)
		g.ColorKeys = append(g.ColorKeys, colorKeys[t])
	}
	for _, t := range sortedKeys(alphaKeys) {
		g.AlphaTimes = append(g.AlphaTimes, t)
		g.AlphaKeys = append(g.AlphaKeys, alphaKeys[t])
	}
	return gradient(g)
}

func sortedKeys[V any](m map[float32]V) []float32 {
	keys := make([]float32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type settings struct {
	structure.TypeSettings
}

func (settings) metaElement() {}

// Settings declares type settings.
func Settings(s structure.TypeSettings) settings {
	return settings{s}
}

// Math declares the settings of a math block.
func Math(function string, incomingOrder []uint8, slots []uint8) settings {
	return settings{&structure.MathBlock{
		Function:      function,
		IncomingOrder: incomingOrder,
		Slots:         slots,
	}}
}
