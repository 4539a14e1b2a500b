package swse

import (
	"io"

	"github.com/swsel/structure"
	"github.com/swsel/structure/wire"
)

// formatModel models the records of a stream. References between records are
// held as raw indices.
type formatModel struct {
	Version uint8

	Roots []rootRecord

	// Dictionaries, present only in table layouts.
	Rotations [][3]uint16
	Colors    []uint16

	Blocks []blockRecord
}

type rootRecord struct {
	Position [3]float32
	Rotation [3]float32
}

func (r *rootRecord) readFrom(fr *wire.Reader) (failed bool) {
	if wire.ReadArray(fr, r.Position[:]) {
		return true
	}
	return wire.ReadArray(fr, r.Rotation[:])
}

func (r *rootRecord) writeTo(fw *wire.Writer) (failed bool) {
	if wire.WriteArray(fw, r.Position[:]) {
		return true
	}
	return wire.WriteArray(fw, r.Rotation[:])
}

type blockRecord struct {
	Position [3]float32

	// Rotation holds quantized angles in baseline layouts. RotationIndex
	// refers to the rotation dictionary in table layouts.
	Rotation      [3]uint16
	RotationIndex uint16

	ID      uint8
	Root    uint8
	Flags   uint8
	Current uint8
	Name    string
	Target  uint8
	Load    uint16

	Connections []uint16
	Legacy      []int32
	Metadata    *metadataRecord

	// Color holds RGBA bytes in baseline layouts. ColorIndex refers to the
	// color dictionary in table layouts.
	Color      [4]uint8
	ColorIndex uint16
}

func (b *blockRecord) has(flag uint8) bool {
	return b.Flags&flag != 0
}

func (b *blockRecord) readFrom(fr *wire.Reader, lay layout, settings *Settings) (failed bool) {
	if wire.ReadArray(fr, b.Position[:]) {
		return true
	}
	if lay.Tables {
		if wire.ReadNum(fr, &b.RotationIndex) {
			return true
		}
	} else if wire.ReadArray(fr, b.Rotation[:]) {
		return true
	}
	if wire.ReadNum(fr, &b.ID) ||
		wire.ReadNum(fr, &b.Root) ||
		wire.ReadNum(fr, &b.Flags) ||
		wire.ReadNum(fr, &b.Current) {
		return true
	}
	if b.has(flagName) && wire.ReadString7(fr, &b.Name) {
		return true
	}
	if wire.ReadNum(fr, &b.Target) {
		return true
	}
	if !b.has(flagNoLoad) && wire.ReadNum(fr, &b.Load) {
		return true
	}
	if b.has(flagConnections) && wire.ReadVec[uint16](fr, &b.Connections) {
		return true
	}
	if !b.has(flagNoLegacy) && wire.ReadVec[uint16](fr, &b.Legacy) {
		return true
	}
	if !b.has(flagNoMetadata) {
		b.Metadata = &metadataRecord{}
		if b.Metadata.readFrom(fr, settings.Codec(b.ID)) {
			return true
		}
	}
	if !b.has(flagNoColor) {
		if lay.Tables {
			return wire.ReadNum(fr, &b.ColorIndex)
		}
		return wire.ReadArray(fr, b.Color[:])
	}
	return false
}

func (b *blockRecord) writeTo(fw *wire.Writer, lay layout, settings *Settings) (failed bool) {
	if wire.WriteArray(fw, b.Position[:]) {
		return true
	}
	if lay.Tables {
		if wire.WriteNum(fw, b.RotationIndex) {
			return true
		}
	} else if wire.WriteArray(fw, b.Rotation[:]) {
		return true
	}
	if wire.WriteNum(fw, b.ID) ||
		wire.WriteNum(fw, b.Root) ||
		wire.WriteNum(fw, b.Flags) ||
		wire.WriteNum(fw, b.Current) {
		return true
	}
	if b.has(flagName) && wire.WriteString7(fw, b.Name) {
		return true
	}
	if wire.WriteNum(fw, b.Target) {
		return true
	}
	if !b.has(flagNoLoad) && wire.WriteNum(fw, b.Load) {
		return true
	}
	if b.has(flagConnections) && wire.WriteVec[uint16](fw, b.Connections) {
		return true
	}
	if !b.has(flagNoLegacy) && wire.WriteVec[uint16](fw, b.Legacy) {
		return true
	}
	if !b.has(flagNoMetadata) {
		m := b.Metadata
		if m == nil {
			m = &metadataRecord{}
		}
		if m.writeTo(fw, settings.Codec(b.ID)) {
			return true
		}
	}
	if !b.has(flagNoColor) {
		if lay.Tables {
			return wire.WriteNum(fw, b.ColorIndex)
		}
		return wire.WriteArray(fw, b.Color[:])
	}
	return false
}

type metadataRecord struct {
	Toggles   []uint8
	Values    []float32
	Control   uint16
	Vectors   [][3]float32
	Fields    [][]int32
	Dropdowns []int32
	Colors    [][4]uint8
	Gradients []gradientRecord
	Settings  structure.TypeSettings
}

func (m *metadataRecord) readFrom(fr *wire.Reader, codec SettingsCodec) (failed bool) {
	if wire.ReadVec[uint16](fr, &m.Toggles) ||
		wire.ReadVec[uint16](fr, &m.Values) ||
		wire.ReadNum(fr, &m.Control) {
		return true
	}
	var n int
	if m.Control >= vectorsMarker {
		if wire.ReadLength[uint16](fr, 12, &n) {
			return true
		}
		if n > 0 {
			m.Vectors = make([][3]float32, n)
			for i := range m.Vectors {
				if wire.ReadArray(fr, m.Vectors[i][:]) {
					return true
				}
			}
		}
	}
	if fields := m.Control % vectorsMarker; fields > 0 {
		m.Fields = make([][]int32, fields)
		for i := range m.Fields {
			if wire.ReadVec[uint16](fr, &m.Fields[i]) {
				return true
			}
		}
	}
	if wire.ReadVec[uint16](fr, &m.Dropdowns) {
		return true
	}
	if wire.ReadLength[uint16](fr, 4, &n) {
		return true
	}
	if n > 0 {
		m.Colors = make([][4]uint8, n)
		for i := range m.Colors {
			if wire.ReadArray(fr, m.Colors[i][:]) {
				return true
			}
		}
	}
	if wire.ReadLength[uint16](fr, 16, &n) {
		return true
	}
	if n > 0 {
		m.Gradients = make([]gradientRecord, n)
		for i := range m.Gradients {
			if m.Gradients[i].readFrom(fr) {
				return true
			}
		}
	}
	if codec != nil {
		if m.Settings, failed = codec.DecodeSettings(fr); failed {
			if fr.Err() == nil {
				fr.Add(0, ErrSettingsCodec)
			}
			return true
		}
	}
	return false
}

func (m *metadataRecord) writeTo(fw *wire.Writer, codec SettingsCodec) (failed bool) {
	if wire.WriteVec[uint16](fw, m.Toggles) ||
		wire.WriteVec[uint16](fw, m.Values) ||
		wire.WriteNum(fw, m.Control) {
		return true
	}
	if m.Control >= vectorsMarker {
		if wire.WriteLength[uint16](fw, len(m.Vectors)) {
			return true
		}
		for i := range m.Vectors {
			if wire.WriteArray(fw, m.Vectors[i][:]) {
				return true
			}
		}
	} else {
		for _, field := range m.Fields {
			if wire.WriteVec[uint16](fw, field) {
				return true
			}
		}
	}
	if wire.WriteVec[uint16](fw, m.Dropdowns) {
		return true
	}
	if wire.WriteLength[uint16](fw, len(m.Colors)) {
		return true
	}
	for i := range m.Colors {
		if wire.WriteArray(fw, m.Colors[i][:]) {
			return true
		}
	}
	if wire.WriteLength[uint16](fw, len(m.Gradients)) {
		return true
	}
	for i := range m.Gradients {
		if m.Gradients[i].writeTo(fw) {
			return true
		}
	}
	if codec != nil && codec.EncodeSettings(fw, m.Settings) {
		// Codecs are not required to record why they failed.
		if fw.Err() == nil {
			fw.Add(0, ErrSettingsCodec)
		}
		return true
	}
	return false
}

type gradientRecord struct {
	ColorKeys  [][4]uint8
	ColorTimes []float32
	AlphaKeys  []float32
	AlphaTimes []float32
}

func (g *gradientRecord) readFrom(fr *wire.Reader) (failed bool) {
	var n int
	if wire.ReadLength[uint16](fr, 4, &n) {
		return true
	}
	if n > 0 {
		g.ColorKeys = make([][4]uint8, n)
		for i := range g.ColorKeys {
			if wire.ReadArray(fr, g.ColorKeys[i][:]) {
				return true
			}
		}
	}
	return wire.ReadVec[uint16](fr, &g.ColorTimes) ||
		wire.ReadVec[uint16](fr, &g.AlphaKeys) ||
		wire.ReadVec[uint16](fr, &g.AlphaTimes)
}

func (g *gradientRecord) writeTo(fw *wire.Writer) (failed bool) {
	if wire.WriteLength[uint16](fw, len(g.ColorKeys)) {
		return true
	}
	for i := range g.ColorKeys {
		if wire.WriteArray(fw, g.ColorKeys[i][:]) {
			return true
		}
	}
	return wire.WriteVec[uint16](fw, g.ColorTimes) ||
		wire.WriteVec[uint16](fw, g.AlphaKeys) ||
		wire.WriteVec[uint16](fw, g.AlphaTimes)
}

// ReadFrom decodes the model from fr. Errors are annotated with the record
// being decoded and the offset where decoding stopped.
func (f *formatModel) ReadFrom(fr *wire.Reader, settings *Settings) error {
	if wire.ReadNum(fr, &f.Version) {
		return decodeError(fr, nil)
	}
	lay, err := layoutOf(f.Version)
	if err != nil {
		return decodeError(fr, err)
	}

	var n int
	if wire.ReadLength[uint16](fr, 24, &n) {
		return decodeError(fr, nil)
	}
	f.Roots = make([]rootRecord, n)
	for i := range f.Roots {
		if f.Roots[i].readFrom(fr) {
			return recordError(fr, "root", i)
		}
	}

	if lay.Tables {
		if wire.ReadLength[uint16](fr, 6, &n) {
			return decodeError(fr, nil)
		}
		f.Rotations = make([][3]uint16, n)
		for i := range f.Rotations {
			if wire.ReadArray(fr, f.Rotations[i][:]) {
				return recordError(fr, "rotation", i)
			}
		}
		if wire.ReadVec[uint16](fr, &f.Colors) {
			return decodeError(fr, nil)
		}
	}

	if wire.ReadLength[uint16](fr, 22, &n) {
		return decodeError(fr, nil)
	}
	f.Blocks = make([]blockRecord, n)
	for i := range f.Blocks {
		if f.Blocks[i].readFrom(fr, lay, settings) {
			return recordError(fr, "block", i)
		}
	}
	return nil
}

// WriteTo encodes the model to w.
func (f *formatModel) WriteTo(w io.Writer, settings *Settings) (n int64, err error) {
	fw := wire.NewWriter(w)
	lay, err := layoutOf(f.Version)
	if fw.Add(0, err) {
		return fw.End()
	}
	if wire.WriteNum(fw, f.Version) {
		return fw.End()
	}
	if wire.WriteLength[uint16](fw, len(f.Roots)) {
		return fw.End()
	}
	for i := range f.Roots {
		if f.Roots[i].writeTo(fw) {
			return fw.End()
		}
	}
	if lay.Tables {
		if wire.WriteLength[uint16](fw, len(f.Rotations)) {
			return fw.End()
		}
		for i := range f.Rotations {
			if wire.WriteArray(fw, f.Rotations[i][:]) {
				return fw.End()
			}
		}
		if wire.WriteVec[uint16](fw, f.Colors) {
			return fw.End()
		}
	}
	if wire.WriteLength[uint16](fw, len(f.Blocks)) {
		return fw.End()
	}
	for i := range f.Blocks {
		if f.Blocks[i].writeTo(fw, lay, settings) {
			if n, err = fw.End(); err == nil {
				err = ErrSettingsCodec
			}
			return n, RecordError{Kind: "block", Index: i, Cause: err}
		}
	}
	return fw.End()
}
