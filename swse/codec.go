package swse

import (
	"fmt"
	"log"
	"math"

	"github.com/swsel/structure"
	"github.com/swsel/structure/errors"
	"github.com/swsel/structure/quant"
	"github.com/swsel/structure/wire"
)

// codec converts between a Building and a formatModel.
type codec struct {
	Version  uint8
	Settings *Settings
	Logger   *log.Logger
}

func (c codec) logf(format string, v ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, v...)
	}
}

// unitByte scales v from [0, 1] to [0, 255], rounding to nearest.
func unitByte(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// rawByte truncates v to [0, 255].
func rawByte(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

////////////////////////////////////////////////////////////////

// Encode converts b into a model. Relations that cannot be resolved within b
// are dropped and reported as warnings.
func (c codec) Encode(b *structure.Building) (f *formatModel, warn, err error) {
	lay, err := layoutOf(c.Version)
	if err != nil {
		return nil, nil, err
	}
	idx, err := newIndex(b)
	if err != nil {
		return nil, nil, err
	}
	if err := wire.CheckLength[uint16](len(b.Roots)); err != nil {
		return nil, nil, fmt.Errorf("root count: %w", err)
	}
	if err := wire.CheckLength[uint16](len(idx.blocks)); err != nil {
		return nil, nil, fmt.Errorf("block count: %w", err)
	}

	f = &formatModel{
		Version: c.Version,
		Roots:   make([]rootRecord, len(b.Roots)),
		Blocks:  make([]blockRecord, len(idx.blocks)),
	}
	for i, root := range b.Roots {
		f.Roots[i] = rootRecord{Position: root.Position, Rotation: root.Rotation}
	}

	var t *tables
	if lay.Tables {
		t = &tables{}
	}
	var warns errors.Errors
	for i, block := range idx.blocks {
		w, err := c.encodeBlock(&f.Blocks[i], idx, i, block, t)
		warns = warns.Append(w)
		if err != nil {
			return nil, warns.Return(), RecordError{Kind: "block", Index: i, Cause: err}
		}
	}
	if t != nil {
		f.Rotations = t.rotations.values
		f.Colors = t.colors.values
		c.logf("dictionaries: %d rotations, %d colors", len(f.Rotations), len(f.Colors))
	}
	c.logf("encoded version %d: %d roots, %d blocks", c.Version, len(f.Roots), len(f.Blocks))
	return f, warns.Return(), nil
}

func (c codec) encodeBlock(rec *blockRecord, idx *index, i int, block *structure.Block, t *tables) (warn, err error) {
	var warns errors.Errors

	owner := idx.owner[i]
	if owner > math.MaxUint8 {
		return nil, fmt.Errorf("owner root %d: %w", owner, errors.LengthError{Len: uint64(owner), Max: math.MaxUint8})
	}

	rec.Position = block.Position
	rec.ID = block.ID
	rec.Root = uint8(owner)

	rotation := quant.PackRotation(block.Rotation)
	if t != nil {
		rec.RotationIndex = t.rotations.add(rotation)
	} else {
		rec.Rotation = rotation
	}

	rec.Name = block.Name

	// Overdrive values that truncate to 1 or less are stored scaled.
	rawCurrent := false
	if raw := rawByte(block.EnableStateCurrent); block.Overdrive() && raw > 1 {
		rawCurrent = true
		rec.Current = raw
	} else {
		rec.Current = unitByte(block.EnableStateCurrent)
	}
	rec.Target = unitByte(block.EnableState)

	noLoad := true
	if target := block.Load.Block(); target != nil {
		if j, ok := idx.block(target); ok {
			noLoad = false
			rec.Load = uint16(j)
		} else {
			warns = append(warns, ReferenceError{Block: i, Field: "load", Index: -1})
		}
	}

	for _, ref := range block.Connections {
		target := ref.Block()
		if target == nil {
			continue
		}
		j, ok := idx.block(target)
		if !ok {
			warns = append(warns, ReferenceError{Block: i, Field: "connection", Index: -1})
			continue
		}
		rec.Connections = append(rec.Connections, uint16(j))
	}

	if block.Metadata != nil {
		m, w, err := c.encodeMetadata(idx, i, block.Metadata)
		warns = warns.Append(w)
		if err != nil {
			return warns.Return(), err
		}
		rec.Metadata = m
	}

	if block.Color != nil {
		if t != nil {
			rec.ColorIndex = t.colors.add(quant.PackColor(block.Color.R, block.Color.G, block.Color.B))
		} else {
			rec.Color = block.Color.Bytes()
		}
	}

	// In order of the flag bits. Legacy integers are never written.
	rec.Flags = wire.PackBools(
		rec.Name != "",
		len(rec.Connections) > 0,
		rec.Metadata == nil,
		block.Color == nil,
		noLoad,
		true,
		rawCurrent,
		false,
	)
	return warns.Return(), nil
}

func (c codec) encodeMetadata(idx *index, i int, md *structure.Metadata) (m *metadataRecord, warn, err error) {
	var warns errors.Errors
	fields, vectors := md.Fields(), md.Vectors()
	if len(fields) > 0 && len(vectors) > 0 {
		return nil, nil, fmt.Errorf("%w: %w", errors.ErrFormatViolation, structure.ErrFieldsWithVectors)
	}
	if len(fields) >= vectorsMarker {
		return nil, nil, fmt.Errorf("fields: %w", errors.LengthError{Len: uint64(len(fields)), Max: vectorsMarker - 1})
	}

	m = &metadataRecord{
		Values:   md.Values,
		Control:  uint16(len(fields)),
		Settings: md.Settings,
	}
	if len(vectors) > 0 {
		m.Control = vectorsMarker
		m.Vectors = vectors
	}
	if len(md.Toggles) > 0 {
		m.Toggles = make([]uint8, len(md.Toggles))
		for j, v := range md.Toggles {
			if v {
				m.Toggles[j] = 1
			}
		}
	}
	if len(fields) > 0 {
		m.Fields = make([][]int32, len(fields))
		for j, field := range fields {
			for _, ref := range field {
				target := ref.Block()
				if target == nil {
					continue
				}
				k, ok := idx.block(target)
				if !ok {
					warns = append(warns, ReferenceError{Block: i, Field: fmt.Sprintf("field %d", j), Index: -1})
					continue
				}
				m.Fields[j] = append(m.Fields[j], int32(k))
			}
		}
	}
	if len(md.Dropdowns) > 0 {
		m.Dropdowns = make([]int32, len(md.Dropdowns))
		for j, v := range md.Dropdowns {
			m.Dropdowns[j] = int32(v)
		}
	}
	if len(md.Colors) > 0 {
		m.Colors = make([][4]uint8, len(md.Colors))
		for j, v := range md.Colors {
			m.Colors[j] = v.Bytes()
		}
	}
	if len(md.Gradients) > 0 {
		m.Gradients = make([]gradientRecord, len(md.Gradients))
		for j, g := range md.Gradients {
			r := gradientRecord{
				ColorTimes: g.ColorTimes,
				AlphaKeys:  g.AlphaKeys,
				AlphaTimes: g.AlphaTimes,
			}
			if len(g.ColorKeys) > 0 {
				r.ColorKeys = make([][4]uint8, len(g.ColorKeys))
				for k, v := range g.ColorKeys {
					r.ColorKeys[k] = v.Bytes()
				}
			}
			m.Gradients[j] = r
		}
	}
	return m, warns.Return(), nil
}

////////////////////////////////////////////////////////////////

// Decode converts a model into a building. Blocks are created first, then
// references between them are resolved. Indices that do not resolve are
// dropped and reported as warnings.
func (c codec) Decode(f *formatModel) (b *structure.Building, warn, err error) {
	lay, err := layoutOf(f.Version)
	if err != nil {
		return nil, nil, err
	}

	b = &structure.Building{Roots: make([]*structure.Root, len(f.Roots))}
	for i, r := range f.Roots {
		b.Roots[i] = &structure.Root{Position: r.Position, Rotation: r.Rotation}
	}

	var warns errors.Errors
	blocks := make([]*structure.Block, len(f.Blocks))
	for i := range f.Blocks {
		rec := &f.Blocks[i]
		block, w, err := c.decodeBlock(f, lay, rec, i)
		warns = warns.Append(w)
		if err != nil {
			return nil, warns.Return(), RecordError{Kind: "block", Index: i, Cause: err}
		}
		blocks[i] = block
		root := b.Roots[rec.Root]
		root.Blocks = append(root.Blocks, block)
	}

	resolve := func(i int, field string, j int64) (structure.Ref, bool) {
		if j < 0 || j >= int64(len(blocks)) {
			warns = append(warns, ReferenceError{Block: i, Field: field, Index: j})
			return structure.Ref{}, false
		}
		return structure.RefTo(blocks[j]), true
	}
	for i := range f.Blocks {
		rec := &f.Blocks[i]
		block := blocks[i]
		if !rec.has(flagNoLoad) {
			block.Load, _ = resolve(i, "load", int64(rec.Load))
		}
		for _, j := range rec.Connections {
			if ref, ok := resolve(i, "connection", int64(j)); ok {
				block.Connections = append(block.Connections, ref)
			}
		}
		if rec.Metadata == nil || len(rec.Metadata.Fields) == 0 {
			continue
		}
		fields := make([][]structure.Ref, len(rec.Metadata.Fields))
		for k, field := range rec.Metadata.Fields {
			name := fmt.Sprintf("field %d", k)
			for _, j := range field {
				if ref, ok := resolve(i, name, int64(j)); ok {
					fields[k] = append(fields[k], ref)
				}
			}
		}
		if err := block.Metadata.SetFields(fields); err != nil {
			return nil, warns.Return(), RecordError{
				Kind:  "block",
				Index: i,
				Cause: fmt.Errorf("%w: %w", errors.ErrFormatViolation, err),
			}
		}
	}
	c.logf("decoded version %d: %d roots, %d blocks", f.Version, len(f.Roots), len(f.Blocks))
	return b, warns.Return(), nil
}

func (c codec) decodeBlock(f *formatModel, lay layout, rec *blockRecord, i int) (block *structure.Block, warn, err error) {
	var warns errors.Errors
	if int(rec.Root) >= len(f.Roots) {
		return nil, nil, fmt.Errorf("%w: root index %d out of range [0, %d)", errors.ErrFormatViolation, rec.Root, len(f.Roots))
	}
	if rec.has(flagReserved) {
		warns = append(warns, RecordError{Kind: "block", Index: i, Cause: errReservedFlag})
	}
	if !rec.has(flagNoLegacy) {
		warns = append(warns, LegacyError{Block: i, Count: len(rec.Legacy)})
	}

	block = &structure.Block{
		Position:    rec.Position,
		ID:          rec.ID,
		Name:        rec.Name,
		EnableState: float32(rec.Target) / 255,
	}
	if rec.has(flagRawCurrent) {
		block.EnableStateCurrent = float32(rec.Current)
	} else {
		block.EnableStateCurrent = float32(rec.Current) / 255
	}

	rotation := rec.Rotation
	if lay.Tables {
		var ok bool
		if rotation, ok = lookup(f.Rotations, rec.RotationIndex); !ok {
			return nil, warns.Return(), fmt.Errorf("%w: rotation index %d out of range [0, %d)", errors.ErrFormatViolation, rec.RotationIndex, len(f.Rotations))
		}
	}
	block.Rotation = quant.UnpackRotation(rotation)

	if !rec.has(flagNoColor) {
		var color structure.Color
		if lay.Tables {
			packed, ok := lookup(f.Colors, rec.ColorIndex)
			if !ok {
				return nil, warns.Return(), fmt.Errorf("%w: color index %d out of range [0, %d)", errors.ErrFormatViolation, rec.ColorIndex, len(f.Colors))
			}
			r, g, b := quant.UnpackColor(packed)
			color = structure.RGB(r, g, b)
		} else {
			color = structure.ColorFromBytes(rec.Color)
		}
		block.Color = &color
	}

	if rec.Metadata != nil {
		md, err := decodeMetadata(rec.Metadata)
		if err != nil {
			return nil, warns.Return(), err
		}
		block.Metadata = md
	}
	return block, warns.Return(), nil
}

// decodeMetadata converts everything but fields, which are resolved after all
// blocks exist. Dropdown values that do not fit in a byte are dropped.
func decodeMetadata(m *metadataRecord) (*structure.Metadata, error) {
	md := &structure.Metadata{
		Values:   m.Values,
		Settings: m.Settings,
	}
	if err := md.SetVectors(m.Vectors); err != nil {
		return nil, err
	}
	if len(m.Toggles) > 0 {
		md.Toggles = make([]bool, len(m.Toggles))
		for i, v := range m.Toggles {
			md.Toggles[i] = v != 0
		}
	}
	for _, v := range m.Dropdowns {
		if 0 <= v && v <= math.MaxUint8 {
			md.Dropdowns = append(md.Dropdowns, uint8(v))
		}
	}
	if len(m.Colors) > 0 {
		md.Colors = make([]structure.Color, len(m.Colors))
		for i, v := range m.Colors {
			md.Colors[i] = structure.ColorFromBytes(v)
		}
	}
	if len(m.Gradients) > 0 {
		md.Gradients = make([]structure.Gradient, len(m.Gradients))
		for i, r := range m.Gradients {
			g := structure.Gradient{
				ColorTimes: r.ColorTimes,
				AlphaKeys:  r.AlphaKeys,
				AlphaTimes: r.AlphaTimes,
			}
			if len(r.ColorKeys) > 0 {
				g.ColorKeys = make([]structure.Color, len(r.ColorKeys))
				for k, v := range r.ColorKeys {
					g.ColorKeys[k] = structure.ColorFromBytes(v)
				}
			}
			md.Gradients[i] = g
		}
	}
	return md, nil
}
