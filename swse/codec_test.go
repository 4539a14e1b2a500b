package swse

import (
	"bytes"
	"errors"
	"math"
	"runtime"
	"strings"
	"testing"

	"github.com/swsel/structure"
	serrors "github.com/swsel/structure/errors"
	"github.com/swsel/structure/quant"
	"github.com/swsel/structure/wire"
)

// testBuilding returns a building that exercises every part of a block.
// Colors are representable in RGB565 so that they survive table layouts.
func testBuilding(t *testing.T) *structure.Building {
	b := &structure.Building{}
	r0 := b.AddRoot(&structure.Root{Position: [3]float32{1, 2, 3}, Rotation: [3]float32{0, 90, 0}})
	r1 := b.AddRoot(&structure.Root{Position: [3]float32{-4, 0, 8}})

	red := structure.RGB(0xF8, 0x00, 0x00)
	blue := structure.RGB(0x00, 0x00, 0xF8)
	gray := structure.RGB(0x80, 0x84, 0x88)

	base := r0.AddBlock(&structure.Block{
		Rotation:           [3]float32{0, 90, 180},
		Color:              &red,
		EnableState:        1,
		EnableStateCurrent: 1,
	})
	base.Load = structure.RefTo(base)

	motor := r0.AddBlock(&structure.Block{
		ID:                 7,
		Name:               "Motor",
		Position:           [3]float32{1, 0, 0},
		Rotation:           [3]float32{0, 90, 180},
		Color:              &gray,
		EnableState:        0.2,
		EnableStateCurrent: 200,
	})
	motor.Connect(base)
	motor.Load = structure.RefTo(base)

	md, err := structure.NewMetadata([][]structure.Ref{
		{structure.RefTo(base), structure.RefTo(motor)},
		{structure.RefTo(motor)},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	md.Toggles = []bool{true, false}
	md.Values = []float32{0.5, 3}
	md.Dropdowns = []uint8{2}
	md.Colors = []structure.Color{structure.RGBA(1, 2, 3, 4)}
	md.Gradients = []structure.Gradient{{
		ColorKeys:  []structure.Color{structure.RGBA(9, 8, 7, 6)},
		ColorTimes: []float32{0, 1},
		AlphaKeys:  []float32{1},
		AlphaTimes: []float32{0.5},
	}}
	md.Settings = &structure.MathBlock{Function: "a*b", IncomingOrder: []uint8{1, 0}, Slots: []uint8{0, 1}}
	calc := r0.AddBlock(&structure.Block{
		ID:                 structure.MathBlockID,
		Position:           [3]float32{0, 1, 0},
		EnableStateCurrent: 0.6,
		Metadata:           md,
	})
	calc.Connect(motor, base)

	vectors, err := structure.NewMetadata(nil, [][3]float32{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	shape := r1.AddBlock(&structure.Block{
		ID:       109,
		Position: [3]float32{0, 0, 2.5},
		Rotation: [3]float32{-90, 45.5, 359.99},
		Color:    &blue,
		Metadata: vectors,
	})
	shape.Load = structure.RefTo(base)
	r1.AddBlock(&structure.Block{ID: 1, Name: "spare"})
	return b
}

func blocksOf(b *structure.Building) []*structure.Block {
	var blocks []*structure.Block
	for _, root := range b.Roots {
		blocks = append(blocks, root.Blocks...)
	}
	return blocks
}

func indexOf(blocks []*structure.Block, b *structure.Block) int {
	for i, block := range blocks {
		if block == b {
			return i
		}
	}
	return -1
}

func angleDiff(a, b float32) float64 {
	d := math.Mod(math.Abs(float64(a)-float64(b)), 360)
	return math.Min(d, 360-d)
}

func checkRef(t *testing.T, name string, want, got structure.Ref, wantBlocks, gotBlocks []*structure.Block) {
	t.Helper()
	if want.Absent() != got.Absent() {
		t.Errorf("%s: expected absent %t, got %t", name, want.Absent(), got.Absent())
		return
	}
	if want.Absent() {
		return
	}
	if i, j := indexOf(wantBlocks, want.Block()), indexOf(gotBlocks, got.Block()); i != j {
		t.Errorf("%s: expected target %d, got %d", name, i, j)
	}
}

func checkBuilding(t *testing.T, want, got *structure.Building) {
	t.Helper()
	if len(want.Roots) != len(got.Roots) {
		t.Fatalf("expected %d roots, got %d", len(want.Roots), len(got.Roots))
	}
	for i := range want.Roots {
		w, g := want.Roots[i], got.Roots[i]
		if w.Position != g.Position || w.Rotation != g.Rotation {
			t.Errorf("root %d: expected %v %v, got %v %v", i, w.Position, w.Rotation, g.Position, g.Rotation)
		}
		if len(w.Blocks) != len(g.Blocks) {
			t.Fatalf("root %d: expected %d blocks, got %d", i, len(w.Blocks), len(g.Blocks))
		}
	}

	wantBlocks, gotBlocks := blocksOf(want), blocksOf(got)
	for i, w := range wantBlocks {
		g := gotBlocks[i]
		if w.ID != g.ID || w.Name != g.Name || w.Position != g.Position {
			t.Errorf("block %d: expected %d %q %v, got %d %q %v", i, w.ID, w.Name, w.Position, g.ID, g.Name, g.Position)
		}
		for k := range w.Rotation {
			if d := angleDiff(w.Rotation[k], g.Rotation[k]); d > quant.RotationStep {
				t.Errorf("block %d: rotation %d off by %g", i, k, d)
			}
		}
		if d := math.Abs(float64(w.EnableState - g.EnableState)); d > 0.5/255 {
			t.Errorf("block %d: expected enable state %g, got %g", i, w.EnableState, g.EnableState)
		}
		tolerance := 0.5 / 255
		if w.Overdrive() {
			tolerance = 1
		}
		if d := math.Abs(float64(w.EnableStateCurrent - g.EnableStateCurrent)); d > tolerance {
			t.Errorf("block %d: expected current state %g, got %g", i, w.EnableStateCurrent, g.EnableStateCurrent)
		}
		if (w.Color == nil) != (g.Color == nil) || w.Color != nil && *w.Color != *g.Color {
			t.Errorf("block %d: expected color %v, got %v", i, w.Color, g.Color)
		}
		checkRef(t, "load", w.Load, g.Load, wantBlocks, gotBlocks)
		if len(w.Connections) != len(g.Connections) {
			t.Errorf("block %d: expected %d connections, got %d", i, len(w.Connections), len(g.Connections))
		} else {
			for k := range w.Connections {
				checkRef(t, "connection", w.Connections[k], g.Connections[k], wantBlocks, gotBlocks)
			}
		}
		checkMetadata(t, i, w.Metadata, g.Metadata, wantBlocks, gotBlocks)
	}
}

func checkMetadata(t *testing.T, i int, w, g *structure.Metadata, wantBlocks, gotBlocks []*structure.Block) {
	t.Helper()
	if (w == nil) != (g == nil) {
		t.Errorf("block %d: expected metadata %t, got %t", i, w != nil, g != nil)
		return
	}
	if w == nil {
		return
	}
	if len(w.Toggles) != len(g.Toggles) || len(w.Values) != len(g.Values) ||
		len(w.Dropdowns) != len(g.Dropdowns) || len(w.Colors) != len(g.Colors) ||
		len(w.Gradients) != len(g.Gradients) || len(w.Vectors()) != len(g.Vectors()) {
		t.Errorf("block %d: metadata mismatch: expected %+v, got %+v", i, w, g)
		return
	}
	for k := range w.Toggles {
		if w.Toggles[k] != g.Toggles[k] {
			t.Errorf("block %d: toggle %d mismatch", i, k)
		}
	}
	for k := range w.Values {
		if w.Values[k] != g.Values[k] {
			t.Errorf("block %d: value %d mismatch", i, k)
		}
	}
	for k := range w.Colors {
		if w.Colors[k] != g.Colors[k] {
			t.Errorf("block %d: color %d mismatch", i, k)
		}
	}
	for k := range w.Vectors() {
		if w.Vectors()[k] != g.Vectors()[k] {
			t.Errorf("block %d: vector %d mismatch", i, k)
		}
	}
	for k := range w.Gradients {
		wg, gg := w.Gradients[k], g.Gradients[k]
		if len(wg.ColorKeys) != len(gg.ColorKeys) || wg.ColorKeys[0] != gg.ColorKeys[0] ||
			len(wg.AlphaTimes) != len(gg.AlphaTimes) {
			t.Errorf("block %d: gradient %d mismatch", i, k)
		}
	}
	wf, gf := w.Fields(), g.Fields()
	if len(wf) != len(gf) {
		t.Errorf("block %d: expected %d fields, got %d", i, len(wf), len(gf))
		return
	}
	for k := range wf {
		if len(wf[k]) != len(gf[k]) {
			t.Errorf("block %d: field %d: expected %d entries, got %d", i, k, len(wf[k]), len(gf[k]))
			continue
		}
		for j := range wf[k] {
			checkRef(t, "field", wf[k][j], gf[k][j], wantBlocks, gotBlocks)
		}
	}
	ws, _ := w.Settings.(*structure.MathBlock)
	gs, _ := g.Settings.(*structure.MathBlock)
	if (ws == nil) != (gs == nil) {
		t.Errorf("block %d: expected settings %v, got %v", i, w.Settings, g.Settings)
	} else if ws != nil && (ws.Function != gs.Function || !bytes.Equal(ws.IncomingOrder, gs.IncomingOrder) || !bytes.Equal(ws.Slots, gs.Slots)) {
		t.Errorf("block %d: expected settings %+v, got %+v", i, ws, gs)
	}
}

func encode(t *testing.T, e Encoder, b *structure.Building) []byte {
	t.Helper()
	var buf bytes.Buffer
	warn, err := e.Encode(&buf, b)
	if err != nil {
		t.Fatalf("version %d: encode: %v", e.Version, err)
	}
	if warn != nil {
		t.Errorf("version %d: unexpected warning: %v", e.Version, warn)
	}
	return buf.Bytes()
}

func decode(t *testing.T, d Decoder, data []byte) *structure.Building {
	t.Helper()
	b, warn, err := d.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if warn != nil {
		t.Errorf("unexpected warning: %v", warn)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	want := testBuilding(t)
	for v := uint8(0); v <= MaxVersion; v++ {
		data := encode(t, Encoder{Version: v}, want)
		if data[0] != v {
			t.Errorf("version %d: expected version byte, got %d", v, data[0])
		}
		got := decode(t, Decoder{}, data)
		checkBuilding(t, want, got)

		again := encode(t, Encoder{Version: v}, got)
		if !bytes.Equal(data, again) {
			t.Errorf("version %d: re-encoding is not stable", v)
		}
	}
	runtime.KeepAlive(want)
}

func TestSerialize(t *testing.T) {
	want := testBuilding(t)
	var buf bytes.Buffer
	if err := Serialize(&buf, want); err != nil {
		t.Fatal(err)
	}
	if buf.Bytes()[0] != LatestVersion {
		t.Errorf("expected version %d, got %d", LatestVersion, buf.Bytes()[0])
	}
	got, err := Deserialize(&buf)
	if err != nil {
		t.Fatal(err)
	}
	checkBuilding(t, want, got)
}

func TestEmptyBuilding(t *testing.T) {
	data := encode(t, Encoder{}, &structure.Building{})
	if !bytes.Equal(data, []byte{0, 0, 0, 0, 0}) {
		t.Errorf("unexpected encoding % 02X", data)
	}
	data = encode(t, Encoder{Version: 8}, &structure.Building{})
	if !bytes.Equal(data, []byte{8, 0, 0, 0, 0, 0, 0, 0, 0}) {
		t.Errorf("unexpected encoding % 02X", data)
	}
	if b := decode(t, Decoder{}, data); len(b.Roots) != 0 {
		t.Errorf("expected no roots, got %d", len(b.Roots))
	}
}

func TestFlagByte(t *testing.T) {
	var color structure.Color
	block := &structure.Block{EnableStateCurrent: 0.6, Color: &color, Metadata: &structure.Metadata{}}
	block.Load = structure.RefTo(block)
	b := &structure.Building{}
	b.AddRoot(&structure.Root{}).AddBlock(block)

	data := encode(t, Encoder{}, b)
	if data[49] != 0x20 {
		t.Errorf("expected flags 0x20, got %#02x", data[49])
	}
	if data[50] != 153 {
		t.Errorf("expected current state 153, got %d", data[50])
	}

	block.EnableStateCurrent = 200
	block.Name = "x"
	data = encode(t, Encoder{}, b)
	if data[49] != 0x61 {
		t.Errorf("expected flags 0x61, got %#02x", data[49])
	}
	if data[50] != 200 {
		t.Errorf("expected current state 200, got %d", data[50])
	}

	got := decode(t, Decoder{}, data).Roots[0].Blocks[0]
	if got.EnableStateCurrent != 200 || got.Name != "x" {
		t.Errorf("unexpected block %+v", got)
	}

	bare := &structure.Block{}
	bare.Connect(bare)
	b = &structure.Building{}
	b.AddRoot(&structure.Root{}).AddBlock(bare)
	data = encode(t, Encoder{}, b)
	if data[49] != 0x3E {
		t.Errorf("expected flags 0x3E, got %#02x", data[49])
	}
}

func TestDropExternalRefs(t *testing.T) {
	outside := &structure.Block{}
	inside := &structure.Block{}
	inside.Connect(outside, inside)
	inside.Load = structure.RefTo(outside)
	md, err := structure.NewMetadata([][]structure.Ref{{structure.RefTo(outside), structure.RefTo(inside)}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	inside.Metadata = md
	b := &structure.Building{}
	b.AddRoot(&structure.Root{}).AddBlock(inside)

	var buf bytes.Buffer
	warn, err := Encoder{}.Encode(&buf, b)
	if err != nil {
		t.Fatal(err)
	}
	runtime.KeepAlive(outside)
	if n := len(warn.(serrors.Errors)); n != 3 {
		t.Errorf("expected 3 warnings, got %d: %v", n, warn)
	}
	if !errors.Is(warn, serrors.ErrDanglingReference) {
		t.Errorf("expected dangling reference warning, got %v", warn)
	}

	got := decode(t, Decoder{}, buf.Bytes()).Roots[0].Blocks[0]
	if len(got.Connections) != 1 || !got.Connections[0].Refers(got) {
		t.Error("expected only the internal connection")
	}
	if !got.Load.Absent() {
		t.Error("expected load to be absent")
	}
	if f := got.Metadata.Fields(); len(f) != 1 || len(f[0]) != 1 || !f[0][0].Refers(got) {
		t.Errorf("unexpected fields %v", f)
	}
}

func TestTableDedup(t *testing.T) {
	red := structure.RGB(0xF8, 0, 0)
	green := structure.RGB(0, 0xFC, 0)
	root := &structure.Root{}
	for i := 0; i < 10; i++ {
		block := &structure.Block{Rotation: [3]float32{0, float32(90 * (i % 2)), 0}}
		switch i % 3 {
		case 0:
			block.Color = &red
		case 1:
			block.Color = &green
		}
		root.AddBlock(block)
	}
	b := &structure.Building{Roots: []*structure.Root{root}}

	f, warn, err := codec{Version: 8}.Encode(b)
	if err != nil || warn != nil {
		t.Fatalf("unexpected error %v, %v", err, warn)
	}
	if len(f.Rotations) != 2 {
		t.Errorf("expected 2 rotations, got %d", len(f.Rotations))
	}
	if len(f.Colors) != 2 {
		t.Errorf("expected 2 colors, got %d", len(f.Colors))
	}
	if f.Blocks[3].RotationIndex != 1 || f.Blocks[3].ColorIndex != 0 {
		t.Errorf("unexpected indices %d, %d", f.Blocks[3].RotationIndex, f.Blocks[3].ColorIndex)
	}

	v5 := encode(t, Encoder{Version: 5}, b)
	v6 := encode(t, Encoder{Version: 6}, b)
	if len(v6) >= len(v5) {
		t.Errorf("expected table layout to be smaller: %d >= %d", len(v6), len(v5))
	}
	checkBuilding(t, b, decode(t, Decoder{}, v6))
}

func TestIndexBounds(t *testing.T) {
	root := &structure.Root{Blocks: make([]*structure.Block, 65535)}
	for i := range root.Blocks {
		root.Blocks[i] = &structure.Block{}
	}
	b := &structure.Building{Roots: []*structure.Root{root}}
	if _, err := (Encoder{}).Encode(&bytes.Buffer{}, b); err != nil {
		t.Errorf("65535 blocks: unexpected error %v", err)
	}

	root.AddBlock(&structure.Block{})
	_, err := Encoder{}.Encode(&bytes.Buffer{}, b)
	if !errors.Is(err, serrors.ErrFormatViolation) || !errors.Is(err, serrors.ErrLengthOverflow) {
		t.Errorf("65536 blocks: expected length overflow, got %v", err)
	}

	root.AddBlock(&structure.Block{})
	_, err = Encoder{}.Encode(&bytes.Buffer{}, b)
	var ierr serrors.IndexSpaceError
	if !errors.As(err, &ierr) || !errors.Is(err, serrors.ErrIndexSpaceExhausted) {
		t.Errorf("65537 blocks: expected index space error, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "too many blocks") {
		t.Errorf("unexpected message %v", err)
	}
}

func TestOwnerBound(t *testing.T) {
	b := &structure.Building{}
	for i := 0; i < 257; i++ {
		b.AddRoot(&structure.Root{})
	}
	b.Roots[255].AddBlock(&structure.Block{})
	if _, err := (Encoder{}).Encode(&bytes.Buffer{}, b); err != nil {
		t.Errorf("root 255: unexpected error %v", err)
	}
	b.Roots[256].AddBlock(&structure.Block{})
	_, err := Encoder{}.Encode(&bytes.Buffer{}, b)
	var rec RecordError
	if !errors.As(err, &rec) || rec.Index != 1 || !errors.Is(err, serrors.ErrFormatViolation) {
		t.Errorf("root 256: expected format violation, got %v", err)
	}
}

func TestOwnership(t *testing.T) {
	block := &structure.Block{}
	b := &structure.Building{Roots: []*structure.Root{{Blocks: []*structure.Block{block, block}}}}
	if _, err := (Encoder{}).Encode(&bytes.Buffer{}, b); !errors.Is(err, serrors.ErrFormatViolation) {
		t.Errorf("expected format violation, got %v", err)
	}
}

func TestEncodeVersion(t *testing.T) {
	_, err := Encoder{Version: MaxVersion + 1}.Encode(&bytes.Buffer{}, &structure.Building{})
	var verr ErrUnrecognizedVersion
	if !errors.As(err, &verr) {
		t.Errorf("expected unrecognized version, got %v", err)
	}
}

// counterSettings are the settings of a test block type.
type counterSettings struct {
	Count uint32
}

func (s *counterSettings) Copy() structure.TypeSettings {
	c := *s
	return &c
}

type counterCodec struct{}

func (counterCodec) EncodeSettings(w *wire.Writer, s structure.TypeSettings) (failed bool) {
	var n uint32
	if c, ok := s.(*counterSettings); ok {
		n = c.Count
	}
	return wire.WriteNum(w, n)
}

func (counterCodec) DecodeSettings(r *wire.Reader) (s structure.TypeSettings, failed bool) {
	var c counterSettings
	if wire.ReadNum(r, &c.Count) {
		return nil, true
	}
	return &c, false
}

func TestCustomSettings(t *testing.T) {
	settings := DefaultSettings().Register(200, counterCodec{})
	block := &structure.Block{ID: 200, Metadata: &structure.Metadata{Settings: &counterSettings{Count: 42}}}
	b := &structure.Building{}
	b.AddRoot(&structure.Root{}).AddBlock(block)

	data := encode(t, Encoder{Settings: settings}, b)
	got := decode(t, Decoder{Settings: settings}, data)
	s, ok := got.Roots[0].Blocks[0].Metadata.Settings.(*counterSettings)
	if !ok || s.Count != 42 {
		t.Errorf("unexpected settings %v", got.Roots[0].Blocks[0].Metadata.Settings)
	}

	// Without the codec, the settings are neither written nor read.
	plain := encode(t, Encoder{}, b)
	if len(plain) != len(data)-4 {
		t.Errorf("expected %d bytes, got %d", len(data)-4, len(plain))
	}
	if s := decode(t, Decoder{}, plain).Roots[0].Blocks[0].Metadata.Settings; s != nil {
		t.Errorf("expected no settings, got %v", s)
	}

	// The default registry is unaffected.
	if DefaultSettings().Codec(200) != nil || builtinSettings.Codec(200) != nil {
		t.Error("registration leaked into the default registry")
	}
	if NewSettings().Codec(structure.MathBlockID) != nil {
		t.Error("expected empty registry")
	}
}

func TestMathBlockSettings(t *testing.T) {
	block := &structure.Block{ID: structure.MathBlockID, Metadata: &structure.Metadata{}}
	b := &structure.Building{}
	b.AddRoot(&structure.Root{}).AddBlock(block)

	got := decode(t, Decoder{}, encode(t, Encoder{}, b)).Roots[0].Blocks[0]
	if s := got.Metadata.Settings; s != nil {
		t.Errorf("expected no settings, got %v", s)
	}

	block.Metadata.Settings = &structure.MathBlock{Slots: []uint8{2}}
	got = decode(t, Decoder{}, encode(t, Encoder{}, b)).Roots[0].Blocks[0]
	if s, ok := got.Metadata.Settings.(*structure.MathBlock); !ok || len(s.Slots) != 1 || s.Slots[0] != 2 {
		t.Errorf("unexpected settings %v", got.Metadata.Settings)
	}
}

// silentCodec fails without recording an error.
type silentCodec struct{}

func (silentCodec) EncodeSettings(w *wire.Writer, s structure.TypeSettings) (failed bool) {
	return true
}

func (silentCodec) DecodeSettings(r *wire.Reader) (s structure.TypeSettings, failed bool) {
	return nil, true
}

func TestSilentSettingsFailure(t *testing.T) {
	b := &structure.Building{}
	root := b.AddRoot(&structure.Root{})
	root.AddBlock(&structure.Block{ID: 200, Metadata: &structure.Metadata{}})
	root.AddBlock(&structure.Block{ID: 1})

	silent := NewSettings().Register(200, silentCodec{})
	_, err := Encoder{Settings: silent}.Encode(&bytes.Buffer{}, b)
	if !errors.Is(err, ErrSettingsCodec) {
		t.Errorf("expected settings codec error on encode, got %v", err)
	}
	var rec RecordError
	if !errors.As(err, &rec) || rec.Index != 0 || rec.Error() == "" {
		t.Errorf("unexpected encode error %v", err)
	}

	data := encode(t, Encoder{Settings: NewSettings()}, b)
	got, _, err := Decoder{Settings: silent}.Decode(bytes.NewReader(data))
	if got != nil {
		t.Error("expected no building")
	}
	if !errors.Is(err, ErrSettingsCodec) {
		t.Errorf("expected settings codec error on decode, got %v", err)
	}
	if !errors.As(err, &rec) || rec.Kind != "block" || rec.Index != 0 {
		t.Errorf("unexpected decode error %v", err)
	}
}

func TestRecordErrorNilCause(t *testing.T) {
	if s := (RecordError{Kind: "block", Index: 3}).Error(); s != "block #3: unknown error" {
		t.Errorf("unexpected message %q", s)
	}
}

func TestDump(t *testing.T) {
	data := encode(t, Encoder{Version: 7}, testBuilding(t))
	var out strings.Builder
	if _, err := (Decoder{}).Dump(&out, bytes.NewReader(data)); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{
		"Version: 7",
		"Roots: (count:2)",
		"Rotations: (count:",
		"Blocks: (count:5)",
		`Name: (len:5) "Motor"`,
		"raw-current",
		`Function: (len:3) "a*b"`,
	} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("dump does not contain %q", s)
		}
	}
}
