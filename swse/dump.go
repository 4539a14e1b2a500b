package swse

import (
	"bufio"
	"fmt"
	"strconv"
	"unicode"

	"github.com/swsel/structure"
	"github.com/swsel/structure/wire"
)

var flagNames = [8]string{
	"name",
	"connections",
	"no-metadata",
	"no-color",
	"no-load",
	"no-legacy",
	"raw-current",
	"reserved",
}

func dumpModel(w *bufio.Writer, f *formatModel) {
	lay, _ := layoutOf(f.Version)
	fmt.Fprintf(w, "Version: %d", f.Version)
	fmt.Fprintf(w, "\nRoots: (count:%d) {", len(f.Roots))
	for i, r := range f.Roots {
		dumpNewline(w, 1)
		fmt.Fprintf(w, "#%d: {", i)
		dumpNewline(w, 2)
		fmt.Fprintf(w, "Position: %v", r.Position)
		dumpNewline(w, 2)
		fmt.Fprintf(w, "Rotation: %v", r.Rotation)
		dumpNewline(w, 1)
		w.WriteByte('}')
	}
	w.WriteString("\n}")
	if lay.Tables {
		fmt.Fprintf(w, "\nRotations: (count:%d) {", len(f.Rotations))
		for i, r := range f.Rotations {
			dumpNewline(w, 1)
			fmt.Fprintf(w, "%d: %v", i, r)
		}
		w.WriteString("\n}")
		fmt.Fprintf(w, "\nColors: (count:%d) {", len(f.Colors))
		for i, c := range f.Colors {
			dumpNewline(w, 1)
			fmt.Fprintf(w, "%d: %04X", i, c)
		}
		w.WriteString("\n}")
	}
	fmt.Fprintf(w, "\nBlocks: (count:%d) {", len(f.Blocks))
	for i := range f.Blocks {
		dumpBlock(w, 1, i, lay, &f.Blocks[i])
	}
	w.WriteString("\n}\n")
}

func dumpBlock(w *bufio.Writer, indent, i int, lay layout, b *blockRecord) {
	dumpNewline(w, indent)
	fmt.Fprintf(w, "#%d: {", i)
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "ID: %d", b.ID)
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "Root: %d", b.Root)
	dumpNewline(w, indent+1)
	dumpFlags(w, b.Flags)
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "Position: %v", b.Position)
	dumpNewline(w, indent+1)
	if lay.Tables {
		fmt.Fprintf(w, "Rotation: #%d", b.RotationIndex)
	} else {
		fmt.Fprintf(w, "Rotation: %v", b.Rotation)
	}
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "Current: %d", b.Current)
	dumpNewline(w, indent+1)
	fmt.Fprintf(w, "Target: %d", b.Target)
	if b.has(flagName) {
		dumpNewline(w, indent+1)
		w.WriteString("Name: ")
		dumpString(w, indent+1, b.Name)
	}
	if !b.has(flagNoLoad) {
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Load: %d", b.Load)
	}
	if b.has(flagConnections) {
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Connections: (count:%d) %v", len(b.Connections), b.Connections)
	}
	if !b.has(flagNoLegacy) {
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Legacy: (count:%d) %v", len(b.Legacy), b.Legacy)
	}
	if b.Metadata != nil {
		dumpNewline(w, indent+1)
		w.WriteString("Metadata: {")
		dumpMetadata(w, indent+2, b.Metadata)
		dumpNewline(w, indent+1)
		w.WriteByte('}')
	}
	if !b.has(flagNoColor) {
		dumpNewline(w, indent+1)
		if lay.Tables {
			fmt.Fprintf(w, "Color: #%d", b.ColorIndex)
		} else {
			fmt.Fprintf(w, "Color: % 02X", b.Color)
		}
	}
	dumpNewline(w, indent)
	w.WriteByte('}')
}

func dumpMetadata(w *bufio.Writer, indent int, m *metadataRecord) {
	dumpNewline(w, indent)
	fmt.Fprintf(w, "Toggles: %v", m.Toggles)
	dumpNewline(w, indent)
	fmt.Fprintf(w, "Values: %v", m.Values)
	dumpNewline(w, indent)
	fmt.Fprintf(w, "Control: %04X", m.Control)
	if m.Control >= vectorsMarker {
		dumpNewline(w, indent)
		fmt.Fprintf(w, "Vectors: (count:%d) %v", len(m.Vectors), m.Vectors)
	}
	for i, field := range m.Fields {
		dumpNewline(w, indent)
		fmt.Fprintf(w, "Field %d: %v", i, field)
	}
	dumpNewline(w, indent)
	fmt.Fprintf(w, "Dropdowns: %v", m.Dropdowns)
	dumpNewline(w, indent)
	fmt.Fprintf(w, "Colors: (count:%d)", len(m.Colors))
	for i, c := range m.Colors {
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "%d: % 02X", i, c)
	}
	dumpNewline(w, indent)
	fmt.Fprintf(w, "Gradients: (count:%d)", len(m.Gradients))
	for i, g := range m.Gradients {
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "%d: {", i)
		dumpNewline(w, indent+2)
		fmt.Fprintf(w, "ColorKeys: %v", g.ColorKeys)
		dumpNewline(w, indent+2)
		fmt.Fprintf(w, "ColorTimes: %v", g.ColorTimes)
		dumpNewline(w, indent+2)
		fmt.Fprintf(w, "AlphaKeys: %v", g.AlphaKeys)
		dumpNewline(w, indent+2)
		fmt.Fprintf(w, "AlphaTimes: %v", g.AlphaTimes)
		dumpNewline(w, indent+1)
		w.WriteByte('}')
	}
	switch s := m.Settings.(type) {
	case nil:
	case *structure.MathBlock:
		dumpNewline(w, indent)
		w.WriteString("Settings: (math) {")
		dumpNewline(w, indent+1)
		w.WriteString("Function: ")
		dumpString(w, indent+1, s.Function)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "IncomingOrder: %v", s.IncomingOrder)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Slots: %v", s.Slots)
		dumpNewline(w, indent)
		w.WriteByte('}')
	default:
		dumpNewline(w, indent)
		fmt.Fprintf(w, "Settings: %+v", s)
	}
}

func dumpFlags(w *bufio.Writer, flags uint8) {
	fmt.Fprintf(w, "Flags: %08b", flags)
	sep := " ("
	for i, set := range wire.UnpackBools(flags, len(flagNames)) {
		if set {
			w.WriteString(sep)
			w.WriteString(flagNames[i])
			sep = ", "
		}
	}
	if sep != " (" {
		w.WriteByte(')')
	}
}

func dumpNewline(w *bufio.Writer, indent int) {
	w.WriteByte('\n')
	for i := 0; i < indent; i++ {
		w.WriteByte('\t')
	}
}

func dumpString(w *bufio.Writer, indent int, s string) {
	for _, r := range s {
		if !unicode.IsGraphic(r) {
			dumpBytes(w, indent, []byte(s))
			return
		}
	}
	fmt.Fprintf(w, "(len:%d) ", len(s))
	w.WriteString(strconv.Quote(s))
}

func dumpBytes(w *bufio.Writer, indent int, b []byte) {
	fmt.Fprintf(w, "(len:%d)", len(b))
	const width = 16
	for j := 0; j < len(b); j += width {
		dumpNewline(w, indent+1)
		w.WriteString("| ")
		n := len(b)
		if j+width < n {
			n = j + width
		}
		for i := j; i < j+width; i++ {
			if i < n {
				fmt.Fprintf(w, "%02x ", b[i])
			} else {
				w.WriteString("   ")
			}
		}
		w.WriteByte('|')
		for i := j; i < n; i++ {
			if 32 <= b[i] && b[i] <= 126 {
				w.WriteRune(rune(b[i]))
			} else {
				w.WriteByte('.')
			}
		}
		w.WriteByte('|')
	}
}
