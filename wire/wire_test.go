package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/swsel/structure/errors"
)

func TestUvarint(t *testing.T) {
	tests := []struct {
		value uint64
		bytes []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xAC, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{math.MaxUint64, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		WriteUvarint(w, test.value)
		if _, err := w.End(); err != nil {
			t.Fatalf("%d: write: %s", test.value, err)
		}
		if !bytes.Equal(buf.Bytes(), test.bytes) {
			t.Errorf("%d: expected % 02X, got % 02X", test.value, test.bytes, buf.Bytes())
		}

		var v uint64
		r := NewReader(bytes.NewReader(test.bytes))
		ReadUvarint(r, &v)
		if _, err := r.End(); err != nil {
			t.Fatalf("%d: read: %s", test.value, err)
		}
		if v != test.value {
			t.Errorf("expected %d, got %d", test.value, v)
		}
	}
}

func TestUvarintMalformed(t *testing.T) {
	// 256 does not fit in a byte.
	var b uint8
	r := NewReader(bytes.NewReader([]byte{0x80, 0x02}))
	ReadUvarint(r, &b)
	if _, err := r.End(); !errors.Is(err, errors.ErrMalformedVarint) {
		t.Errorf("expected malformed varint, got %v", err)
	}

	// Continuation past the width of uint32.
	var u uint32
	r = NewReader(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}))
	ReadUvarint(r, &u)
	if _, err := r.End(); !errors.Is(err, errors.ErrMalformedVarint) {
		t.Errorf("expected malformed varint, got %v", err)
	}

	// Largest uint8 still decodes.
	r = NewReader(bytes.NewReader([]byte{0xFF, 0x01}))
	ReadUvarint(r, &b)
	if _, err := r.End(); err != nil || b != 255 {
		t.Errorf("expected 255, got %d (%v)", b, err)
	}

	// Stream ending inside the integer.
	r = NewReader(bytes.NewReader([]byte{0x80}))
	ReadUvarint(r, &u)
	if _, err := r.End(); err == nil {
		t.Error("expected error for truncated varint")
	}
}

func TestString7(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	WriteString7(w, "héllo")
	if _, err := w.End(); err != nil {
		t.Fatal(err)
	}
	if expected := append([]byte{6}, "héllo"...); !bytes.Equal(buf.Bytes(), expected) {
		t.Errorf("expected % 02X, got % 02X", expected, buf.Bytes())
	}

	var s string
	r := NewReader(&buf)
	ReadString7(r, &s)
	if _, err := r.End(); err != nil || s != "héllo" {
		t.Errorf("expected %q, got %q (%v)", "héllo", s, err)
	}

	r = NewReader(bytes.NewReader([]byte{2, 0xC3, 0x28}))
	ReadString7(r, &s)
	if _, err := r.End(); !errors.Is(err, errors.ErrInvalidUTF8) {
		t.Errorf("expected invalid UTF-8, got %v", err)
	}
}

func TestNumByteOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	WriteNum(w, uint16(0x0102))
	WriteNum(w, float32(1))
	w.Order = binary.BigEndian
	WriteNum(w, uint16(0x0102))
	WriteNum(w, int32(-2))
	if _, err := w.End(); err != nil {
		t.Fatal(err)
	}
	expected := []byte{0x02, 0x01, 0x00, 0x00, 0x80, 0x3F, 0x01, 0x02, 0xFF, 0xFF, 0xFF, 0xFE}
	if !bytes.Equal(buf.Bytes(), expected) {
		t.Fatalf("expected % 02X, got % 02X", expected, buf.Bytes())
	}

	r := NewReader(&buf)
	var a, c uint16
	var f float32
	var d int32
	ReadNum(r, &a)
	ReadNum(r, &f)
	r.Order = binary.BigEndian
	ReadNum(r, &c)
	ReadNum(r, &d)
	if _, err := r.End(); err != nil {
		t.Fatal(err)
	}
	if a != 0x0102 || f != 1 || c != 0x0102 || d != -2 {
		t.Errorf("unexpected values %X %v %X %d", a, f, c, d)
	}
}

func TestVec(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	WriteVec[uint16](w, []int32{1, -1})
	WriteVec[uint8](w, []byte("ab"))
	WriteArray(w, []float32{0.5, 2})
	if _, err := w.End(); err != nil {
		t.Fatal(err)
	}
	expected := []byte{
		0x02, 0x00, 0x01, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF,
		0x02, 'a', 'b',
		0x00, 0x00, 0x00, 0x3F, 0x00, 0x00, 0x00, 0x40,
	}
	if !bytes.Equal(buf.Bytes(), expected) {
		t.Fatalf("expected % 02X, got % 02X", expected, buf.Bytes())
	}

	r := NewReader(&buf)
	var ints []int32
	var str []byte
	floats := make([]float32, 2)
	ReadVec[uint16](r, &ints)
	ReadVec[uint8](r, &str)
	ReadArray(r, floats)
	if _, err := r.End(); err != nil {
		t.Fatal(err)
	}
	if len(ints) != 2 || ints[0] != 1 || ints[1] != -1 {
		t.Errorf("unexpected ints %v", ints)
	}
	if string(str) != "ab" {
		t.Errorf("unexpected bytes %q", str)
	}
	if floats[0] != 0.5 || floats[1] != 2 {
		t.Errorf("unexpected floats %v", floats)
	}
}

func TestVecLengthOverflow(t *testing.T) {
	w := NewWriter(io.Discard)
	WriteVec[uint8](w, make([]byte, 256))
	_, err := w.End()
	if !errors.Is(err, errors.ErrLengthOverflow) || !errors.Is(err, errors.ErrFormatViolation) {
		t.Errorf("expected length overflow, got %v", err)
	}
}

func TestVecLimit(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x64, 0x00}))
	r.Limit = 10
	var v []uint32
	ReadVec[uint16](r, &v)
	if _, err := r.End(); !errors.Is(err, errors.ErrFormatViolation) {
		t.Errorf("expected format violation, got %v", err)
	}
}

func TestTruncated(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01}))
	var v uint32
	if !ReadNum(r, &v) {
		t.Error("expected read to fail")
	}
	if _, err := r.End(); err == nil {
		t.Error("expected error")
	}
}

func TestPackBools(t *testing.T) {
	b := PackBools(true, false, true, false, false, true)
	if b != 0x25 {
		t.Errorf("expected 0x25, got 0x%02X", b)
	}
	flags := UnpackBools(0xFF, 3)
	if len(flags) != 3 {
		t.Fatalf("expected 3 flags, got %d", len(flags))
	}
	flags = UnpackBools(b, 8)
	expected := []bool{true, false, true, false, false, true, false, false}
	for i := range expected {
		if flags[i] != expected[i] {
			t.Errorf("flag %d: expected %t, got %t", i, expected[i], flags[i])
		}
	}
}
