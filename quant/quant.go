// Package quant implements the lossy fixed-point encodings of the structure
// format: block rotations packed into 16-bit steps, and colors packed into
// RGB565.
package quant

import "math"

// RotationSteps is the number of steps a full turn is divided into.
const RotationSteps = math.MaxUint16

// RotationStep is the size of one rotation step in degrees, which bounds the
// error of a packed rotation component.
const RotationStep = 360.0 / RotationSteps

// PackRotation packs three rotation angles, in degrees, into 16-bit steps.
// Each angle is normalized into [0, 360) before scaling; non-finite angles
// pack to 0. Arithmetic is single precision, so an angle just below a full
// turn may pack to RotationSteps, which unpacks to 360.
func PackRotation(deg [3]float32) (q [3]uint16) {
	for i, a := range deg {
		q[i] = packAngle(a)
	}
	return q
}

// rotationScale and rotationInv are rounded to single precision once, as
// stored streams expect.
var (
	rotationScale = float32(RotationSteps / 360.0)
	rotationInv   = float32(RotationStep)
)

func packAngle(deg float32) uint16 {
	// Mod is exact, so the float64 detour does not change the result.
	a := float32(math.Mod(float64(deg), 360))
	if a < 0 {
		a += 360
	}
	s := a * rotationScale
	if s != s || math.IsInf(float64(s), 0) {
		return 0
	}
	s = max(0, min(s, RotationSteps))
	return uint16(math.Round(float64(s)))
}

// UnpackRotation returns the angles, in degrees, of a packed rotation.
func UnpackRotation(q [3]uint16) (deg [3]float32) {
	for i, v := range q {
		deg[i] = float32(v) * rotationInv
	}
	return deg
}

// PackColor packs 8-bit channels into RGB565: 5 bits of red, 6 bits of green,
// and 5 bits of blue, red in the high bits.
func PackColor(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b&0xF8)>>3
}

// UnpackColor returns the 8-bit channels of an RGB565 color. The low bits
// lost by packing are zero.
func UnpackColor(c uint16) (r, g, b uint8) {
	r = uint8(c>>8) & 0xF8
	g = uint8(c>>3) & 0xFC
	b = uint8(c<<3) & 0xF8
	return r, g, b
}
