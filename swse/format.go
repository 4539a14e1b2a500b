// Package swse implements a decoder and encoder for the binary structure
// format.
//
// A stream begins with a version byte, which selects the layout of everything
// that follows. The stream then contains a table of root records and a table
// of block records. Blocks refer to each other and to their owning root by
// index within these tables. Versions from 6 onward also carry dictionaries of
// the distinct rotations and colors of the blocks, which block records refer
// to by index instead of repeating the values.
//
// The easiest way to decode and encode streams is through the functions
// Deserialize and Serialize. These decode and encode directly between byte
// streams and structure.Building values. The Decoder and Encoder types give
// control over versions, type settings, compression, and warnings.
package swse

import (
	"io"

	"github.com/swsel/structure"
)

const (
	// MaxVersion is the newest version of the format known by the codec.
	MaxVersion = 8

	// LatestVersion is the version written by Serialize.
	LatestVersion = MaxVersion

	// tableVersion is the first version that carries dictionaries.
	tableVersion = 6
)

// layout describes how a version of the format arranges its records.
type layout struct {
	// Tables indicates that block rotations and colors are stored as indices
	// into dictionaries.
	Tables bool
}

// layoutOf returns the layout of a version.
func layoutOf(version uint8) (layout, error) {
	if version > MaxVersion {
		return layout{}, ErrUnrecognizedVersion(version)
	}
	return layout{Tables: version >= tableVersion}, nil
}

// Block record flags. A set "absent" flag indicates that the corresponding
// field is omitted.
const (
	flagName        = 1 << iota // Name is present.
	flagConnections             // Connections are present.
	flagNoMetadata              // Metadata is absent.
	flagNoColor                 // Color is absent.
	flagNoLoad                  // Load is absent.
	flagNoLegacy                // Legacy integer list is absent.
	flagRawCurrent              // Current enable state is not scaled.
	flagReserved                // Always zero.
)

// vectorsMarker is the metadata control word that signals the presence of
// vectors. Without vectors, the control word is the number of fields, which
// must be less than the marker.
const vectorsMarker = 0x7FFF

// Serialize encodes b to w with the latest version of the format. Warnings are
// discarded.
func Serialize(w io.Writer, b *structure.Building) error {
	_, err := Encoder{Version: LatestVersion}.Encode(w, b)
	return err
}

// Deserialize decodes a building from r. Warnings are discarded.
func Deserialize(r io.Reader) (*structure.Building, error) {
	b, _, err := Decoder{}.Decode(r)
	return b, err
}
