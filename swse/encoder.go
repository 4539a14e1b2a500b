package swse

import (
	"bytes"
	"io"
	"log"

	"github.com/swsel/structure"
	"github.com/swsel/structure/errors"
)

// Encoder encodes a structure.Building into a stream of bytes.
type Encoder struct {
	// Version is the version of the format to encode. Versions 6 and later
	// deduplicate rotations and colors.
	Version uint8

	// Settings selects the codecs used for type settings. If nil, the codecs
	// of DefaultSettings are used.
	Settings *Settings

	// Compression, if not None, wraps the stream in a compressed envelope.
	Compression Compression

	// Logger, if not nil, receives progress messages.
	Logger *log.Logger
}

func (e Encoder) settings() *Settings {
	if e.Settings == nil {
		return builtinSettings
	}
	return e.Settings
}

// Encode formats b according to the format, and writes it to w. References
// to blocks outside of b are dropped and returned as warnings.
func (e Encoder) Encode(w io.Writer, b *structure.Building) (warn, err error) {
	if w == nil {
		return nil, errors.New("nil writer")
	}
	if b == nil {
		return nil, errors.New("nil building")
	}

	codec := codec{Version: e.Version, Settings: e.settings(), Logger: e.Logger}
	f, warn, err := codec.Encode(b)
	if err != nil {
		return warn, CodecError{Cause: err}
	}
	return warn, e.encode(w, f)
}

func (e Encoder) encode(w io.Writer, f *formatModel) error {
	if e.Compression == None {
		if n, err := f.WriteTo(w, e.settings()); err != nil {
			return DataError{Offset: n, Cause: err}
		}
		return nil
	}

	var buf bytes.Buffer
	if n, err := f.WriteTo(&buf, e.settings()); err != nil {
		return DataError{Offset: n, Cause: err}
	}
	if err := writeEnvelope(w, e.Compression, buf.Bytes()); err != nil {
		return EnvelopeError{Cause: err}
	}
	if e.Logger != nil {
		e.Logger.Printf("wrote %s envelope: %d bytes", e.Compression, buf.Len())
	}
	return nil
}
