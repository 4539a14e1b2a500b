package swse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/swsel/structure"
	"github.com/swsel/structure/errors"
	"github.com/swsel/structure/wire"
)

// Decoder decodes a stream of bytes into a structure.Building.
type Decoder struct {
	// Settings selects the codecs used for type settings. If nil, the codecs
	// of DefaultSettings are used.
	Settings *Settings

	// Limit is the ceiling, in bytes, for any single allocation caused by a
	// length read from the stream. Zero uses wire.DefaultLimit.
	Limit int

	// If NoEnvelope is true, then the decoder will not attempt to detect and
	// open a compressed envelope.
	NoEnvelope bool

	// Logger, if not nil, receives progress messages.
	Logger *log.Logger
}

func (d Decoder) settings() *Settings {
	if d.Settings == nil {
		return builtinSettings
	}
	return d.Settings
}

// Decode reads data from r and decodes it into a building.
func (d Decoder) Decode(r io.Reader) (b *structure.Building, warn, err error) {
	if r == nil {
		return nil, nil, errors.New("nil reader")
	}

	f, w, err := d.decode(r)
	warn = errors.Union(warn, w)
	if err != nil {
		return nil, warn, err
	}

	codec := codec{Settings: d.settings(), Logger: d.Logger}
	b, w, err = codec.Decode(f)
	warn = errors.Union(warn, w)
	if err != nil {
		return nil, warn, CodecError{Cause: err}
	}
	return b, warn, nil
}

// Decompress decodes the format from r, then encodes it to w without an
// envelope, in the same version.
func (d Decoder) Decompress(w io.Writer, r io.Reader) (warn, err error) {
	if r == nil {
		return nil, errors.New("nil reader")
	}
	if w == nil {
		return nil, errors.New("nil writer")
	}

	f, warn, err := d.decode(r)
	if err != nil {
		return warn, err
	}
	if _, err := f.WriteTo(w, d.settings()); err != nil {
		return warn, err
	}
	return warn, nil
}

// Dump writes to w a readable representation of the format decoded from r.
func (d Decoder) Dump(w io.Writer, r io.Reader) (warn, err error) {
	if r == nil {
		return nil, errors.New("nil reader")
	}
	if w == nil {
		return nil, errors.New("nil writer")
	}

	f, warn, err := d.decode(r)
	if err != nil {
		return warn, err
	}

	bw := bufio.NewWriter(w)
	dumpModel(bw, f)
	return warn, bw.Flush()
}

// decodeError returns the error of r as a DataError, adding err if it is not
// nil. It is only called after a read has failed; a failure with no recorded
// error can only come from a settings codec.
func decodeError(r *wire.Reader, err error) error {
	r.Add(0, err)
	if r.Err() == nil {
		r.Add(0, ErrSettingsCodec)
	}
	err = r.Err()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("%w: %w", errors.ErrTruncatedStream, err)
	}
	return DataError{Offset: r.N(), Cause: err}
}

// recordError is like decodeError, annotating the error with the record
// being read.
func recordError(r *wire.Reader, kind string, index int) error {
	err := decodeError(r, nil)
	if err, ok := err.(DataError); ok {
		err.Cause = RecordError{Kind: kind, Index: index, Cause: err.Cause}
		return err
	}
	return err
}

// decode parses the format, opening the envelope if there is one.
func (d Decoder) decode(r io.Reader) (f *formatModel, warn, err error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if !d.NoEnvelope {
		if magic, _ := br.Peek(len(envelopeMagic)); string(magic) == envelopeMagic {
			raw, method, err := readEnvelope(br, d.Limit)
			if err != nil {
				return nil, nil, EnvelopeError{Cause: err}
			}
			if d.Logger != nil {
				d.Logger.Printf("opened %s envelope: %d bytes", method, len(raw))
			}
			src = bytes.NewReader(raw)
		}
	}

	fr := wire.NewReader(src)
	fr.Limit = d.Limit
	f = &formatModel{}
	if err := f.ReadFrom(fr, d.settings()); err != nil {
		return nil, nil, err
	}

	var extra [1]byte
	if n, _ := io.ReadFull(src, extra[:]); n > 0 {
		warn = DataError{Offset: fr.N(), Cause: errTrailingData}
	}
	return f, warn, nil
}
