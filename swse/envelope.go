package swse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	lz4 "github.com/bkaradzic/go-lz4"
	"github.com/klauspost/compress/zstd"
	"github.com/swsel/structure/wire"
	"golang.org/x/crypto/blake2b"
)

// Compression is the method used to compress the content of an envelope.
//
// An envelope wraps a stream for storage. It is laid out as the magic
// "SWSZ", the method as a byte, the uncompressed length as a uint32, the
// BLAKE2b-256 digest of the uncompressed stream, the compressed length as a
// uint32, and the compressed bytes.
type Compression uint8

const (
	// None writes the stream as-is, without an envelope.
	None Compression = iota
	// LZ4 compresses the stream with LZ4 block compression.
	LZ4
	// Zstd compresses the stream with Zstandard.
	Zstd
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

const envelopeMagic = "SWSZ"

func compress(method Compression, raw []byte) ([]byte, error) {
	switch method {
	case None:
		return raw, nil
	case LZ4:
		var data []byte
		data, err := lz4.Encode(data, raw)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		// lz4 prepends the uncompressed length, which the envelope already
		// holds.
		return data[4:], nil
	case Zstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	}
	return nil, ErrUnknownCompression(method)
}

func decompress(method Compression, payload []byte, n int) ([]byte, error) {
	switch method {
	case None:
		return payload, nil
	case LZ4:
		// lz4 requires the uncompressed length before the compressed data.
		data := make([]byte, len(payload)+4)
		binary.LittleEndian.PutUint32(data, uint32(n))
		copy(data[4:], payload)
		raw := make([]byte, n)
		raw, err := lz4.Decode(raw, data)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return raw, nil
	case Zstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(n)+1))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		raw, err := dec.DecodeAll(payload, make([]byte, 0, n))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return raw, nil
	}
	return nil, ErrUnknownCompression(method)
}

// writeEnvelope writes raw to w within an envelope.
func writeEnvelope(w io.Writer, method Compression, raw []byte) error {
	payload, err := compress(method, raw)
	if err != nil {
		return err
	}
	sum := blake2b.Sum256(raw)

	fw := wire.NewWriter(w)
	fw.Bytes([]byte(envelopeMagic))
	wire.WriteNum(fw, uint8(method))
	wire.WriteLength[uint32](fw, len(raw))
	fw.Bytes(sum[:])
	wire.WriteLength[uint32](fw, len(payload))
	fw.Bytes(payload)
	_, err = fw.End()
	return err
}

// readEnvelope reads an envelope from r, returning the uncompressed stream.
func readEnvelope(r io.Reader, limit int) (raw []byte, method Compression, err error) {
	fr := wire.NewReader(r)
	fr.Limit = limit

	var magic [len(envelopeMagic)]byte
	var sum [blake2b.Size256]byte
	var rawLen, payloadLen int
	if fr.Bytes(magic[:]) ||
		wire.ReadNum(fr, (*uint8)(&method)) ||
		wire.ReadLength[uint32](fr, 1, &rawLen) ||
		fr.Bytes(sum[:]) ||
		wire.ReadLength[uint32](fr, 1, &payloadLen) {
		return nil, method, decodeError(fr, nil)
	}
	if string(magic[:]) != envelopeMagic {
		return nil, method, decodeError(fr, fmt.Errorf("bad magic %q", magic[:]))
	}
	if method == None && payloadLen != rawLen {
		return nil, method, decodeError(fr, ErrEnvelopeLength)
	}
	payload := make([]byte, payloadLen)
	if fr.Bytes(payload) {
		return nil, method, decodeError(fr, nil)
	}

	raw, err = decompress(method, payload, rawLen)
	if err != nil {
		return nil, method, err
	}
	if len(raw) != rawLen {
		return nil, method, ErrEnvelopeLength
	}
	if got := blake2b.Sum256(raw); !bytes.Equal(got[:], sum[:]) {
		return nil, method, ErrEnvelopeDigest
	}
	return raw, method, nil
}
