package swse

import (
	"unicode/utf8"

	"github.com/swsel/structure"
	"github.com/swsel/structure/errors"
	"github.com/swsel/structure/wire"
)

// SettingsCodec encodes and decodes the type settings of one block type. Type
// settings are the last part of a block's metadata.
type SettingsCodec interface {
	// EncodeSettings writes s, which may be nil or of an unexpected type, in
	// which case the codec writes its empty settings.
	EncodeSettings(w *wire.Writer, s structure.TypeSettings) (failed bool)
	// DecodeSettings reads settings.
	DecodeSettings(r *wire.Reader) (s structure.TypeSettings, failed bool)
}

// Settings maps block IDs to the codecs of their type settings. Block types
// without a codec have no type settings.
type Settings struct {
	codecs map[uint8]SettingsCodec
}

// NewSettings returns an empty registry.
func NewSettings() *Settings {
	return &Settings{codecs: map[uint8]SettingsCodec{}}
}

// DefaultSettings returns a new registry containing the codecs of the known
// block types.
func DefaultSettings() *Settings {
	return NewSettings().Register(structure.MathBlockID, MathBlockCodec{})
}

// Register associates a codec with a block ID, replacing any existing codec. A
// nil codec removes the association. Returns s.
func (s *Settings) Register(id uint8, codec SettingsCodec) *Settings {
	if codec == nil {
		delete(s.codecs, id)
		return s
	}
	s.codecs[id] = codec
	return s
}

// Codec returns the codec for a block ID, or nil if there is none.
func (s *Settings) Codec(id uint8) SettingsCodec {
	if s == nil {
		return nil
	}
	return s.codecs[id]
}

// builtinSettings is used by encoders and decoders without a registry. It is
// never modified.
var builtinSettings = DefaultSettings()

// MathBlockCodec encodes the settings of a math block: the function as a
// string with a 16-bit length, followed by the incoming order and the slots,
// each with an 8-bit length.
//
// Nil settings encode as an empty MathBlock. An empty MathBlock decodes as nil,
// so a math block without settings keeps none.
type MathBlockCodec struct{}

func (MathBlockCodec) EncodeSettings(w *wire.Writer, s structure.TypeSettings) (failed bool) {
	m, _ := s.(*structure.MathBlock)
	if m == nil {
		m = &structure.MathBlock{}
	}
	if wire.WriteVec[uint16](w, []byte(m.Function)) {
		return true
	}
	if wire.WriteVec[uint8](w, m.IncomingOrder) {
		return true
	}
	return wire.WriteVec[uint8](w, m.Slots)
}

func (MathBlockCodec) DecodeSettings(r *wire.Reader) (s structure.TypeSettings, failed bool) {
	var m structure.MathBlock
	var fn []byte
	if wire.ReadVec[uint16](r, &fn) {
		return nil, true
	}
	if !utf8.Valid(fn) {
		return nil, r.Add(0, errors.ErrInvalidUTF8)
	}
	m.Function = string(fn)
	if wire.ReadVec[uint8](r, &m.IncomingOrder) {
		return nil, true
	}
	if wire.ReadVec[uint8](r, &m.Slots) {
		return nil, true
	}
	if m.Function == "" && m.IncomingOrder == nil && m.Slots == nil {
		return nil, false
	}
	return &m, false
}
