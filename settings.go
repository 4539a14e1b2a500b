package structure

// TypeSettings is configuration that only exists for certain types of block.
// Which variant a block carries is selected by the block's ID.
type TypeSettings interface {
	// Copy returns a deep copy of the settings.
	Copy() TypeSettings
}

// MathBlockID is the ID of the math block type.
const MathBlockID = 129

// MathBlock holds the settings of a math block.
type MathBlock struct {
	// Function is the expression evaluated by the block.
	Function string
	// IncomingOrder lists indices of incoming connections, establishing the
	// order of the function's arguments.
	IncomingOrder []uint8
	// Slots lists the indices of active input slots.
	Slots []uint8
}

func (s *MathBlock) Copy() TypeSettings {
	return &MathBlock{
		Function:      s.Function,
		IncomingOrder: append([]uint8(nil), s.IncomingOrder...),
		Slots:         append([]uint8(nil), s.Slots...),
	}
}
