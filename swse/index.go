package swse

import (
	"fmt"

	"github.com/swsel/structure"
	"github.com/swsel/structure/errors"
)

// maxIndex is the size of the index space of roots and blocks.
const maxIndex = 1 << 16

// index assigns consecutive indices to the roots and blocks of a building, in
// tree order.
type index struct {
	roots  map[*structure.Root]int
	blocks []*structure.Block
	ids    map[*structure.Block]int
	// owner holds the root index of each block.
	owner []int
}

func newIndex(b *structure.Building) (*index, error) {
	_, n := b.Count()
	idx := &index{
		roots:  make(map[*structure.Root]int, len(b.Roots)),
		blocks: make([]*structure.Block, 0, n),
		ids:    make(map[*structure.Block]int, n),
		owner:  make([]int, 0, n),
	}
	for r, root := range b.Roots {
		if root == nil {
			return nil, fmt.Errorf("%w: root #%d is nil", errors.ErrFormatViolation, r)
		}
		if _, ok := idx.roots[root]; ok {
			return nil, fmt.Errorf("%w: root #%d appears more than once", errors.ErrFormatViolation, r)
		}
		if len(idx.roots) >= maxIndex {
			return nil, errors.IndexSpaceError{Kind: "root", Count: maxIndex}
		}
		idx.roots[root] = r
		for _, block := range root.Blocks {
			if block == nil {
				return nil, fmt.Errorf("%w: root #%d has a nil block", errors.ErrFormatViolation, r)
			}
			if j, ok := idx.ids[block]; ok {
				return nil, fmt.Errorf("%w: block #%d appears more than once", errors.ErrFormatViolation, j)
			}
			if len(idx.blocks) >= maxIndex {
				return nil, errors.IndexSpaceError{Kind: "block", Count: maxIndex}
			}
			idx.ids[block] = len(idx.blocks)
			idx.blocks = append(idx.blocks, block)
			idx.owner = append(idx.owner, r)
		}
	}
	return idx, nil
}

// block returns the index of b, or false if b is not part of the building.
func (idx *index) block(b *structure.Block) (int, bool) {
	i, ok := idx.ids[b]
	return i, ok
}
