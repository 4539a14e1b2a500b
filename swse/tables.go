package swse

// dict accumulates distinct values in order of first appearance.
type dict[K comparable] struct {
	index  map[K]uint16
	values []K
}

// add returns the index of v, adding it if necessary. The number of distinct
// values must not exceed the number of blocks.
func (d *dict[K]) add(v K) uint16 {
	if i, ok := d.index[v]; ok {
		return i
	}
	if d.index == nil {
		d.index = map[K]uint16{}
	}
	i := uint16(len(d.values))
	d.index[v] = i
	d.values = append(d.values, v)
	return i
}

// tables holds the rotation and color dictionaries of a stream.
type tables struct {
	rotations dict[[3]uint16]
	colors    dict[uint16]
}

// lookup returns the entry of values at i, or false if i is out of range.
func lookup[K any](values []K, i uint16) (v K, ok bool) {
	if int(i) >= len(values) {
		return v, false
	}
	return values[i], true
}
