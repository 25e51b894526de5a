package engine

// segment is a contiguous extent of a source file, either data or a
// hole.
type segment struct {
	offset int64
	length int64
	data   bool
}

// hasHoles reports whether any extent is a hole. Dense files take the
// fast copy paths instead.
func hasHoles(segs []segment) bool {
	for _, seg := range segs {
		if !seg.data {
			return true
		}
	}
	return false
}

func denseLayout(size int64) []segment {
	return []segment{{offset: 0, length: size, data: true}}
}
