package valueobject

import "unicode/utf8"

// MaxUint32 represents the maximum value of a uint32.
const MaxUint32 = ^uint32(0)

// Position represents a zero-based row/column position in source code.
// Column counts characters from the start of the row.
type Position struct {
	Row    uint32 `json:"row"    yaml:"row"`
	Column uint32 `json:"column" yaml:"column"`
}

// PositionAt converts a character offset of src into a Position. Offsets
// past the end of src are clamped to the end.
func PositionAt(src string, offset int) Position {
	var row, column, chars int
	for i := 0; i < len(src) && chars < offset; chars++ {
		r, size := utf8.DecodeRuneInString(src[i:])
		i += size
		if r == '\n' {
			row++
			column = 0
			continue
		}
		column++
	}

	return Position{Row: ClampToUint32(row), Column: ClampToUint32(column)}
}

// ClampToUint32 safely converts an int to uint32 by clamping
// negative values to 0 and values larger than MaxUint32 to MaxUint32.
func ClampToUint32(i int) uint32 {
	if i <= 0 {
		return 0
	}
	if uint64(i) > uint64(MaxUint32) {
		return MaxUint32
	}
	return uint32(i)
}
