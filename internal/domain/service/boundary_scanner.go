package service

import (
	"strings"
	"unicode/utf8"

	"luascan/internal/domain/entity"
)

// BoundaryScanner finds function definitions and their extents by walking
// the source one byte at a time. Every bare end closes the innermost open
// function frame; no other block keywords are tracked.
type BoundaryScanner struct {
	signature Matcher
	closing   Matcher
	builder   *FunctionDescriptorBuilder
}

// NewBoundaryScanner creates a scanner with the default matchers.
func NewBoundaryScanner() *BoundaryScanner {
	return NewBoundaryScannerWithMatchers(NewSignatureMatcher(), NewEndMatcher())
}

// NewBoundaryScannerWithMatchers creates a scanner with custom matchers.
func NewBoundaryScannerWithMatchers(signature, closing Matcher) *BoundaryScanner {
	return &BoundaryScanner{
		signature: signature,
		closing:   closing,
		builder:   NewFunctionDescriptorBuilder(),
	}
}

// scanState is the state of one Parse call. The cursor is shared by every
// frame of the descent and, like match offsets, counts bytes. Functions
// record character offsets, so runes are counted up to the last match.
type scanState struct {
	src        string
	cursor     int
	tree       *entity.FunctionTree
	byteStarts []int // indexed by FunctionID
	counted    int
	chars      int
}

// charOffset converts a byte offset into a character offset. Offsets must not
// decrease between calls.
func (st *scanState) charOffset(byteOffset int) int {
	st.chars += utf8.RuneCountInString(st.src[st.counted:byteOffset])
	st.counted = byteOffset
	return st.chars
}

// Parse builds the function tree of src. Malformed input never fails:
// unterminated functions are kept unclosed, and a stray end at the top level
// ends the scan.
func (s *BoundaryScanner) Parse(src string) *entity.FunctionTree {
	state := &scanState{src: src, tree: entity.NewFunctionTree()}
	roots := s.scanFrame(state, nil)
	state.tree.SetRoots(roots)
	return state.tree
}

// scanFrame scans the body of parent (nil for the top level) and returns the
// functions completed at this level. It returns with the cursor on the end
// that closes parent, or at end of input.
func (s *BoundaryScanner) scanFrame(state *scanState, parent *entity.LuaFunction) []*entity.LuaFunction {
	completed := make([]*entity.LuaFunction, 0)
	var open *entity.LuaFunction

	for state.cursor < len(state.src) {
		if match, ok := s.signature.Match(state.src, state.cursor); ok {
			fn := s.builder.Build(state.tree, match, state.charOffset(match.Start))
			state.byteStarts = append(state.byteStarts, match.Start)
			state.tree.SetParent(fn, parent)
			state.cursor = match.End

			children := s.scanFrame(state, fn)
			state.tree.SetChildren(fn, children)
			open = fn
			continue
		}

		if match, ok := s.closing.Match(state.src, state.cursor); ok {
			if open == nil {
				// Leave the end for the enclosing frame.
				return completed
			}

			source := state.src[state.byteStarts[open.ID()]:match.End]
			state.tree.Close(open, strings.TrimSpace(source))
			completed = append(completed, open)
			open = nil
			state.cursor = match.End
			continue
		}

		state.cursor++
	}

	if open != nil {
		completed = append(completed, open)
	}
	return completed
}
