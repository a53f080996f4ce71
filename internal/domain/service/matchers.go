package service

import "regexp"

// Matcher names.
const (
	MatcherSignature = "signature"
	MatcherEnd       = "end"
)

// local function NAME(ARGS)
// function NAME(ARGS)
// NAME = function(ARGS)
var signaturePattern = regexp.MustCompile(
	`^(?:(local)\s+function\s+([A-Za-z_]\w*)|function\s+([A-Za-z_]\w*)|([A-Za-z_]\w*)\s*=\s*function)\s*\(([^)]*)\)`,
)

var endPattern = regexp.MustCompile(`^end\b`)

// MatchResult describes a successful anchored match. Start and End are byte
// offsets into the scanned text, End exclusive.
type MatchResult struct {
	Start        int
	End          int
	IsLocal      bool
	Name         string
	RawArguments string
}

// Matcher tests whether a pattern begins exactly at an offset of src.
type Matcher interface {
	Name() string
	Match(src string, offset int) (MatchResult, bool)
}

// SignatureMatcher recognizes the opening signature of a named function.
type SignatureMatcher struct{}

// NewSignatureMatcher creates an opening-signature matcher.
func NewSignatureMatcher() *SignatureMatcher {
	return &SignatureMatcher{}
}

// Name returns MatcherSignature.
func (m *SignatureMatcher) Name() string { return MatcherSignature }

// Match reports whether a function signature starts at offset.
func (m *SignatureMatcher) Match(src string, offset int) (MatchResult, bool) {
	if !atTokenStart(src, offset) {
		return MatchResult{}, false
	}

	loc := signaturePattern.FindStringSubmatchIndex(src[offset:])
	if loc == nil {
		return MatchResult{}, false
	}

	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return src[offset+loc[2*i] : offset+loc[2*i+1]]
	}

	result := MatchResult{
		Start:        offset,
		End:          offset + loc[1],
		IsLocal:      group(1) != "",
		RawArguments: group(5),
	}
	for _, i := range []int{2, 3, 4} {
		if name := group(i); name != "" {
			result.Name = name
			break
		}
	}

	return result, true
}

// EndMatcher recognizes the bare end keyword.
type EndMatcher struct{}

// NewEndMatcher creates a closing-keyword matcher.
func NewEndMatcher() *EndMatcher {
	return &EndMatcher{}
}

// Name returns MatcherEnd.
func (m *EndMatcher) Name() string { return MatcherEnd }

// Match reports whether an end token starts at offset.
func (m *EndMatcher) Match(src string, offset int) (MatchResult, bool) {
	if !atTokenStart(src, offset) {
		return MatchResult{}, false
	}

	loc := endPattern.FindStringIndex(src[offset:])
	if loc == nil {
		return MatchResult{}, false
	}

	return MatchResult{Start: offset, End: offset + loc[1], Name: "end"}, true
}

// atTokenStart rejects offsets that fall inside an identifier.
func atTokenStart(src string, offset int) bool {
	if offset < 0 || offset >= len(src) {
		return false
	}
	return offset == 0 || !isIdentByte(src[offset-1])
}

func isIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
