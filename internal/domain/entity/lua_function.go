package entity

// FunctionID identifies a function inside the FunctionTree that owns it.
type FunctionID int

// NoParent is the parent id of root-level functions.
const NoParent FunctionID = -1

// Argument is a single declared function parameter.
type Argument struct {
	Name string
}

// LuaFunction represents one function definition discovered in Lua source.
// Instances are owned by a FunctionTree and mutated only through it.
type LuaFunction struct {
	id          FunctionID
	name        string
	arguments   []Argument
	sourceText  string
	startOffset int
	isLocal     bool
	parent      FunctionID
	children    []FunctionID
	depth       int
	closed      bool
}

// ID returns the function id within its tree.
func (f *LuaFunction) ID() FunctionID {
	return f.id
}

// Name returns the declared function name.
func (f *LuaFunction) Name() string {
	return f.name
}

// Arguments returns a copy of the declared arguments in declaration order.
func (f *LuaFunction) Arguments() []Argument {
	args := make([]Argument, len(f.arguments))
	copy(args, f.arguments)
	return args
}

// ArgumentNames returns the argument names in declaration order.
func (f *LuaFunction) ArgumentNames() []string {
	names := make([]string, 0, len(f.arguments))
	for _, arg := range f.arguments {
		names = append(names, arg.Name)
	}
	return names
}

// SourceText returns the trimmed source of the function, from its signature
// through its closing end. It is empty for unterminated functions.
func (f *LuaFunction) SourceText() string {
	return f.sourceText
}

// StartOffset returns the zero-based character offset where the signature
// match began. Characters are Unicode code points, not bytes.
func (f *LuaFunction) StartOffset() int {
	return f.startOffset
}

// IsLocal reports whether the function was declared with "local function".
func (f *LuaFunction) IsLocal() bool {
	return f.isLocal
}

// ParentID returns the enclosing function id, or NoParent for roots.
func (f *LuaFunction) ParentID() FunctionID {
	return f.parent
}

// IsRoot reports whether the function has no enclosing function.
func (f *LuaFunction) IsRoot() bool {
	return f.parent == NoParent
}

// ChildIDs returns the ids of nested functions in resolution order.
func (f *LuaFunction) ChildIDs() []FunctionID {
	ids := make([]FunctionID, len(f.children))
	copy(ids, f.children)
	return ids
}

// Depth returns 0 for roots, otherwise the parent's depth plus one.
func (f *LuaFunction) Depth() int {
	return f.depth
}

// IsClosed reports whether the function's closing end was found.
func (f *LuaFunction) IsClosed() bool {
	return f.closed
}

// FunctionTree is an arena of LuaFunction nodes. Children are owned by the
// tree and referenced by id; the parent relation is a non-owning id lookup.
type FunctionTree struct {
	functions []*LuaFunction
	roots     []FunctionID
}

// NewFunctionTree creates an empty tree.
func NewFunctionTree() *FunctionTree {
	return &FunctionTree{
		functions: make([]*LuaFunction, 0),
		roots:     make([]FunctionID, 0),
	}
}

// AddFunction allocates a new open root-level function in the arena.
func (t *FunctionTree) AddFunction(name string, isLocal bool, arguments []Argument, startOffset int) *LuaFunction {
	args := make([]Argument, len(arguments))
	copy(args, arguments)

	fn := &LuaFunction{
		id:          FunctionID(len(t.functions)),
		name:        name,
		arguments:   args,
		startOffset: startOffset,
		isLocal:     isLocal,
		parent:      NoParent,
		children:    make([]FunctionID, 0),
	}
	t.functions = append(t.functions, fn)
	return fn
}

// SetParent assigns the enclosing function (nil for none) and recomputes the
// depth of fn and everything below it.
func (t *FunctionTree) SetParent(fn, parent *LuaFunction) {
	if parent == nil {
		fn.parent = NoParent
	} else {
		fn.parent = parent.id
	}
	t.refreshDepth(fn)
}

// SetChildren replaces the nested functions of fn, re-parenting each child.
func (t *FunctionTree) SetChildren(fn *LuaFunction, children []*LuaFunction) {
	fn.children = make([]FunctionID, 0, len(children))
	for _, child := range children {
		fn.children = append(fn.children, child.id)
		if child.parent != fn.id {
			t.SetParent(child, fn)
		}
	}
}

// Close records the resolved source text of fn and marks it complete.
func (t *FunctionTree) Close(fn *LuaFunction, sourceText string) {
	fn.sourceText = sourceText
	fn.closed = true
}

// SetRoots records the root-level functions in resolution order.
func (t *FunctionTree) SetRoots(roots []*LuaFunction) {
	t.roots = make([]FunctionID, 0, len(roots))
	for _, fn := range roots {
		t.roots = append(t.roots, fn.id)
	}
}

// Len returns the number of functions in the arena, including functions that
// are not reachable from a root.
func (t *FunctionTree) Len() int {
	return len(t.functions)
}

// Function looks a function up by id.
func (t *FunctionTree) Function(id FunctionID) (*LuaFunction, bool) {
	if id < 0 || int(id) >= len(t.functions) {
		return nil, false
	}
	return t.functions[id], true
}

// Roots returns the root-level functions in order.
func (t *FunctionTree) Roots() []*LuaFunction {
	return t.lookup(t.roots)
}

// Parent returns the enclosing function of fn.
func (t *FunctionTree) Parent(fn *LuaFunction) (*LuaFunction, bool) {
	if fn.parent == NoParent {
		return nil, false
	}
	return t.Function(fn.parent)
}

// Children returns the nested functions of fn in resolution order.
func (t *FunctionTree) Children(fn *LuaFunction) []*LuaFunction {
	return t.lookup(fn.children)
}

// Walk visits every function reachable from the roots in pre-order. Returning
// false from visit skips the subtree of that function.
func (t *FunctionTree) Walk(visit func(fn *LuaFunction) bool) {
	for _, root := range t.Roots() {
		t.walk(root, visit)
	}
}

// Unterminated returns reachable functions whose closing end was never found.
func (t *FunctionTree) Unterminated() []*LuaFunction {
	var open []*LuaFunction
	t.Walk(func(fn *LuaFunction) bool {
		if !fn.closed {
			open = append(open, fn)
		}
		return true
	})
	return open
}

func (t *FunctionTree) walk(fn *LuaFunction, visit func(fn *LuaFunction) bool) {
	if !visit(fn) {
		return
	}
	for _, child := range t.Children(fn) {
		t.walk(child, visit)
	}
}

func (t *FunctionTree) lookup(ids []FunctionID) []*LuaFunction {
	out := make([]*LuaFunction, 0, len(ids))
	for _, id := range ids {
		if fn, ok := t.Function(id); ok {
			out = append(out, fn)
		}
	}
	return out
}

func (t *FunctionTree) refreshDepth(fn *LuaFunction) {
	fn.depth = 0
	if parent, ok := t.Parent(fn); ok {
		fn.depth = parent.depth + 1
	}
	for _, child := range t.Children(fn) {
		t.refreshDepth(child)
	}
}
