package lattice

import "github.com/jward/lattice/internal/store"

// Public type aliases for internal store types used across the Project API.
// These are Go type aliases (=), identical to the internal types at compile
// time, so external consumers never import internal packages.

type Node = store.Node
type Edge = store.Edge
type Observation = store.Observation
type IndexedFile = store.IndexedFile
type IndexError = store.IndexError

// Node kinds.
const (
	KindModule   = "module"
	KindClass    = "class"
	KindFunction = "function"
	KindMethod   = "method"
)

// Edge kinds.
const (
	EdgeCalls    = "calls"
	EdgeImports  = "imports"
	EdgeInherits = "inherits"
)

// Observation sources.
const (
	SourceUser  = "user"
	SourceAgent = "claude"
	SourceGit   = "git"
	SourceHook  = "hook"
)
