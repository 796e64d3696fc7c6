// Package lang holds the per-language tree-sitter adapters that turn raw
// source text into a structural summary: declared entities (functions,
// classes, methods), the references their bodies make, and the file's
// imports. Adapters extract facts only; qualification against the module
// id and resolution into graph edges happen in the engine.
package lang

import "context"

// Entity is a declared structural element within one file. Qualified is
// the dotted path below the file's module node ("Parser.parse"); Parent is
// the Qualified of the containing entity, or "" for module level.
type Entity struct {
	Kind      string // function | class | method
	Name      string
	Qualified string
	Parent    string
	Signature string
	Docstring string
	StartLine int
	EndLine   int
	StartByte int
}

// Ref is a reference made from inside an entity body (or module level when
// Owner is ""). Target is the identifier text as written; resolution
// against the index is the graph builder's job.
type Ref struct {
	Owner  string // Qualified of the owning entity, "" = module level
	Target string
	Kind   string // calls | inherits
	Line   int
}

// Import is an import/include statement at file level.
type Import struct {
	Target string
	Line   int
}

// FileSummary is the complete structural extraction for one file.
type FileSummary struct {
	Language string
	Entities []Entity
	Refs     []Ref
	Imports  []Import
}

// Adapter parses one language. Parse must be safe for concurrent use;
// adapters create a fresh tree-sitter parser per call.
type Adapter interface {
	Language() string
	Extensions() []string
	Parse(ctx context.Context, content []byte) (*FileSummary, error)
}
