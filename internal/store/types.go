package store

import "time"

// Node is a structural element extracted from a source file: a module,
// class, function, or method. The ID is the dotted qualified name derived
// from the file path and nesting, so it is stable across unrelated edits.
type Node struct {
	ID        string
	Kind      string // module | class | function | method
	Name      string
	FilePath  string
	StartLine int
	EndLine   int
	StartByte int
	ParentID  *string
	Signature string
	Docstring string
	FileHash  string
	IndexedAt time.Time
}

// Edge is a directed dependency between nodes. TargetID may name an
// unindexed entity; such edges are kept with Resolved=false rather than
// dropped. Ambiguous edges carry one row per candidate target.
type Edge struct {
	ID        int64
	SourceID  string
	TargetID  string
	Kind      string // calls | imports | inherits
	FilePath  string
	Line      int
	Resolved  bool
	Ambiguous bool
}

// Observation is an immutable, timestamped, tagged note scoped to the
// project. There is no update or delete path.
type Observation struct {
	ID        int64
	Content   string
	NodeID    *string
	Tags      []string
	Source    string
	CreatedAt time.Time
}

// IndexedFile records the content hash and index time for a file, used to
// detect whether a reindex is needed.
type IndexedFile struct {
	FilePath  string
	FileHash  string
	IndexedAt time.Time
	NodeCount int
}

// IndexError records a per-file parse failure. Non-fatal: the rest of the
// project indexes normally.
type IndexError struct {
	FilePath   string
	Message    string
	OccurredAt time.Time
}

// Stats holds row counts for the Status boundary operation.
type Stats struct {
	Nodes        int
	Edges        int
	Observations int
	IndexedFiles int
	IndexErrors  int
}
