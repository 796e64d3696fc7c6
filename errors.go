package lattice

import "errors"

// Sentinel errors returned by registry and project operations. Callers
// should test with errors.Is; operations wrap these with path and id
// context.
var (
	// ErrInvalidRoot means the registration root does not exist or is not
	// a directory.
	ErrInvalidRoot = errors.New("invalid project root")

	// ErrNotRegistered means no project is registered for the given root.
	ErrNotRegistered = errors.New("project not registered")

	// ErrMissingProject means the referenced project partition does not exist.
	ErrMissingProject = errors.New("project does not exist")

	// ErrNodeNotFound means the requested node id is not in the index.
	ErrNodeNotFound = errors.New("node not found")

	// ErrFileNotIndexed means the requested file has never been indexed.
	ErrFileNotIndexed = errors.New("file not indexed")

	// ErrMalformedRequest means a query parameter is outside its valid
	// range, such as a capsule depth below one or an empty observation.
	ErrMalformedRequest = errors.New("malformed request")
)
