// Package lattice is a local, project-scoped code-context engine. It indexes
// a codebase into a structural graph of modules, classes, functions, and
// methods with dependency edges, answers bounded-context queries over that
// graph, and keeps an append-only observation log that feeds a budgeted
// resume digest.
package lattice
