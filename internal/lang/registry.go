package lang

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// adapters is the fixed set of supported languages. Adapters are
// stateless, so sharing instances across goroutines is safe.
var adapters = []Adapter{
	&GoAdapter{},
	&PythonAdapter{},
	&JavaScriptAdapter{},
}

var byExtension = func() map[string]Adapter {
	m := make(map[string]Adapter)
	for _, a := range adapters {
		for _, ext := range a.Extensions() {
			m[ext] = a
		}
	}
	return m
}()

// ForFile returns the adapter for a file path based on its extension, or
// nil when no adapter handles it.
func ForFile(path string) Adapter {
	return byExtension[strings.ToLower(filepath.Ext(path))]
}

// Supported reports whether any adapter handles the file.
func Supported(path string) bool {
	return ForFile(path) != nil
}

// Languages returns the names of all registered languages.
func Languages() []string {
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Language())
	}
	return names
}

// nodeText returns the source text covered by a tree-sitter node.
func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

// span fills line/byte position fields from a node. Lines are 1-based.
func span(n *sitter.Node) (startLine, endLine, startByte int) {
	return int(n.StartPoint().Row) + 1, int(n.EndPoint().Row) + 1, int(n.StartByte())
}

// stripQuotes removes a single layer of matching string quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		for _, q := range []string{`"`, `'`, "`"} {
			if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

// qualify joins a parent qualified path and a name with a dot.
func qualify(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
