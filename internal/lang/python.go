package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonAdapter extracts structural facts from Python source files.
// Classes and functions nest arbitrarily; the qualified path mirrors the
// lexical nesting ("Parser.parse.helper").
type PythonAdapter struct{}

func (p *PythonAdapter) Language() string     { return "python" }
func (p *PythonAdapter) Extensions() []string { return []string{".py"} }

func (p *PythonAdapter) Parse(ctx context.Context, content []byte) (*FileSummary, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	summary := &FileSummary{Language: "python"}
	root := tree.RootNode()
	p.extractDefs(root, content, "", false, summary)
	p.extractImports(root, content, summary)
	p.collectCalls(root, content, "", summary)
	return summary, nil
}

// extractDefs walks a block's children, recording function and class
// definitions. inClass marks whether the enclosing scope is a class body,
// which makes direct function children methods.
func (p *PythonAdapter) extractDefs(block *sitter.Node, src []byte, parent string, inClass bool, out *FileSummary) {
	for i := 0; i < int(block.ChildCount()); i++ {
		child := block.Child(i)
		def, decorators := unwrapDecorated(child, src)

		switch def.Type() {
		case "function_definition":
			nameNode := def.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nodeText(nameNode, src)
			qualified := qualify(parent, name)
			kind := "function"
			if inClass {
				kind = "method"
			}
			body := def.ChildByFieldName("body")
			startLine, endLine, startByte := span(def)
			out.Entities = append(out.Entities, Entity{
				Kind:      kind,
				Name:      name,
				Qualified: qualified,
				Parent:    parent,
				Signature: pySignature(def, src),
				Docstring: pyDocstring(body, src),
				StartLine: startLine,
				EndLine:   endLine,
				StartByte: startByte,
			})
			for _, dec := range decorators {
				out.Refs = append(out.Refs, Ref{
					Owner:  qualified,
					Target: dec,
					Kind:   "calls",
					Line:   startLine,
				})
			}
			if body != nil {
				p.extractDefs(body, src, qualified, false, out)
			}

		case "class_definition":
			nameNode := def.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nodeText(nameNode, src)
			qualified := qualify(parent, name)
			body := def.ChildByFieldName("body")
			startLine, endLine, startByte := span(def)
			out.Entities = append(out.Entities, Entity{
				Kind:      "class",
				Name:      name,
				Qualified: qualified,
				Parent:    parent,
				Signature: pySignature(def, src),
				Docstring: pyDocstring(body, src),
				StartLine: startLine,
				EndLine:   endLine,
				StartByte: startByte,
			})
			if bases := def.ChildByFieldName("superclasses"); bases != nil {
				for j := 0; j < int(bases.NamedChildCount()); j++ {
					arg := bases.NamedChild(j)
					if arg.Type() == "identifier" || arg.Type() == "attribute" {
						out.Refs = append(out.Refs, Ref{
							Owner:  qualified,
							Target: nodeText(arg, src),
							Kind:   "inherits",
							Line:   startLine,
						})
					}
				}
			}
			if body != nil {
				p.extractDefs(body, src, qualified, true, out)
			}
		}
	}
}

// unwrapDecorated returns the inner definition of a decorated_definition
// along with decorator names (call arguments stripped).
func unwrapDecorated(node *sitter.Node, src []byte) (*sitter.Node, []string) {
	if node.Type() != "decorated_definition" {
		return node, nil
	}
	var decorators []string
	inner := node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "decorator":
			text := strings.TrimPrefix(strings.TrimSpace(nodeText(child, src)), "@")
			if idx := strings.IndexByte(text, '('); idx > 0 {
				text = text[:idx]
			}
			decorators = append(decorators, text)
		case "function_definition", "class_definition":
			inner = child
		}
	}
	return inner, decorators
}

// pySignature is the def/class header exactly as written in the source:
// the slice from the definition start through the body colon.
func pySignature(def *sitter.Node, src []byte) string {
	for i := 0; i < int(def.ChildCount()); i++ {
		child := def.Child(i)
		if child.Type() == ":" {
			return string(src[def.StartByte():child.EndByte()])
		}
	}
	// No body colon (broken parse); fall back to the first line.
	text := nodeText(def, src)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimRight(text[:idx], " \t")
	}
	return text
}

// pyDocstring extracts the docstring from the first statement of a block
// if that statement is a bare string.
func pyDocstring(body *sitter.Node, src []byte) string {
	if body == nil || body.Type() != "block" {
		return ""
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		if child.Type() == "expression_statement" {
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				if sub.Type() == "string" {
					raw := nodeText(sub, src)
					for _, q := range []string{`"""`, `'''`} {
						if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 6 {
							return strings.TrimSpace(raw[3 : len(raw)-3])
						}
					}
					return strings.TrimSpace(stripQuotes(raw))
				}
			}
			return ""
		}
		if child.Type() != "comment" && child.Type() != "newline" {
			return ""
		}
	}
	return ""
}

func (p *PythonAdapter) extractImports(root *sitter.Node, src []byte, out *FileSummary) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		line := int(child.StartPoint().Row) + 1
		switch child.Type() {
		case "import_statement":
			// import foo, bar as b
			for j := 0; j < int(child.NamedChildCount()); j++ {
				sub := child.NamedChild(j)
				switch sub.Type() {
				case "dotted_name":
					out.Imports = append(out.Imports, Import{Target: nodeText(sub, src), Line: line})
				case "aliased_import":
					if name := sub.ChildByFieldName("name"); name != nil {
						out.Imports = append(out.Imports, Import{Target: nodeText(name, src), Line: line})
					}
				}
			}
		case "import_from_statement":
			// from foo import bar, baz as z
			module := ""
			var names []string
			for j := 0; j < int(child.NamedChildCount()); j++ {
				sub := child.NamedChild(j)
				switch sub.Type() {
				case "dotted_name":
					if module == "" {
						module = nodeText(sub, src)
					} else {
						names = append(names, nodeText(sub, src))
					}
				case "aliased_import":
					if name := sub.ChildByFieldName("name"); name != nil {
						names = append(names, nodeText(name, src))
					}
				}
			}
			if module == "" {
				continue
			}
			if len(names) == 0 {
				out.Imports = append(out.Imports, Import{Target: module, Line: line})
			}
			for _, name := range names {
				out.Imports = append(out.Imports, Import{Target: module + "." + name, Line: line})
			}
		}
	}
}

// collectCalls walks the tree recording call expressions, tracking the
// qualified path of the enclosing definition as the owner scope.
func (p *PythonAdapter) collectCalls(node *sitter.Node, src []byte, scope string, out *FileSummary) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		def, _ := unwrapDecorated(child, src)

		if def.Type() == "function_definition" || def.Type() == "class_definition" {
			nameNode := def.ChildByFieldName("name")
			if nameNode != nil {
				inner := qualify(scope, nodeText(nameNode, src))
				if body := def.ChildByFieldName("body"); body != nil {
					p.collectCalls(body, src, inner, out)
				}
			}
			continue
		}

		if child.Type() == "call" {
			if fn := child.ChildByFieldName("function"); fn != nil {
				out.Refs = append(out.Refs, Ref{
					Owner:  scope,
					Target: nodeText(fn, src),
					Kind:   "calls",
					Line:   int(child.StartPoint().Row) + 1,
				})
			}
		}
		p.collectCalls(child, src, scope, out)
	}
}
