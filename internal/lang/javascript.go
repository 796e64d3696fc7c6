package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// JavaScriptAdapter extracts structural facts from JavaScript source files.
// Covers function declarations, arrow/function assignments, classes with
// methods and extends clauses, ES module imports, and require() calls.
type JavaScriptAdapter struct{}

func (j *JavaScriptAdapter) Language() string     { return "javascript" }
func (j *JavaScriptAdapter) Extensions() []string { return []string{".js", ".mjs", ".cjs"} }

func (j *JavaScriptAdapter) Parse(ctx context.Context, content []byte) (*FileSummary, error) {
	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	summary := &FileSummary{Language: "javascript"}
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		j.extractTopLevel(root.Child(i), content, summary)
	}
	return summary, nil
}

func (j *JavaScriptAdapter) extractTopLevel(node *sitter.Node, src []byte, out *FileSummary) {
	switch node.Type() {
	case "export_statement":
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			j.extractTopLevel(decl, src, out)
		}
	case "function_declaration":
		j.extractFunction(node, src, out)
	case "class_declaration":
		j.extractClass(node, src, out)
	case "lexical_declaration", "variable_declaration":
		j.extractAssignedFunctions(node, src, out)
	case "import_statement":
		if source := node.ChildByFieldName("source"); source != nil {
			out.Imports = append(out.Imports, Import{
				Target: stripQuotes(nodeText(source, src)),
				Line:   int(node.StartPoint().Row) + 1,
			})
		}
	}
}

func (j *JavaScriptAdapter) extractFunction(node *sitter.Node, src []byte, out *FileSummary) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, src)
	startLine, endLine, startByte := span(node)
	out.Entities = append(out.Entities, Entity{
		Kind:      "function",
		Name:      name,
		Qualified: name,
		Signature: jsFunctionSignature(name, node, src),
		StartLine: startLine,
		EndLine:   endLine,
		StartByte: startByte,
	})
	j.collectCalls(node.ChildByFieldName("body"), src, name, out)
}

// extractAssignedFunctions handles `const f = () => {}` and
// `const f = function() {}` declarations.
func (j *JavaScriptAdapter) extractAssignedFunctions(node *sitter.Node, src []byte, out *FileSummary) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		value := decl.ChildByFieldName("value")
		if nameNode == nil || value == nil {
			continue
		}
		if value.Type() != "arrow_function" && value.Type() != "function_expression" && value.Type() != "function" {
			continue
		}
		name := nodeText(nameNode, src)
		startLine, endLine, startByte := span(decl)
		out.Entities = append(out.Entities, Entity{
			Kind:      "function",
			Name:      name,
			Qualified: name,
			Signature: jsFunctionSignature(name, value, src),
			StartLine: startLine,
			EndLine:   endLine,
			StartByte: startByte,
		})
		j.collectCalls(value.ChildByFieldName("body"), src, name, out)
	}
}

func (j *JavaScriptAdapter) extractClass(node *sitter.Node, src []byte, out *FileSummary) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, src)
	startLine, endLine, startByte := span(node)
	out.Entities = append(out.Entities, Entity{
		Kind:      "class",
		Name:      name,
		Qualified: name,
		Signature: "class " + name,
		StartLine: startLine,
		EndLine:   endLine,
		StartByte: startByte,
	})

	// extends clause
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "class_heritage" {
			continue
		}
		for k := 0; k < int(child.NamedChildCount()); k++ {
			base := child.NamedChild(k)
			if base.Type() == "identifier" || base.Type() == "member_expression" {
				out.Refs = append(out.Refs, Ref{
					Owner:  name,
					Target: nodeText(base, src),
					Kind:   "inherits",
					Line:   startLine,
				})
			}
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() != "method_definition" {
			continue
		}
		mNameNode := member.ChildByFieldName("name")
		if mNameNode == nil {
			continue
		}
		mName := nodeText(mNameNode, src)
		qualified := name + "." + mName
		mStart, mEnd, mByte := span(member)
		out.Entities = append(out.Entities, Entity{
			Kind:      "method",
			Name:      mName,
			Qualified: qualified,
			Parent:    name,
			Signature: jsFunctionSignature(mName, member, src),
			StartLine: mStart,
			EndLine:   mEnd,
			StartByte: mByte,
		})
		j.collectCalls(member.ChildByFieldName("body"), src, qualified, out)
	}
}

func jsFunctionSignature(name string, fn *sitter.Node, src []byte) string {
	params := "()"
	if p := fn.ChildByFieldName("parameters"); p != nil {
		params = nodeText(p, src)
	} else if p := fn.ChildByFieldName("parameter"); p != nil {
		// single-parameter arrow function without parens
		params = "(" + nodeText(p, src) + ")"
	}
	return "function " + name + params
}

func (j *JavaScriptAdapter) collectCalls(body *sitter.Node, src []byte, owner string, out *FileSummary) {
	if body == nil {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "call_expression" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				target := strings.TrimSpace(nodeText(fn, src))
				if target != "" {
					out.Refs = append(out.Refs, Ref{
						Owner:  owner,
						Target: target,
						Kind:   "calls",
						Line:   int(n.StartPoint().Row) + 1,
					})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}
