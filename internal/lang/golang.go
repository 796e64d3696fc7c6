package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoAdapter extracts structural facts from Go source files.
type GoAdapter struct{}

func (g *GoAdapter) Language() string     { return "go" }
func (g *GoAdapter) Extensions() []string { return []string{".go"} }

func (g *GoAdapter) Parse(ctx context.Context, content []byte) (*FileSummary, error) {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	summary := &FileSummary{Language: "go"}
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		g.extractTopLevel(root.Child(i), content, summary)
	}
	return summary, nil
}

func (g *GoAdapter) extractTopLevel(node *sitter.Node, src []byte, out *FileSummary) {
	switch node.Type() {
	case "function_declaration":
		g.extractFunction(node, src, out)
	case "method_declaration":
		g.extractMethod(node, src, out)
	case "type_declaration":
		g.extractTypes(node, src, out)
	case "import_declaration":
		g.extractImports(node, src, out)
	}
}

func (g *GoAdapter) extractFunction(node *sitter.Node, src []byte, out *FileSummary) {
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
		Signature: g.functionSignature(node, src),
		StartLine: startLine,
		EndLine:   endLine,
		StartByte: startByte,
	})
	g.collectCalls(node.ChildByFieldName("body"), src, name, out)
}

func (g *GoAdapter) extractMethod(node *sitter.Node, src []byte, out *FileSummary) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, src)
	recv := g.receiverType(node.ChildByFieldName("receiver"), src)
	qualified := qualify(recv, name)

	startLine, endLine, startByte := span(node)
	out.Entities = append(out.Entities, Entity{
		Kind:      "method",
		Name:      name,
		Qualified: qualified,
		Parent:    recv,
		Signature: g.functionSignature(node, src),
		StartLine: startLine,
		EndLine:   endLine,
		StartByte: startByte,
	})
	g.collectCalls(node.ChildByFieldName("body"), src, qualified, out)
}

// receiverType extracts the bare receiver type name from a method's
// receiver parameter list, stripping pointers and generic brackets.
func (g *GoAdapter) receiverType(recv *sitter.Node, src []byte) string {
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		child := recv.NamedChild(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		t := nodeText(typeNode, src)
		t = strings.TrimPrefix(t, "*")
		if idx := strings.IndexByte(t, '['); idx > 0 {
			t = t[:idx]
		}
		return t
	}
	return ""
}

func (g *GoAdapter) extractTypes(node *sitter.Node, src []byte, out *FileSummary) {
	for i := 0; i < int(node.ChildCount()); i++ {
		spec := node.Child(i)
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, src)
		startLine, endLine, startByte := span(spec)
		out.Entities = append(out.Entities, Entity{
			Kind:      "class",
			Name:      name,
			Qualified: name,
			Signature: g.typeSignature(spec, src),
			StartLine: startLine,
			EndLine:   endLine,
			StartByte: startByte,
		})
	}
}

func (g *GoAdapter) extractImports(node *sitter.Node, src []byte, out *FileSummary) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case "import_spec":
				pathNode := child.ChildByFieldName("path")
				if pathNode == nil {
					continue
				}
				out.Imports = append(out.Imports, Import{
					Target: stripQuotes(nodeText(pathNode, src)),
					Line:   int(child.StartPoint().Row) + 1,
				})
			case "import_spec_list":
				walk(child)
			}
		}
	}
	walk(node)
}

func (g *GoAdapter) functionSignature(node *sitter.Node, src []byte) string {
	var sb strings.Builder
	sb.WriteString("func")
	if recv := node.ChildByFieldName("receiver"); recv != nil {
		sb.WriteString(" " + nodeText(recv, src))
	}
	if name := node.ChildByFieldName("name"); name != nil {
		sb.WriteString(" " + nodeText(name, src))
	}
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		sb.WriteString(nodeText(tp, src))
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		sb.WriteString(nodeText(params, src))
	}
	if result := node.ChildByFieldName("result"); result != nil {
		sb.WriteString(" " + nodeText(result, src))
	}
	return sb.String()
}

func (g *GoAdapter) typeSignature(spec *sitter.Node, src []byte) string {
	nameNode := spec.ChildByFieldName("name")
	typeNode := spec.ChildByFieldName("type")
	sig := "type " + nodeText(nameNode, src)
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			sig += " struct"
		case "interface_type":
			sig += " interface"
		default:
			sig += " " + nodeText(typeNode, src)
		}
	}
	return sig
}

// collectCalls walks a function body recording call targets. Selector
// calls keep their full dotted text so the resolver can try both the
// qualified and the trailing-name form.
func (g *GoAdapter) collectCalls(body *sitter.Node, src []byte, owner string, out *FileSummary) {
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
