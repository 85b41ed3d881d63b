package extractor

import (
	"log/slog"
	"strings"

	"github.com/mvp-joe/jstruct/internal/source"
	"github.com/mvp-joe/jstruct/internal/span"
	"github.com/mvp-joe/jstruct/internal/syntax"
)

// declExtractor builds ClassInfo and MethodInfo records for one parsed
// source unit. It lives only as long as the tree it walks.
type declExtractor struct {
	buf      *source.Buffer
	spans    span.Resolver
	logger   *slog.Logger
	maxDepth int
}

func (e *declExtractor) text(n syntax.Node) string {
	if n == nil {
		return ""
	}
	return e.buf.Slice(n.StartByte(), n.EndByte())
}

// classes extracts the class declarations that are direct children of
// parent. enclosing is the name of the class that owns parent, or "" at the
// compilation unit.
func (e *declExtractor) classes(parent syntax.Node, enclosing string, depth int) []ClassInfo {
	out := []ClassInfo{}
	for _, child := range syntax.Children(parent) {
		if child.Kind() != "class_declaration" {
			continue
		}
		if class, ok := e.class(child, enclosing, depth); ok {
			out = append(out, class)
		}
	}
	return out
}

func (e *declExtractor) class(node syntax.Node, enclosing string, depth int) (ClassInfo, bool) {
	name := e.text(node.ChildByFieldName("name"))
	if name == "" {
		e.logger.Warn("skipping class without a name", "line", node.StartPoint().Line)
		return ClassInfo{}, false
	}
	if enclosing != "" && name == enclosing {
		e.logger.Warn("skipping inner class named like its enclosing class",
			"class", name, "line", node.StartPoint().Line)
		return ClassInfo{}, false
	}

	modifiers, annotations := e.modifiers(node)
	info := ClassInfo{
		Name:         name,
		Modifiers:    modifiers,
		Annotations:  annotations,
		Extends:      []string{},
		Implements:   []string{},
		Comments:     CommentsFor(node, e.buf),
		Methods:      []MethodInfo{},
		InnerClasses: []ClassInfo{},
		OriginalCode: e.originalCode(node, "class", name),
	}

	for _, child := range syntax.Children(node) {
		switch child.Kind() {
		case "superclass":
			text := strings.TrimSpace(strings.TrimPrefix(e.text(child), "extends"))
			if text != "" {
				info.Extends = append(info.Extends, text)
			}
		case "super_interfaces":
			info.Implements = append(info.Implements, e.interfaces(child)...)
		}
	}

	body := node.ChildByFieldName("body")
	for _, member := range syntax.Children(body) {
		switch member.Kind() {
		case "method_declaration":
			if m, ok := e.method(member, false); ok {
				info.Methods = append(info.Methods, m)
			}
		case "constructor_declaration":
			if m, ok := e.method(member, true); ok {
				info.Methods = append(info.Methods, m)
			}
		case "class_declaration":
			if depth+1 > e.maxDepth {
				e.logger.Warn("class nesting too deep, not descending",
					"class", name, "depth", depth+1, "max_depth", e.maxDepth)
				continue
			}
			if inner, ok := e.class(member, name, depth+1); ok {
				info.InnerClasses = append(info.InnerClasses, inner)
			}
		}
	}

	return info, true
}

// interfaces reads the type names of an "implements" clause. Each non
// keyword, non comma child is split on top-level commas, so a type list
// node and generic arguments are both handled.
func (e *declExtractor) interfaces(node syntax.Node) []string {
	var names []string
	for _, child := range syntax.Children(node) {
		switch child.Kind() {
		case ",", "comma", "implements":
			continue
		}
		for _, part := range splitTopLevel(e.text(child)) {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
	}
	return names
}

// splitTopLevel splits s on commas that are not inside angle brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// modifiers returns the keyword modifiers and the annotations of a
// declaration, both in source order. Annotations are read from the
// modifiers block and from direct children of the declaration.
func (e *declExtractor) modifiers(node syntax.Node) (modifiers, annotations []string) {
	modifiers, annotations = []string{}, []string{}

	for _, child := range syntax.Children(node) {
		switch {
		case syntax.IsAnnotation(child):
			annotations = append(annotations, e.text(child))
		case child.Kind() == "modifiers":
			for _, mod := range syntax.Children(child) {
				switch {
				case syntax.IsAnnotation(mod):
					annotations = append(annotations, e.text(mod))
				case syntax.IsComment(mod):
				default:
					if text := e.text(mod); text != "" {
						modifiers = append(modifiers, text)
					}
				}
			}
		}
	}
	return modifiers, annotations
}

func (e *declExtractor) method(node syntax.Node, constructor bool) (MethodInfo, bool) {
	name := e.text(node.ChildByFieldName("name"))
	if name == "" {
		e.logger.Warn("skipping method without a name", "line", node.StartPoint().Line)
		return MethodInfo{}, false
	}

	modifiers, annotations := e.modifiers(node)
	return MethodInfo{
		Name:            name,
		IsConstructor:   constructor,
		ReturnType:      e.returnType(node, constructor),
		Modifiers:       modifiers,
		Annotations:     annotations,
		Parameters:      e.parameters(node.ChildByFieldName("parameters")),
		CalledFunctions: CollectInvocations(node.ChildByFieldName("body"), e.buf),
		Comments:        CommentsFor(node, e.buf),
		OriginalCode:    e.originalCode(node, "method", name),
	}, true
}

func (e *declExtractor) returnType(node syntax.Node, constructor bool) string {
	if constructor {
		return "void"
	}
	if t := e.text(node.ChildByFieldName("type")); t != "" {
		return t
	}
	// Unknown return types are reported as void, like a void_type child.
	return "void"
}

func (e *declExtractor) parameters(params syntax.Node) []Parameter {
	out := []Parameter{}
	for _, p := range syntax.Children(params) {
		switch p.Kind() {
		case "formal_parameter":
			typ := e.text(p.ChildByFieldName("type"))
			if typ == "" {
				typ = e.text(typeChild(p))
			}
			out = append(out, Parameter{Type: typ, Name: e.text(p.ChildByFieldName("name"))})

		case "spread_parameter":
			typ := e.text(typeChild(p))
			if typ != "" {
				typ += "..."
			}
			out = append(out, Parameter{Type: typ, Name: e.text(spreadName(p))})
		}
	}
	return out
}

// typeChild returns the first direct child whose kind names a type.
func typeChild(n syntax.Node) syntax.Node {
	for _, child := range syntax.Children(n) {
		kind := child.Kind()
		if strings.HasSuffix(kind, "_type") || strings.HasSuffix(kind, "type_identifier") {
			return child
		}
	}
	return nil
}

func spreadName(n syntax.Node) syntax.Node {
	if decl := syntax.FindChildByKind(n, "variable_declarator"); decl != nil {
		if name := decl.ChildByFieldName("name"); name != nil {
			return name
		}
		return syntax.FindChildByKind(decl, "identifier")
	}
	return syntax.FindChildByKind(n, "identifier")
}

func (e *declExtractor) originalCode(node syntax.Node, kind, name string) string {
	code := e.spans.Resolve(node)
	if code == "" {
		e.logger.Debug("declaration span unavailable", kind, name, "line", node.StartPoint().Line)
	}
	return code
}
