package syntax

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// DumpFormat selects one of the debug-dump renderings spec.md §6 requires
// for the CLI collaborator's "dump AST" entry point.
type DumpFormat int

const (
	DumpTree DumpFormat = iota
	DumpPretty
	DumpCompact
	DumpSExpr
	DumpDot
)

// Dump writes node in the requested format. Tree/Pretty share one
// indenting walker grounded on the teacher's syntax.Fprint visitor shape;
// Compact, SExpr and Dot are other renderings over the same children, which
// directChildren takes from Walk, so a new node kind only needs its arm in
// Walk (typeLabel reads the type name by reflection).
func Dump(w io.Writer, node Node, format DumpFormat) error {
	switch format {
	case DumpDot:
		return dumpDot(w, node)
	case DumpSExpr:
		dumpSExpr(w, node, 0)
		fmt.Fprintln(w)
		return nil
	case DumpCompact:
		dumpCompact(w, node)
		fmt.Fprintln(w)
		return nil
	default: // DumpTree, DumpPretty: both use the indented tree; Pretty adds blank lines between top-level stmts
		dumpTree(w, node, 0, format == DumpPretty)
		return nil
	}
}

func typeLabel(node Node) string {
	t := reflect.TypeOf(node)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func dumpTree(w io.Writer, node Node, depth int, pretty bool) {
	if node == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s\n", indent, typeLabel(node))
	for _, child := range directChildren(node) {
		dumpTree(w, child, depth+1, pretty)
		if pretty && depth == 0 {
			fmt.Fprintln(w)
		}
	}
}

func dumpCompact(w io.Writer, node Node) {
	if node == nil {
		return
	}
	fmt.Fprintf(w, "%s(", typeLabel(node))
	children := directChildren(node)
	for i, c := range children {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		dumpCompact(w, c)
	}
	fmt.Fprint(w, ")")
}

func dumpSExpr(w io.Writer, node Node, depth int) {
	if node == nil {
		fmt.Fprint(w, "nil")
		return
	}
	children := directChildren(node)
	if len(children) == 0 {
		fmt.Fprintf(w, "(%s)", typeLabel(node))
		return
	}
	fmt.Fprintf(w, "(%s", typeLabel(node))
	for _, c := range children {
		fmt.Fprint(w, " ")
		dumpSExpr(w, c, depth+1)
	}
	fmt.Fprint(w, ")")
}

func dumpDot(w io.Writer, root Node) error {
	fmt.Fprintln(w, "digraph AST {")
	fmt.Fprintln(w, `  node [shape=box, fontname="monospace"];`)
	id := 0
	var visit func(Node) int
	visit = func(n Node) int {
		if n == nil {
			return -1
		}
		myID := id
		id++
		fmt.Fprintf(w, "  n%d [label=%q];\n", myID, typeLabel(n))
		for _, c := range directChildren(n) {
			cid := visit(c)
			if cid >= 0 {
				fmt.Fprintf(w, "  n%d -> n%d;\n", myID, cid)
			}
		}
		return myID
	}
	visit(root)
	fmt.Fprintln(w, "}")
	return nil
}

// directChildren collects a node's immediate Node-typed children using
// Walk itself, by stopping recursion exactly one level down.
func directChildren(node Node) []Node {
	var children []Node
	first := true
	Walk(node, func(n Node) bool {
		if first {
			first = false
			return true
		}
		children = append(children, n)
		return false
	})
	return children
}
