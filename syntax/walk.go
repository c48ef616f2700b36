package syntax

// Walk traverses an AST node depth-first, calling f before descending into
// each child and again (with node == nil is never passed; instead f
// returns a bool to control recursion) matching the shape of the
// teacher's own Walk: return false from f to skip a node's children.
//
// The switch below is a closed tagged union over every Command/WordPart/
// TestExpr variant, by design (spec.md §9: "implement as a tagged union
// with a match, not via open polymorphism").
func Walk(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	switch n := node.(type) {
	case *File:
		walkStmts(n.Stmts, f)
	case *Stmt:
		for _, a := range n.Assigns {
			Walk(a, f)
		}
		if n.Cmd != nil {
			Walk(n.Cmd, f)
		}
		for _, r := range n.Redirs {
			Walk(r, f)
		}
	case *Assign:
		if n.Value != nil {
			Walk(n.Value, f)
		}
	case *Redirect:
		if n.Target != nil {
			Walk(n.Target, f)
		}
	case *StatementList:
		walkStmts(n.Statements, f)
	case *SimpleCommand:
		for _, w := range n.Words {
			Walk(w, f)
		}
	case *Pipeline:
		walkStmts(n.Commands, f)
	case *AndOrList:
		Walk(n.First, f)
		for _, r := range n.Rest {
			Walk(r.Pipeline, f)
		}
	case *If:
		Walk(n.Cond, f)
		Walk(n.Then, f)
		for _, e := range n.Elifs {
			Walk(e.Cond, f)
			Walk(e.Then, f)
		}
		if n.Else != nil {
			Walk(n.Else, f)
		}
	case *While:
		Walk(n.Cond, f)
		Walk(n.Body, f)
	case *Until:
		Walk(n.Cond, f)
		Walk(n.Body, f)
	case *ForIn:
		for _, w := range n.Items {
			Walk(w, f)
		}
		Walk(n.Body, f)
	case *CForLoop:
		Walk(n.Body, f)
	case *Case:
		Walk(n.Word, f)
		for _, it := range n.Items {
			for _, pat := range it.Patterns {
				Walk(pat, f)
			}
			Walk(it.Body, f)
		}
	case *Select:
		for _, w := range n.Items {
			Walk(w, f)
		}
		Walk(n.Body, f)
	case *Subshell:
		Walk(n.Body, f)
	case *BraceGroup:
		Walk(n.Body, f)
	case *FunctionDef:
		Walk(n.Body, f)
	case *EnhancedTest:
		walkTest(n.X, f)
	case *Word:
		for _, wp := range n.Parts {
			Walk(wp, f)
		}
	case *DoubleQuoted:
		for _, wp := range n.Parts {
			Walk(wp, f)
		}
	case *ParameterExpansion:
		if n.Index != nil {
			Walk(n.Index, f)
		}
		if n.Operand != nil {
			Walk(n.Operand, f)
		}
	case *CommandSubstitution:
		walkStmts(n.Stmts, f)
	case *ProcessSubstitution:
		walkStmts(n.Stmts, f)
	case *ExtGlobPart:
		Walk(n.Pattern, f)
	}
}

func walkStmts(stmts []*Stmt, f func(Node) bool) {
	for _, s := range stmts {
		Walk(s, f)
	}
}

func walkTest(t TestExpr, f func(Node) bool) {
	if t == nil || !f(t) {
		return
	}
	switch n := t.(type) {
	case *TestAnd:
		walkTest(n.X, f)
		walkTest(n.Y, f)
	case *TestOr:
		walkTest(n.X, f)
		walkTest(n.Y, f)
	case *TestNot:
		walkTest(n.X, f)
	case *TestParen:
		walkTest(n.X, f)
	case *TestUnary:
		Walk(n.X, f)
	case *TestBinary:
		Walk(n.X, f)
		Walk(n.Y, f)
	case *TestWord:
		Walk(n.X, f)
	}
}
