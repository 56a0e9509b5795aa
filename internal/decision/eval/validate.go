package eval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

var allowedOperators = map[string]bool{
	"==": true, "!=": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"&&": true, "||": true, "and": true, "or": true,
	"!": true, "not": true,
}

// Validate accepts boolean conditions over plain variables: comparisons,
// logic and literals. Arithmetic, calls, member access, collections and
// closures are rejected.
func Validate(cond string) error {
	_, err := identifiers(cond)
	return err
}

func identifiers(cond string) ([]string, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return nil, nil
	}

	tree, err := parser.Parse(cond)
	if err != nil {
		return nil, fmt.Errorf("parse cond: %w", err)
	}

	v := &restrictedVisitor{names: map[string]struct{}{}}
	ast.Walk(&tree.Node, v)
	if v.err != nil {
		return nil, v.err
	}

	names := make([]string, 0, len(v.names))
	for n := range v.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

type restrictedVisitor struct {
	names map[string]struct{}
	err   error
}

func (v *restrictedVisitor) Visit(node *ast.Node) {
	if v.err != nil {
		return
	}
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		v.names[n.Value] = struct{}{}
	case *ast.NilNode, *ast.IntegerNode, *ast.FloatNode, *ast.BoolNode, *ast.StringNode:
	case *ast.BinaryNode:
		if !allowedOperators[n.Operator] {
			v.err = fmt.Errorf("operator %q is not allowed", n.Operator)
		}
	case *ast.UnaryNode:
		if !allowedOperators[n.Operator] {
			v.err = fmt.Errorf("operator %q is not allowed", n.Operator)
		}
	case *ast.CallNode:
		v.err = fmt.Errorf("function calls are not allowed")
	case *ast.MemberNode:
		v.err = fmt.Errorf("member access is not allowed")
	default:
		v.err = fmt.Errorf("expression %T is not allowed", n)
	}
}
