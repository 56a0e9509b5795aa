// internal/decision/eval/eval.go
package eval

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Compiled is a validated condition ready to run against a config.
type Compiled struct {
	Source  string
	Vars    []string
	program *vm.Program
}

// Compile validates and compiles cond. An empty cond always holds.
func Compile(cond string) (*Compiled, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return &Compiled{}, nil
	}

	names, err := identifiers(cond)
	if err != nil {
		return nil, err
	}

	// Variables absent from a run's config evaluate to nil.
	program, err := expr.Compile(cond, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile cond: %w", err)
	}
	return &Compiled{Source: cond, Vars: names, program: program}, nil
}

func (c *Compiled) Eval(vars map[string]any) (bool, error) {
	if c == nil || c.program == nil {
		return true, nil
	}
	out, err := expr.Run(c.program, vars)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("cond must evaluate to bool (got %T)", out)
	}
	return b, nil
}

func Eval(cond string, vars map[string]any) (bool, error) {
	c, err := Compile(cond)
	if err != nil {
		return false, err
	}
	return c.Eval(vars)
}
