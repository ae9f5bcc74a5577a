package query

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/docuphase/rungraph/pkg/schema"
)

// ExprEngine evaluates expr-lang predicates. Undefined variables are allowed
// so predicates stay usable across nodes that lack optional fields such as
// duration_ms.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates an expr engine with an empty program cache.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{cache: make(map[string]*vm.Program)}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Evaluate compiles (with cache) and runs the expression.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "expression is empty")
	}

	program, err := e.compile(expression, data)
	if err != nil {
		return nil, err
	}

	out, err := vm.Run(program, data)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeQuery, "expr evaluation failed: %v", err).WithCause(err)
	}
	return out, nil
}

func (e *ExprEngine) compile(expression string, env map[string]any) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"expr compilation failed: %v", err).WithCause(err)
	}

	e.cache[expression] = program
	return program, nil
}
