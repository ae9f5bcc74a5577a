package query

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/docuphase/rungraph/pkg/schema"
)

// CELEngine evaluates CEL predicates over graph nodes. Compiled programs are
// cached per expression source.
type CELEngine struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELEngine creates a CEL engine with the node environment declared.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("node", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Evaluate compiles (with cache) and runs the expression.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "expression is empty")
	}

	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	out, _, err := program.Eval(buildActivation(data))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeQuery, "CEL evaluation failed: %v", err).WithCause(err)
	}
	return out.Value(), nil
}

func (e *CELEngine) compile(expression string) (cel.Program, error) {
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

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"CEL compilation failed: %v", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"CEL program construction failed: %v", err).WithCause(err)
	}

	e.cache[expression] = program
	return program, nil
}

// buildActivation fills in an empty node map when absent so expressions
// referencing declared variables never fail on missing bindings.
func buildActivation(data map[string]any) map[string]any {
	activation := make(map[string]any, len(data)+1)
	for k, v := range data {
		activation[k] = v
	}
	if _, ok := activation["node"]; !ok {
		activation["node"] = map[string]any{}
	}
	return activation
}
