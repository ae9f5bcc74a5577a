package query

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/docuphase/rungraph/pkg/schema"
)

// GoJQEngine runs jq programs over step payloads. The environment loader is
// disabled so queries cannot read process state.
type GoJQEngine struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewGoJQEngine creates a jq engine with an empty program cache.
func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{cache: make(map[string]*gojq.Code)}
}

// Name returns the engine identifier.
func (e *GoJQEngine) Name() string {
	return "jq"
}

// Evaluate runs the jq program against data and returns the first result.
// jq programs can emit multiple values; use EvaluateAll to collect them.
func (e *GoJQEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	results, err := e.run(ctx, expression, data)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// EvaluateAll runs the jq program and returns every emitted value.
func (e *GoJQEngine) EvaluateAll(ctx context.Context, expression string, data any) ([]any, error) {
	return e.run(ctx, expression, data)
}

// SelectFromRaw decodes a raw JSON payload (a step's input or output) and
// runs the jq program over it. A nil or empty payload evaluates as null.
func (e *GoJQEngine) SelectFromRaw(ctx context.Context, expression string, raw json.RawMessage) ([]any, error) {
	var payload any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, schema.NewError(schema.ErrCodeQuery, "payload is not valid JSON").WithCause(err)
		}
	}
	return e.run(ctx, expression, payload)
}

func (e *GoJQEngine) run(ctx context.Context, expression string, input any) ([]any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "expression is empty")
	}

	code, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeQuery, "jq evaluation failed: %v", err).WithCause(err)
		}
		results = append(results, v)
	}
	return results, nil
}

func (e *GoJQEngine) compile(expression string) (*gojq.Code, error) {
	e.mu.RLock()
	code, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return code, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.cache[expression]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(expression)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq parse failed: %v", err).WithCause(err)
	}

	code, err = gojq.Compile(parsed,
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq compile failed: %v", err).WithCause(err)
	}

	e.cache[expression] = code
	return code, nil
}
