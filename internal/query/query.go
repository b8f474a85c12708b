// Package query runs jq expressions over saved documents.
package query

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/starford/tessera/internal/apperr"
)

// Query is a compiled jq expression.
type Query struct {
	src  string
	code *gojq.Code
}

// Compile parses and compiles src. A syntax error wraps ErrInvalidInput.
func Compile(src string) (*Query, error) {
	parsed, err := gojq.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("query %q: %v: %w", src, err, apperr.ErrInvalidInput)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("query %q: %v: %w", src, err, apperr.ErrInvalidInput)
	}
	return &Query{src: src, code: code}, nil
}

// String returns the source expression.
func (q *Query) String() string { return q.src }

// Run evaluates the query against v and collects every result. v is first
// normalized through JSON so struct values match jq's data model.
func (q *Query) Run(v any) ([]any, error) {
	input, err := normalize(v)
	if err != nil {
		return nil, err
	}
	iter := q.code.Run(input)
	var out []any
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := r.(error); isErr {
			return nil, fmt.Errorf("query error: %v: %w", err, apperr.ErrInvalidInput)
		}
		out = append(out, r)
	}
	return out, nil
}

// Eval compiles src and runs it once. A single result is returned as is;
// several results come back as a slice.
func Eval(src string, v any) (any, error) {
	q, err := Compile(src)
	if err != nil {
		return nil, err
	}
	res, err := q.Run(v)
	if err != nil {
		return nil, err
	}
	if len(res) == 1 {
		return res[0], nil
	}
	if res == nil {
		return []any{}, nil
	}
	return res, nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("query: encode input: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("query: decode input: %w", err)
	}
	return out, nil
}
