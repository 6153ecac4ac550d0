package main

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// rowFilter evaluates a jq expression against a row, presented as an
// object keyed by column name. A row matches when the expression yields
// at least one value that is neither false nor null.
type rowFilter struct {
	expr string
	code *gojq.Code
}

func newRowFilter(expr string) (*rowFilter, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter %q: %w", expr, err)
	}
	return &rowFilter{expr: expr, code: code}, nil
}

func (f *rowFilter) Match(row map[string]any) bool {
	iter := f.code.Run(row)
	for {
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := v.(error); isErr {
			// A filter erroring on a row is a non-match, not a crash. jq
			// expressions routinely error on rows of the wrong shape.
			continue
		}
		if v != nil && v != false {
			return true
		}
	}
}

func (f *rowFilter) String() string {
	return f.expr
}
