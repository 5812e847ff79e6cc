//go:build cgo

package main

import (
	"github.com/abiiranathan/dot-analyzer/analyzer/defs"
	"github.com/abiiranathan/dot-analyzer/analyzer/sandbox/v8sandbox"
)

func v8Evaluator() (defs.Evaluator, error) {
	return v8sandbox.Evaluator{}, nil
}
