//go:build !cgo

package main

import (
	"errors"

	"github.com/abiiranathan/dot-analyzer/analyzer/defs"
)

func v8Evaluator() (defs.Evaluator, error) {
	return nil, errors.New("the v8 sandbox requires a cgo build")
}
