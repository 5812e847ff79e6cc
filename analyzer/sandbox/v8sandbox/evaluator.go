//go:build cgo

// Package v8sandbox evaluates define and macro code in V8.
package v8sandbox

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tommie/v8go"

	"github.com/abiiranathan/dot-analyzer/analyzer/sandbox"
)

// MaxSourceLength bounds the code accepted by Evaluate.
const MaxSourceLength = 100_000

// Evaluator runs code in a fresh V8 isolate per call.
//
// The value bag is injected as a JSON literal bound to the global `def`,
// so the code works on a copy and cannot reach anything else. The result
// is the completion value of the script converted with String().
//
// Thread-safety: Safe for concurrent calls; isolates are never shared.
type Evaluator struct{}

type outcome struct {
	result string
	err    error
}

// Evaluate implements defs.Evaluator. When ctx expires the script is
// terminated and the error wraps sandbox.ErrTimeout.
func (Evaluator) Evaluate(ctx context.Context, code string, def map[string]any) (string, error) {
	if len(code) > MaxSourceLength {
		return "", fmt.Errorf("source code is too long (%d bytes)", len(code))
	}
	if def == nil {
		def = map[string]any{}
	}
	bag, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("encode def: %w", err)
	}

	iso := v8go.NewIsolate()
	defer iso.Dispose()
	jsCtx := v8go.NewContext(iso)
	defer jsCtx.Close()

	done := make(chan outcome, 1)
	go func() {
		if _, err := jsCtx.RunScript("const def = "+string(bag)+";", "def.js"); err != nil {
			done <- outcome{err: err}
			return
		}
		val, err := jsCtx.RunScript(code, "define.js")
		if err != nil {
			done <- outcome{err: err}
			return
		}
		defer val.Release()
		done <- outcome{result: val.String()}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		iso.TerminateExecution()
		// The isolate must not be disposed while the script still runs.
		<-done
		return "", fmt.Errorf("%w: %w", sandbox.ErrTimeout, ctx.Err())
	}
}
