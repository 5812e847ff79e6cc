package sandbox

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// undefinedValue is the JavaScript undefined value. Go nil stands for null.
type undefinedValue struct{}

var undefined = undefinedValue{}

// ToString converts a value to a string with the rules of JavaScript's
// String() function. Values are the Go renderings produced by the literal
// evaluator and found in define value bags: string, float64, bool, nil
// (null), map[string]any (object) and []any (array).
func ToString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	case undefinedValue:
		return "undefined"
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			if item == nil || item == undefined {
				continue
			}
			parts[i] = ToString(item)
		}
		return strings.Join(parts, ",")
	}
	return "[object Object]"
}

// formatNumber renders f like Number.prototype.toString.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads the exponent to two digits; JavaScript does not.
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// truthy reports the JavaScript boolean conversion of v.
func truthy(v any) bool {
	switch v := v.(type) {
	case string:
		return v != ""
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case bool:
		return v
	case nil, undefinedValue:
		return false
	}
	return true
}

// toNumber converts a primitive to a number like Number().
func toNumber(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case nil:
		return 0
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if f, err := parseNumber(s); err == nil {
			return f
		}
	}
	return math.NaN()
}

// isPrimitiveString reports whether the + operator concatenates v.
func isPrimitiveString(v any) bool {
	switch v.(type) {
	case string, map[string]any, []any:
		return true
	}
	return false
}

// strictEqual implements ===.
func strictEqual(a, b any) bool {
	switch a := a.(type) {
	case float64:
		b, ok := b.(float64)
		return ok && a == b
	case string:
		b, ok := b.(string)
		return ok && a == b
	case bool:
		b, ok := b.(bool)
		return ok && a == b
	case nil:
		return b == nil
	case undefinedValue:
		return b == undefined
	}
	// Objects compare by identity, which values from distinct evaluations
	// never share.
	return false
}

// property reads obj[key].
func property(obj any, key string) (any, bool) {
	switch o := obj.(type) {
	case map[string]any:
		v, ok := o[key]
		if !ok {
			return undefined, true
		}
		return normalize(v), true
	case string:
		if key == "length" {
			return float64(len(utf16.Encode([]rune(o)))), true
		}
		return undefined, true
	case []any:
		if key == "length" {
			return float64(len(o)), true
		}
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(o) {
			return normalize(o[i]), true
		}
		return undefined, true
	case nil, undefinedValue:
		return nil, false
	}
	return undefined, true
}

// normalize maps Go values from value bags onto the evaluator's value set.
func normalize(v any) any {
	switch v := v.(type) {
	case int:
		return float64(v)
	case map[string]any, []any, string, float64, bool, nil, undefinedValue:
		return v
	}
	return undefined
}
