package printf

import (
	"math"
	"strconv"
)

// Arg is a numeric template argument: an integer or a float. The zero Arg
// is the integer 0.
type Arg struct {
	i       int64
	f       float64
	isFloat bool
}

// Int returns an integer argument.
func Int(v int64) Arg {
	return Arg{i: v}
}

// Float returns a floating point argument.
func Float(v float64) Arg {
	return Arg{f: v, isFloat: true}
}

// Float64 returns the argument as a float64.
func (a Arg) Float64() float64 {
	if a.isFloat {
		return a.f
	}
	return float64(a.i)
}

// Int64 returns the argument as an integer, truncating floats toward zero.
func (a Arg) Int64() int64 {
	if a.isFloat {
		return int64(a.f)
	}
	return a.i
}

// floorString renders the argument rounded toward negative infinity.
func (a Arg) floorString() string {
	if !a.isFloat {
		return strconv.FormatInt(a.i, 10)
	}
	if s, ok := nonFinite(a.f); ok {
		return s
	}
	v := math.Floor(a.f)
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func (a Arg) fixedString(decimals int) string {
	v := a.Float64()
	if s, ok := nonFinite(v); ok {
		return s
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// String is the coercion used by 's': integers in decimal, floats in their
// shortest round-trip form.
func (a Arg) String() string {
	if !a.isFloat {
		return strconv.FormatInt(a.i, 10)
	}
	if s, ok := nonFinite(a.f); ok {
		return s
	}
	if a.f == 0 {
		return "0"
	}
	return strconv.FormatFloat(a.f, 'g', -1, 64)
}

func nonFinite(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return "NaN", true
	case math.IsInf(v, 1):
		return "+Inf", true
	case math.IsInf(v, -1):
		return "-Inf", true
	default:
		return "", false
	}
}
