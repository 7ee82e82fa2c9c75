package sonny

import (
	"fmt"
	"math"
	"strings"
)

// Value is either a number or an array of values. Values are never mutated
// once built; every operation returns a new Value.
type Value struct {
	num   float64
	items []Value
	array bool
}

// Number makes a scalar Value.
func Number(x float64) Value {
	return Value{num: x}
}

// Array makes an array Value from its elements.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{items: items, array: yes}
}

// Numbers makes a flat array Value.
func Numbers(xs ...float64) Value {
	items := make([]Value, len(xs))
	for i, x := range xs {
		items[i] = Number(x)
	}
	return Array(items...)
}

var zero = Number(0)

func (v Value) IsArray() bool { return v.array }

// Items returns the elements of an array, nil for a number.
func (v Value) Items() []Value { return v.items }

// Float collapses a Value to a scalar: an array gives its first element,
// or 0 when empty.
func (v Value) Float() float64 {
	if !v.array {
		return v.num
	}
	if len(v.items) == 0 {
		return 0
	}
	return v.items[0].Float()
}

func (v Value) String() string {
	if !v.array {
		return fmt.Sprintf("%g", v.num)
	}
	s := make([]string, len(v.items))
	for i, x := range v.items {
		s[i] = x.String()
	}
	return "[" + strings.Join(s, ", ") + "]"
}

// broadcast applies f elementwise. A number against an array repeats the
// number; two arrays are zipped to the shorter length.
func broadcast(a, b Value, f func(x, y float64) float64) Value {
	switch {
	case !a.array && !b.array:
		return Number(f(a.num, b.num))
	case !a.array:
		out := make([]Value, len(b.items))
		for i, y := range b.items {
			out[i] = broadcast(a, y, f)
		}
		return Array(out...)
	case !b.array:
		out := make([]Value, len(a.items))
		for i, x := range a.items {
			out[i] = broadcast(x, b, f)
		}
		return Array(out...)
	}
	n := min(len(a.items), len(b.items))
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		out[i] = broadcast(a.items[i], b.items[i], f)
	}
	return Array(out...)
}

func each(a Value, f func(x float64) float64) Value {
	if !a.array {
		return Number(f(a.num))
	}
	out := make([]Value, len(a.items))
	for i, x := range a.items {
		out[i] = each(x, f)
	}
	return Array(out...)
}

func Add(a, b Value) Value { return broadcast(a, b, func(x, y float64) float64 { return x + y }) }
func Sub(a, b Value) Value { return broadcast(a, b, func(x, y float64) float64 { return x - y }) }
func Mul(a, b Value) Value { return broadcast(a, b, func(x, y float64) float64 { return x * y }) }
func Div(a, b Value) Value { return broadcast(a, b, func(x, y float64) float64 { return x / y }) }
func Rem(a, b Value) Value { return broadcast(a, b, math.Mod) }
func Pow(a, b Value) Value { return broadcast(a, b, math.Pow) }
func Min(a, b Value) Value { return broadcast(a, b, math.Min) }
func Max(a, b Value) Value { return broadcast(a, b, math.Max) }

// And and Or are min and max, so 0/1 truth values combine as expected.
func And(a, b Value) Value { return Min(a, b) }
func Or(a, b Value) Value  { return Max(a, b) }

func Negate(a Value) Value { return each(a, func(x float64) float64 { return -x }) }
func Sin(a Value) Value    { return each(a, math.Sin) }
func Cos(a Value) Value    { return each(a, math.Cos) }
func Floor(a Value) Value  { return each(a, math.Floor) }
func Ceil(a Value) Value   { return each(a, math.Ceil) }
func Abs(a Value) Value    { return each(a, math.Abs) }
func Ln(a Value) Value     { return each(a, math.Log) }

// Equal follows the broadcast rule: a number equals an array when it equals
// every element; arrays are compared over the zipped length.
func Equal(a, b Value) bool {
	switch {
	case !a.array && !b.array:
		return a.num == b.num
	case !a.array:
		for _, y := range b.items {
			if !Equal(a, y) {
				return not
			}
		}
		return yes
	case !b.array:
		return Equal(b, a)
	}
	n := min(len(a.items), len(b.items))
	for i := 0; i < n; i++ {
		if !Equal(a.items[i], b.items[i]) {
			return not
		}
	}
	return yes
}

// order reports whether cmp holds. A number against an array must hold for
// every element. Two arrays have no ordering, so cmp never holds.
func order(a, b Value, cmp func(x, y float64) bool) bool {
	switch {
	case !a.array && !b.array:
		return cmp(a.num, b.num)
	case a.array && b.array:
		return not
	case !a.array:
		for _, y := range b.items {
			if !order(a, y, cmp) {
				return not
			}
		}
		return yes
	}
	for _, x := range a.items {
		if !order(x, b, cmp) {
			return not
		}
	}
	return yes
}

func truth(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

func Less(a, b Value) Value {
	return truth(order(a, b, func(x, y float64) bool { return x < y }))
}

func Greater(a, b Value) Value {
	return truth(order(a, b, func(x, y float64) bool { return x > y }))
}

func LessEqual(a, b Value) Value {
	return truth(order(a, b, func(x, y float64) bool { return x <= y }))
}

func GreaterEqual(a, b Value) Value {
	return truth(order(a, b, func(x, y float64) bool { return x >= y }))
}

func Eq(a, b Value) Value    { return truth(Equal(a, b)) }
func NotEq(a, b Value) Value { return truth(!Equal(a, b)) }

// Ternary picks a when cond is not zero.
func Ternary(cond, a, b Value) Value {
	if !Equal(cond, zero) {
		return a
	}
	return b
}

// Index returns element i of an array. A number indexes to itself.
func Index(v, i Value) (Value, error) {
	if !v.array {
		return v, nil
	}
	f := i.Float()
	if math.IsNaN(f) || f < 0 || f >= float64(len(v.items)) {
		return Value{}, indexError("index %v out of range for array of length %d", i, len(v.items))
	}
	return v.items[int(f)], nil
}

// SubArray returns the elements in [start, end). A number is returned as is.
func SubArray(v, start, end Value) (Value, error) {
	if !v.array {
		return v, nil
	}
	s, e := start.Float(), end.Float()
	if math.IsNaN(s) || math.IsNaN(e) || s < 0 || e < s || e > float64(len(v.items)) {
		return Value{}, indexError("sub-array [%v, %v) out of range for array of length %d", start, end, len(v.items))
	}
	out := make([]Value, int(e)-int(s))
	copy(out, v.items[int(s):int(e)])
	return Array(out...), nil
}

// Average is the arithmetic mean of the elements. An empty array gives NaN.
func Average(v Value) Value {
	if !v.array {
		return v
	}
	sum := zero
	for _, x := range v.items {
		sum = Add(sum, x)
	}
	return Div(sum, Number(float64(len(v.items))))
}

// Concat joins two values into one array; numbers count as one element.
func Concat(a, b Value) Value {
	out := make([]Value, 0, Length(a)+Length(b))
	for _, v := range [2]Value{a, b} {
		if v.array {
			out = append(out, v.items...)
		} else {
			out = append(out, v)
		}
	}
	return Array(out...)
}

// Length of an array; a number has length 1.
func Length(v Value) int {
	if !v.array {
		return 1
	}
	return len(v.items)
}

// Find returns the index of the first element equal to needle, or -1.
func Find(haystack, needle Value) Value {
	if !haystack.array {
		if Equal(haystack, needle) {
			return Number(0)
		}
		return Number(-1)
	}
	for i, x := range haystack.items {
		if Equal(x, needle) {
			return Number(float64(i))
		}
	}
	return Number(-1)
}
