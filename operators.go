package sonny

// Op selects the operation an Expression applies.
type Op uint8

const (
	OpValue Op = iota // pass the operand through
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpPow
	OpMin
	OpMax
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpEqual
	OpNotEqual
	OpAnd
	OpOr
	OpNegate
	OpSin
	OpCos
	OpFloor
	OpCeil
	OpAbs
	OpLn
	OpTernary
	OpIndex
	OpSubArray
	OpAverage
	OpConcat
	OpLength
	OpFind
	OpFFT
	numOps
)

type operator struct {
	name   string
	alias  string
	arity  int
	window bool // consumes the whole window, see fft.go
	apply  func(x []Value) (Value, error)
}

func unary(f func(Value) Value) func([]Value) (Value, error) {
	return func(x []Value) (Value, error) { return f(x[0]), nil }
}

func binary(f func(a, b Value) Value) func([]Value) (Value, error) {
	return func(x []Value) (Value, error) { return f(x[0], x[1]), nil }
}

// operators is effectively a constant and not mutated
// name, alias, arity, window, apply
var operators = [numOps]operator{
	OpValue:        {"value", "", 1, not, unary(func(v Value) Value { return v })},
	OpAdd:          {"add", "+", 2, not, binary(Add)},
	OpSub:          {"sub", "-", 2, not, binary(Sub)},
	OpMul:          {"mul", "*", 2, not, binary(Mul)},
	OpDiv:          {"div", "/", 2, not, binary(Div)},
	OpRem:          {"rem", "%", 2, not, binary(Rem)},
	OpPow:          {"pow", "^", 2, not, binary(Pow)},
	OpMin:          {"min", "", 2, not, binary(Min)},
	OpMax:          {"max", "", 2, not, binary(Max)},
	OpLess:         {"lt", "<", 2, not, binary(Less)},
	OpGreater:      {"gt", ">", 2, not, binary(Greater)},
	OpLessEqual:    {"le", "<=", 2, not, binary(LessEqual)},
	OpGreaterEqual: {"ge", ">=", 2, not, binary(GreaterEqual)},
	OpEqual:        {"eq", "==", 2, not, binary(Eq)},
	OpNotEqual:     {"ne", "!=", 2, not, binary(NotEq)},
	OpAnd:          {"and", "&&", 2, not, binary(And)},
	OpOr:           {"or", "||", 2, not, binary(Or)},
	OpNegate:       {"neg", "", 1, not, unary(Negate)},
	OpSin:          {"sin", "", 1, not, unary(Sin)},
	OpCos:          {"cos", "", 1, not, unary(Cos)},
	OpFloor:        {"floor", "", 1, not, unary(Floor)},
	OpCeil:         {"ceil", "", 1, not, unary(Ceil)},
	OpAbs:          {"abs", "", 1, not, unary(Abs)},
	OpLn:           {"ln", "", 1, not, unary(Ln)},
	OpTernary: {"ternary", "?", 3, not, func(x []Value) (Value, error) {
		return Ternary(x[0], x[1], x[2]), nil
	}},
	OpIndex: {"index", "", 2, not, func(x []Value) (Value, error) {
		return Index(x[0], x[1])
	}},
	OpSubArray: {"sub_array", "", 3, not, func(x []Value) (Value, error) {
		return SubArray(x[0], x[1], x[2])
	}},
	OpAverage: {"average", "avg", 1, not, unary(Average)},
	OpConcat:  {"concat", "++", 2, not, binary(Concat)},
	OpLength: {"length", "len", 1, not, unary(func(v Value) Value {
		return Number(float64(Length(v)))
	})},
	OpFind: {"find", "", 2, not, binary(Find)},
	OpFFT:  {"fft", "", 1, yes, nil},
}

var opNames = func() map[string]Op {
	m := make(map[string]Op, 2*numOps)
	for i, o := range operators {
		m[o.name] = Op(i)
		if o.alias != "" {
			m[o.alias] = Op(i)
		}
	}
	return m
}()

func (op Op) String() string {
	if op >= numOps {
		return sf("Op(%d)", uint8(op))
	}
	return operators[op].name
}

// Arity is the number of operands op takes.
func (op Op) Arity() int { return operators[op].arity }

// ParseOp looks an operation up by name or symbol, eg. "mul" or "*".
func ParseOp(s string) (Op, bool) {
	op, ok := opNames[s]
	return op, ok
}
