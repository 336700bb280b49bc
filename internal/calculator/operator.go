package calculator

import (
	"fmt"
	"math"
)

// Operator is a binary calculator operator.
type Operator int

const (
	OpAdd Operator = iota + 1
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
)

// String returns the operator's display symbol.
func (o Operator) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "×"
	case OpDivide:
		return "÷"
	case OpModulo:
		return "%"
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Valid reports whether o is one of the declared operators.
func (o Operator) Valid() bool {
	return o >= OpAdd && o <= OpModulo
}

// Forceable reports whether a forced number may replace this operator's result.
func (o Operator) Forceable() bool {
	return o == OpAdd || o == OpSubtract
}

// Apply computes a op b with IEEE-754 semantics: division by zero yields
// ±Inf or NaN, and the remainder takes the sign of a.
func (o Operator) Apply(a, b float64) float64 {
	switch o {
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	case OpDivide:
		return a / b
	case OpModulo:
		return math.Mod(a, b)
	}
	panic(fmt.Sprintf("calculator: apply with invalid operator %d", int(o)))
}

// ParseOperator accepts display symbols and their ASCII spellings.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "+", "add":
		return OpAdd, nil
	case "-", "subtract":
		return OpSubtract, nil
	case "×", "*", "x", "multiply":
		return OpMultiply, nil
	case "÷", "/", "divide":
		return OpDivide, nil
	case "%", "mod":
		return OpModulo, nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

func (o Operator) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid operator %d", int(o))
	}
	return []byte(o.String()), nil
}

func (o *Operator) UnmarshalText(text []byte) error {
	op, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
