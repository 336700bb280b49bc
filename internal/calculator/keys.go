package calculator

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is returned by ParseKey for unrecognised key names.
var ErrUnknownKey = errors.New("unknown key")

// KeyKind classifies a calculator key.
type KeyKind int

const (
	KeyDigit KeyKind = iota + 1
	KeyDecimal
	KeyOperator
	KeyEquals
	KeySign
	KeyPercent
	KeyBackspace
	KeyClear
)

// Key is one calculator key.
type Key struct {
	Kind  KeyKind
	Digit byte
	Op    Operator
}

func (k Key) String() string {
	switch k.Kind {
	case KeyDigit:
		return string(k.Digit)
	case KeyDecimal:
		return "."
	case KeyOperator:
		return k.Op.String()
	case KeyEquals:
		return "="
	case KeySign:
		return "sign"
	case KeyPercent:
		return "percent"
	case KeyBackspace:
		return "back"
	case KeyClear:
		return "clear"
	}
	return fmt.Sprintf("Key(%d)", int(k.Kind))
}

// Digit returns the key for d, which must be '0'..'9'.
func Digit(d byte) Key { return Key{Kind: KeyDigit, Digit: d} }

// OperatorKey returns the key for op.
func OperatorKey(op Operator) Key { return Key{Kind: KeyOperator, Op: op} }

// ParseKey maps a key name to a Key. The remainder operator is spelled
// "mod" because "%" is the percent key.
func ParseKey(s string) (Key, error) {
	if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
		return Digit(s[0]), nil
	}

	switch s {
	case ".", "decimal":
		return Key{Kind: KeyDecimal}, nil
	case "=", "equals":
		return Key{Kind: KeyEquals}, nil
	case "sign", "+/-", "±":
		return Key{Kind: KeySign}, nil
	case "percent", "%":
		return Key{Kind: KeyPercent}, nil
	case "back", "backspace", "⌫":
		return Key{Kind: KeyBackspace}, nil
	case "clear", "C", "AC":
		return Key{Kind: KeyClear}, nil
	case "mod":
		return OperatorKey(OpModulo), nil
	}

	if op, err := ParseOperator(s); err == nil {
		return OperatorKey(op), nil
	}
	return Key{}, fmt.Errorf("%w %q", ErrUnknownKey, s)
}
