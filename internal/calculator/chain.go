package calculator

import (
	"fmt"
	"slices"
)

// Phase is the state of an operation chain.
type Phase int

const (
	// PhaseIdle has no pending operator.
	PhaseIdle Phase = iota
	// PhasePending has an operator pressed and no digits typed since.
	PhasePending
	// PhaseAccumulating has digits typed after the pending operator.
	PhaseAccumulating
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseAccumulating:
		return "accumulating"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhasePending, PhaseAccumulating} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Chain tracks a left-to-right sequence of binary operations. previous and
// op are meaningful only outside PhaseIdle.
type Chain struct {
	phase    Phase
	previous float64
	op       Operator
	operands []string
}

// Phase returns the current phase.
func (c *Chain) Phase() Phase { return c.phase }

// Pending returns the left operand and operator, or ok=false when idle.
func (c *Chain) Pending() (previous float64, op Operator, ok bool) {
	if c.phase == PhaseIdle {
		return 0, 0, false
	}
	return c.previous, c.op, true
}

// Operands returns a copy of the operands committed so far.
func (c *Chain) Operands() []string {
	return slices.Clone(c.operands)
}

// PressOperator commits the buffer's operand and arms op. It returns the
// running total and committed=true when an intermediate result was computed.
func (c *Chain) PressOperator(op Operator, text string, value float64) (total float64, committed bool) {
	switch c.phase {
	case PhaseIdle:
		c.previous = value
		c.operands = append(c.operands[:0], text)
	case PhasePending:
		// Operator substitution: nothing is committed.
	case PhaseAccumulating:
		c.previous = c.op.Apply(c.previous, value)
		c.operands = append(c.operands, text)
		committed = true
	}
	c.op = op
	c.phase = PhasePending
	return c.previous, committed
}

// OperandStarted moves a pending chain to accumulating once a digit or
// decimal point begins the right operand.
func (c *Chain) OperandStarted() {
	if c.phase == PhasePending {
		c.phase = PhaseAccumulating
	}
}

// Complete hands the chain to equals: it returns the left operand, the
// operator and every operand including the final one, then resets to idle.
func (c *Chain) Complete(text string) (previous float64, op Operator, operands []string) {
	previous, op = c.previous, c.op
	operands = append(slices.Clone(c.operands), text)
	c.Reset()
	return previous, op, operands
}

// Reset returns the chain to idle.
func (c *Chain) Reset() {
	*c = Chain{}
}
