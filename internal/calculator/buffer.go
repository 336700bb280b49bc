package calculator

import "strings"

// Buffer is the number currently being edited. Its text is never empty and
// holds at most one decimal point. While waiting, the next digit or decimal
// point replaces the text instead of extending it.
type Buffer struct {
	text    string
	waiting bool
}

// NewBuffer returns a buffer showing "0".
func NewBuffer() Buffer {
	return Buffer{text: "0"}
}

// Text returns the display text.
func (b *Buffer) Text() string { return b.text }

// Value parses the display text; malformed text is NaN.
func (b *Buffer) Value() float64 { return parseNumber(b.text) }

// Waiting reports whether the next digit starts a new operand.
func (b *Buffer) Waiting() bool { return b.waiting }

// AppendDigit adds d, which must be '0'..'9'. It reports whether the buffer
// left the waiting state.
func (b *Buffer) AppendDigit(d byte) bool {
	if b.waiting {
		b.text = string(d)
		b.waiting = false
		return true
	}
	if b.text == "0" {
		b.text = string(d)
	} else {
		b.text += string(d)
	}
	return false
}

// AppendDecimal adds a decimal point unless one is already present.
func (b *Buffer) AppendDecimal() bool {
	if b.waiting {
		b.text = "0."
		b.waiting = false
		return true
	}
	if !strings.Contains(b.text, ".") {
		b.text += "."
	}
	return false
}

// ToggleSign negates the value and re-renders it, which may normalise the
// text (trailing zeros and a trailing point are dropped).
func (b *Buffer) ToggleSign() {
	b.text = FormatNumber(-b.Value())
}

// ApplyPercent divides the value by 100 in place.
func (b *Buffer) ApplyPercent() {
	b.text = FormatNumber(b.Value() / 100)
}

// Backspace removes the last character, falling back to "0".
func (b *Buffer) Backspace() {
	if len(b.text) <= 1 {
		b.text = "0"
		return
	}
	b.text = b.text[:len(b.text)-1]
	if b.text == "-" {
		b.text = "0"
	}
}

// Clear resets the buffer to "0".
func (b *Buffer) Clear() {
	b.text = "0"
	b.waiting = false
}

// show displays a committed value and waits for the next operand.
func (b *Buffer) show(text string) {
	b.text = text
	b.waiting = true
}

// wait keeps the current text and waits for the next operand.
func (b *Buffer) wait() {
	b.waiting = true
}
