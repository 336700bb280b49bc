package calculator

import (
	"fmt"
	"strconv"
	"time"

	"forcecalc/internal/geocode"
	"forcecalc/internal/history"
)

const (
	minBirthYear = 1900
	maxBirthYear = 2100

	timestampLayout = "2006-01-02T15:04:05.000"
)

// recordBuilder assembles history records.
type recordBuilder struct {
	now   func() time.Time
	newID func() string
}

func (b recordBuilder) standard(ev Evaluation, res Resolution, operands []string) history.Record {
	rec := history.Record{
		ID:            b.newID(),
		Expression:    fmt.Sprintf("%s %s %s", FormatNumber(ev.Previous), ev.Op, FormatNumber(ev.Current)),
		Result:        history.Value(res.Reported),
		ActualResult:  history.Value(res.Actual),
		Forced:        res.Forced,
		Timestamp:     b.now().Format(timestampLayout),
		OperationType: ev.Op.String(),
		Operands:      operands,
	}
	if res.Forced {
		rec.ForcedResult = history.Ptr(history.Value(res.Reported))
	}
	return rec
}

func (b recordBuilder) age(year int, text string) history.Record {
	now := b.now()
	age := now.Year() - year
	return history.Record{
		ID:            b.newID(),
		Expression:    fmt.Sprintf("Birth year %d", year),
		Result:        history.Value(age),
		ActualResult:  history.Value(age),
		Timestamp:     now.Format(timestampLayout),
		OperationType: history.OperationAgeCalculation,
		Operands:      []string{text},
		Year:          history.Ptr(year),
		Age:           history.Ptr(age),
	}
}

// birthYear reports whether text is exactly four digits naming a year in
// [1900, 2100].
func birthYear(text string) (int, bool) {
	if len(text) != 4 {
		return 0, false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(text)
	if err != nil || year < minBirthYear || year > maxBirthYear {
		return 0, false
	}
	return year, true
}

// findPincode returns the first pincode-shaped operand anywhere in the chain.
func findPincode(operands []string) (string, bool) {
	for _, op := range operands {
		if geocode.IsPincode(op) {
			return op, true
		}
	}
	return "", false
}
