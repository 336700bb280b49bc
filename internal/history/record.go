// Package history stores completed calculations and applies late address
// patches to them.
package history

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// OperationAgeCalculation marks a record produced from a standalone birth year.
const OperationAgeCalculation = "age_calculation"

// Record is one completed calculation. ID is assigned at creation and is the
// key for address patches.
type Record struct {
	ID              string   `json:"id"`
	Expression      string   `json:"expression"`
	Result          Value    `json:"result"`
	ActualResult    Value    `json:"actualResult"`
	ForcedResult    *Value   `json:"forcedResult"`
	Forced          bool     `json:"forced"`
	Timestamp       string   `json:"timestamp"`
	OperationType   string   `json:"operationType"`
	Operands        []string `json:"operands"`
	Year            *int     `json:"year,omitempty"`
	Age             *int     `json:"age,omitempty"`
	Pincode         *string  `json:"pincode,omitempty"`
	AddressTaluk    *string  `json:"addressTaluk"`
	AddressDistrict *string  `json:"addressDistrict"`
	AddressState    *string  `json:"addressState"`
}

// HasAddress reports whether any address field has been written.
func (r Record) HasAddress() bool {
	return r.AddressTaluk != nil || r.AddressDistrict != nil || r.AddressState != nil
}

// AddressPatch carries a resolved address for a pincode record. An empty
// RecordID falls back to the most recent unresolved record with Pincode.
type AddressPatch struct {
	RecordID        string `json:"recordId,omitempty"`
	Pincode         string `json:"pincode"`
	AddressTaluk    string `json:"addressTaluk"`
	AddressDistrict string `json:"addressDistrict"`
	AddressState    string `json:"addressState"`
}

func (p AddressPatch) apply(r *Record) {
	taluk, district, state := p.AddressTaluk, p.AddressDistrict, p.AddressState
	r.AddressTaluk = &taluk
	r.AddressDistrict = &district
	r.AddressState = &state
}

// matches reports whether p may be written onto r.
func (p AddressPatch) matches(r Record) bool {
	if r.HasAddress() || r.Pincode == nil || *r.Pincode != p.Pincode {
		return false
	}
	return p.RecordID == "" || r.ID == p.RecordID
}

// Value is a calculation result. Non-finite values are encoded as the JSON
// strings "Infinity", "-Infinity" and "NaN".
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "NaN":
			*v = Value(math.NaN())
		case "Infinity":
			*v = Value(math.Inf(1))
		case "-Infinity":
			*v = Value(math.Inf(-1))
		default:
			return fmt.Errorf("history: invalid value %q", s)
		}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("history: invalid value: %w", err)
	}
	*v = Value(f)
	return nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
