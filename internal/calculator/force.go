package calculator

// ForceConfig is the host-owned forcing configuration. A nil number disables
// its tier. Forcing applies only when NormalModeEnabled is false and the
// operator is + or -.
type ForceConfig struct {
	ForcedNumber             *float64 `json:"forced_number"`
	SecondForceNumber        *float64 `json:"second_force_number"`
	SecondForceTriggerNumber *float64 `json:"second_force_trigger_number"`
	NormalModeEnabled        bool     `json:"normal_mode_enabled"`
}

// Evaluation is one equals press.
type Evaluation struct {
	Previous float64
	Current  float64
	Op       Operator
}

// Resolution is what equals reports. Actual is always the true result.
type Resolution struct {
	Reported float64
	Actual   float64
	Forced   bool
}

// Resolve decides the reported value for ev. First match wins:
//  1. normal mode or a non +/- operator: the true result
//  2. trigger equals either operand: SecondForceNumber
//  3. ForcedNumber
//  4. the true result
func Resolve(ev Evaluation, cfg ForceConfig) Resolution {
	actual := ev.Op.Apply(ev.Previous, ev.Current)
	res := Resolution{Reported: actual, Actual: actual}

	if cfg.NormalModeEnabled || !ev.Op.Forceable() {
		return res
	}

	if t := cfg.SecondForceTriggerNumber; t != nil && cfg.SecondForceNumber != nil &&
		(*t == ev.Current || *t == ev.Previous) {
		res.Reported = *cfg.SecondForceNumber
		res.Forced = true
		return res
	}

	if cfg.ForcedNumber != nil {
		res.Reported = *cfg.ForcedNumber
		res.Forced = true
	}
	return res
}
