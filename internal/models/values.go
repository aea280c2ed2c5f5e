package models

import "time"

// ValueState records how a coerced cell value was obtained.
type ValueState string

const (
	ValueMissing     ValueState = "missing"
	ValueValid       ValueState = "valid"
	ValueDerived     ValueState = "derived"
	ValueUnparseable ValueState = "unparseable"
)

type Number struct {
	Value float64    `json:"value"`
	State ValueState `json:"state"`
}

func ValidNumber(v float64) Number {
	return Number{Value: v, State: ValueValid}
}

func DerivedNumber(v float64) Number {
	return Number{Value: v, State: ValueDerived}
}

// Present reports whether the number carries a usable value.
func (n Number) Present() bool {
	return n.State == ValueValid || n.State == ValueDerived
}

// OrZero returns the value, or 0 for missing and unparseable cells.
func (n Number) OrZero() float64 {
	if !n.Present() {
		return 0
	}
	return n.Value
}

type Timestamp struct {
	Time  time.Time  `json:"time,omitzero"`
	State ValueState `json:"state"`
}

func ValidTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, State: ValueValid}
}

func (t Timestamp) Known() bool {
	return t.State == ValueValid
}
