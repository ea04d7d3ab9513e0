package amat

import (
	"fmt"
	"sort"
)

// ControlProfile returns the bank angle (rad) to fly at time t (s since epoch) in state s.
type ControlProfile interface {
	BankAngle(t float64, s VehicleState) float64
}

// ControlFunc adapts a function to a ControlProfile.
type ControlFunc func(t float64, s VehicleState) float64

// BankAngle implements the ControlProfile interface.
func (f ControlFunc) BankAngle(t float64, s VehicleState) float64 {
	return f(t, s)
}

// ConstantBank flies the same bank angle (rad) for the whole propagation.
type ConstantBank float64

// ConstantBankDeg returns a constant bank profile from degrees.
func ConstantBankDeg(deg float64) ConstantBank {
	return ConstantBank(deg * deg2rad)
}

// BankAngle implements the ControlProfile interface.
func (c ConstantBank) BankAngle(float64, VehicleState) float64 {
	return float64(c)
}

func (c ConstantBank) String() string {
	return fmt.Sprintf("constant bank %.1f deg", float64(c)*rad2deg)
}

// BankSchedule is a piecewise constant bank angle: Angles[i] (rad) is flown from Times[i] (s)
// until Times[i+1]. The first angle is also flown before Times[0].
type BankSchedule struct {
	Times  []float64
	Angles []float64
}

// NewBankSchedule returns a validated schedule from times (s) and angles in degrees.
func NewBankSchedule(times, anglesDeg []float64) (*BankSchedule, error) {
	if len(times) == 0 || len(times) != len(anglesDeg) {
		return nil, &ConfigurationError{Field: "bank schedule", Reason: fmt.Sprintf("need as many times as angles, got %d and %d", len(times), len(anglesDeg))}
	}
	if !sort.Float64sAreSorted(times) {
		return nil, &ConfigurationError{Field: "bank schedule", Reason: "times must be increasing"}
	}
	angles := make([]float64, len(anglesDeg))
	for i, a := range anglesDeg {
		angles[i] = a * deg2rad
	}
	return &BankSchedule{Times: append([]float64(nil), times...), Angles: angles}, nil
}

// BankAngle implements the ControlProfile interface.
func (b *BankSchedule) BankAngle(t float64, _ VehicleState) float64 {
	i := sort.Search(len(b.Times), func(i int) bool { return b.Times[i] > t })
	if i == 0 {
		return b.Angles[0]
	}
	return b.Angles[i-1]
}

func (b *BankSchedule) String() string {
	return fmt.Sprintf("bank schedule (%d segments)", len(b.Times))
}
