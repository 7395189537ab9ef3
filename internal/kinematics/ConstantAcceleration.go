package kinematics

import "math"

// ConstantModelName is the JSON discriminator string for the Constant model.
const ConstantModelName = "constant"

// ConstantAcceleration implements MotionModel using fixed acceleration and deceleration rates.
// This is the default and simplest kinematics model.
//
// JSON discriminator: "model": "constant"
type ConstantAcceleration struct {
	AAcc       float64 `json:"a_acc"`       // traction acceleration, m/s²
	ADcc       float64 `json:"a_dcc"`       // service braking deceleration, m/s² (positive)
	AEmergency float64 `json:"a_emergency"` // emergency braking deceleration, m/s² (positive)
	VMaxVal    float64 `json:"v_max"`       // maximum speed, m/s
}

// DefaultConstant is a suburban EMU: 80 km/h, 1.0 m/s² traction,
// 1.2 m/s² service braking and 2.5 m/s² emergency braking.
var DefaultConstant = ConstantAcceleration{
	AAcc:       1.0,
	ADcc:       1.2,
	AEmergency: 2.5,
	VMaxVal:    80 / 3.6,
}

func (c ConstantAcceleration) VMax() float64                  { return c.VMaxVal }
func (c ConstantAcceleration) Acceleration() float64          { return c.AAcc }
func (c ConstantAcceleration) Deceleration() float64          { return c.ADcc }
func (c ConstantAcceleration) EmergencyDeceleration() float64 { return c.emergency() }

// emergency never brakes softer than service braking.
func (c ConstantAcceleration) emergency() float64 {
	return math.Max(c.AEmergency, c.ADcc)
}

func (c ConstantAcceleration) BrakingDistance(v float64) float64 {
	return stoppingDistance(v, c.ADcc)
}

func (c ConstantAcceleration) EmergencyBrakingDistance(v float64) float64 {
	return stoppingDistance(v, c.emergency())
}

// StopApproach solves v² = u² + 2as for the deceleration that stops the
// vehicle exactly s metres ahead. While that is gentler than service braking
// the vehicle keeps powering; it never brakes harder than emergency braking.
func (c ConstantAcceleration) StopApproach(v, s float64) float64 {
	if s <= 0 {
		return -c.emergency()
	}
	a := -(v * v) / (2 * s)
	switch {
	case -a < c.ADcc:
		return c.AAcc
	case -a > c.emergency():
		return -c.emergency()
	}
	return a
}

func stoppingDistance(v, dcc float64) float64 {
	if dcc <= 0 {
		return math.Inf(1)
	}
	return (v * v) / (2 * dcc)
}
