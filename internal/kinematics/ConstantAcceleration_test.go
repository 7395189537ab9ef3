package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantBrakingDistances(t *testing.T) {
	m := ConstantAcceleration{AAcc: 1, ADcc: 1, AEmergency: 2, VMaxVal: 20}

	assert.InDelta(t, 200, m.BrakingDistance(20), 1e-9)
	assert.InDelta(t, 100, m.EmergencyBrakingDistance(20), 1e-9)
	assert.Zero(t, m.BrakingDistance(0))

	assert.True(t, math.IsInf(ConstantAcceleration{}.BrakingDistance(10), 1))
}

func TestConstantEmergencyNeverSofterThanService(t *testing.T) {
	m := ConstantAcceleration{AAcc: 1, ADcc: 1.5, AEmergency: 1.0, VMaxVal: 20}
	assert.Equal(t, 1.5, m.EmergencyDeceleration())
	assert.InDelta(t, m.BrakingDistance(10), m.EmergencyBrakingDistance(10), 1e-9)
}

func TestStopApproach(t *testing.T) {
	m := DefaultConstant

	tests := []struct {
		name string
		v, s float64
		want float64
	}{
		{"at the stop", 10, 0, -m.AEmergency},
		{"past the stop", 10, -3, -m.AEmergency},
		{"gentler than service braking", 10, 100, m.AAcc},
		{"exact stopping deceleration", 10, 25, -2},
		{"harsher than emergency", 10, 5, -m.AEmergency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.StopApproach(tt.v, tt.s), 1e-9)
		})
	}
}

func TestStopApproachBounded(t *testing.T) {
	m := DefaultConstant
	for v := 0.0; v <= m.VMaxVal; v += 0.5 {
		for s := 0.0; s <= 500; s += 2.5 {
			a := m.StopApproach(v, s)
			assert.GreaterOrEqual(t, a, -m.EmergencyDeceleration(), "v=%v s=%v", v, s)
			assert.LessOrEqual(t, a, m.Acceleration(), "v=%v s=%v", v, s)
		}
	}
}
