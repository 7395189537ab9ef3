package train

import (
	"encoding/json"
	"fmt"

	"github.com/cxd309/railsim/internal/kinematics"
)

// Vehicle is one kind of rolling stock. In JSON its motion model sits under
// "kinematics" and is picked by that object's "model" key.
type Vehicle struct {
	Name   string
	Length float64 // metres kept clear behind this vehicle
	Kinem  kinematics.MotionModel
}

// DefaultVehicle is a point-mass vehicle with the default constant kinematics.
func DefaultVehicle() Vehicle {
	return Vehicle{Name: "default", Kinem: kinematics.DefaultConstant}
}

type vehicleWire struct {
	Name   string          `json:"name"`
	Length float64         `json:"length"`
	Kinem  json.RawMessage `json:"kinematics,omitempty"`
}

func (v *Vehicle) UnmarshalJSON(data []byte) error {
	var w vehicleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.Kinem) == 0 {
		return fmt.Errorf("vehicle %q: missing kinematics", w.Name)
	}
	m, err := kinematics.Decode(w.Kinem)
	if err != nil {
		return fmt.Errorf("vehicle %q: %w", w.Name, err)
	}
	*v = Vehicle{Name: w.Name, Length: w.Length, Kinem: m}
	return nil
}

func (v Vehicle) MarshalJSON() ([]byte, error) {
	w := vehicleWire{Name: v.Name, Length: v.Length}
	if v.Kinem != nil {
		raw, err := kinematics.Encode(v.Kinem)
		if err != nil {
			return nil, fmt.Errorf("vehicle %q: %w", v.Name, err)
		}
		w.Kinem = raw
	}
	return json.Marshal(w)
}
