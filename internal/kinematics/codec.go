package kinematics

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownModel is returned for a "model" key no decoder is registered for.
var ErrUnknownModel = errors.New("unknown kinematics model")

// decoders read a motion model from its JSON object, keyed by the "model"
// discriminator. Each starts from the model's defaults so omitted rates keep
// them.
var decoders = map[string]func(json.RawMessage) (MotionModel, error){
	ConstantModelName: func(raw json.RawMessage) (MotionModel, error) {
		c := DefaultConstant
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	},
}

// Decode reads a motion model such as {"model": "constant", "v_max": 30}.
func Decode(raw json.RawMessage) (MotionModel, error) {
	var disc struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, fmt.Errorf("reading model discriminator: %w", err)
	}
	decode, ok := decoders[disc.Model]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, disc.Model)
	}
	m, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s kinematics: %w", disc.Model, err)
	}
	return m, nil
}

// Encode writes m in the form Decode reads back.
func Encode(m MotionModel) (json.RawMessage, error) {
	switch k := m.(type) {
	case ConstantAcceleration:
		return json.Marshal(struct {
			Model string `json:"model"`
			ConstantAcceleration
		}{ConstantModelName, k})
	}
	return nil, fmt.Errorf("cannot encode kinematics model %T", m)
}
