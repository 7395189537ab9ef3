// Package kinematics defines the MotionModel interface for vehicle traction and braking
// physics, the built-in point-mass implementation, and the control law that picks a
// train's acceleration each tick.
//
// Adding a new physics model requires only implementing MotionModel and registering it
// in the JSON discriminator in the train package; the fleet never needs to change.
package kinematics

// MotionModel is the physics contract every kinematics implementation must satisfy.
// All distance values are in metres, velocities in m/s, and time in seconds.
// Decelerations are returned as positive magnitudes.
type MotionModel interface {
	// VMax returns the vehicle's maximum permissible speed (m/s).
	VMax() float64

	// Acceleration returns the traction acceleration used to power up to cruise.
	Acceleration() float64

	// Deceleration returns the service braking rate.
	Deceleration() float64

	// EmergencyDeceleration returns the emergency braking rate.
	EmergencyDeceleration() float64

	// BrakingDistance returns the distance needed to stop from v under service braking.
	BrakingDistance(v float64) float64

	// EmergencyBrakingDistance returns the distance needed to stop from v under
	// emergency braking.
	EmergencyBrakingDistance(v float64) float64

	// StopApproach returns the acceleration to apply when a stop lies s metres
	// ahead and the vehicle moves at v. Positive values mean braking is not yet needed.
	StopApproach(v, s float64) float64
}
