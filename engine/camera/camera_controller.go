package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController owns the camera's positional state. It orbits a target point using
// spherical coordinates (radius, azimuth, elevation) and pans along the camera's local axes.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space camera position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: world-space target position
	Target() mgl32.Vec3

	// SetTarget sets the look-at/pivot point and recomputes position from spherical coordinates.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target mgl32.Vec3)

	// Zoom adjusts the orbit radius. Positive delta zooms in (closer to target).
	//
	// Parameters:
	//   - delta: zoom amount scaled by the zoom speed
	Zoom(delta float32)

	// Orbit rotates around the target by the given number of orbit speed steps.
	// Elevation is clamped to the controller's bounds.
	//
	// Parameters:
	//   - azimuthSteps: steps around the Y axis, positive rotates right
	//   - elevationSteps: steps up from the horizontal plane, positive tilts up
	Orbit(azimuthSteps, elevationSteps float32)

	// Pan translates position and target together along the camera's local right and up axes.
	//
	// Parameters:
	//   - right: pan amount along the right axis, scaled by the pan speed
	//   - up: pan amount along the up axis, scaled by the pan speed
	Pan(right, up float32)

	// Radius returns the current orbit radius (distance from target).
	Radius() float32

	// Azimuth returns the current horizontal angle around the Y axis in radians.
	Azimuth() float32

	// Elevation returns the current vertical angle from the horizontal plane in radians.
	Elevation() float32
}
