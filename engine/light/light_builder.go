package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ComponentOption is a function that configures a light Component during construction.
type ComponentOption func(*Component)

// NewComponent creates an enabled white light of the given type with unit intensity.
// Directional and spot lights point down -Y unless WithDirection is given.
//
// Parameters:
//   - t: the light type
//   - options: variadic list of ComponentOption functions
//
// Returns:
//   - Component: the configured light
func NewComponent(t Type, options ...ComponentOption) Component {
	c := Component{
		Type:      t,
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
		Range:     10,
		Direction: mgl32.Vec3{0, -1, 0},
		Enabled:   true,
		InnerCone: cosDeg(15),
		OuterCone: cosDeg(30),
	}
	for _, opt := range options {
		opt(&c)
	}
	return c
}

// WithDirection sets the light direction. The direction is normalized before storing;
// a zero vector is kept as zero and makes directional and spot lights invalid.
//
// Parameters:
//   - d: the direction in the entity's local space
//
// Returns:
//   - ComponentOption: a function that applies the direction option to a Component
func WithDirection(d mgl32.Vec3) ComponentOption {
	return func(c *Component) {
		c.Direction = normalize(d)
	}
}

// WithColor sets the RGB color of the light.
//
// Parameters:
//   - color: the linear RGB color
//
// Returns:
//   - ComponentOption: a function that applies the color option to a Component
func WithColor(color mgl32.Vec3) ComponentOption {
	return func(c *Component) {
		c.Color = color
	}
}

// WithIntensity sets the scalar intensity multiplier.
func WithIntensity(intensity float32) ComponentOption {
	return func(c *Component) {
		c.Intensity = intensity
	}
}

// WithRange sets the maximum attenuation distance for point and spot lights.
func WithRange(lightRange float32) ComponentOption {
	return func(c *Component) {
		c.Range = lightRange
	}
}

// WithSpotCone sets the inner and outer cone half-angles for spot lights.
// Angles are given in degrees and stored as cosines, which is what shaders compare against.
//
// Parameters:
//   - innerDeg: inner cone half-angle in degrees
//   - outerDeg: outer cone half-angle in degrees
//
// Returns:
//   - ComponentOption: a function that applies the spot cone option to a Component
func WithSpotCone(innerDeg, outerDeg float32) ComponentOption {
	return func(c *Component) {
		c.InnerCone = cosDeg(innerDeg)
		c.OuterCone = cosDeg(outerDeg)
	}
}

// WithEnabled sets whether the light is active.
func WithEnabled(enabled bool) ComponentOption {
	return func(c *Component) {
		c.Enabled = enabled
	}
}

// WithCastsShadows marks the light as the source of the shadowcaster pass.
// Only the first enabled directional light with this flag is used.
func WithCastsShadows(castsShadows bool) ComponentOption {
	return func(c *Component) {
		c.CastsShadows = castsShadows
	}
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{}
	}
	return v.Normalize()
}

// cosDeg converts an angle in degrees to the cosine of that angle in radians.
func cosDeg(deg float32) float32 {
	return float32(math.Cos(float64(deg) * math.Pi / 180.0))
}
