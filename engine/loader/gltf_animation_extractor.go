package loader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-ecs/engine/animator"

	"github.com/go-gl/mathgl/mgl32"
)

// track is one sampled path of one node: n components per key.
type track struct {
	times  []float32
	values []float32
	n      int
	step   bool
}

// readTrack reads a sampler. Cubic spline samplers keep only their value, dropping tangents.
func (p *gltfParser) readTrack(anim *gltfAnimation, samplerIndex, n int) (*track, error) {
	if samplerIndex < 0 || samplerIndex >= len(anim.Samplers) {
		return nil, fmt.Errorf("%w: sampler %d out of range", ErrInvalidGLTF, samplerIndex)
	}
	s := &anim.Samplers[samplerIndex]
	times, err := p.readFloats(s.Input, "SCALAR")
	if err != nil {
		return nil, fmt.Errorf("sampler %d input: %w", samplerIndex, err)
	}
	accType := "VEC3"
	if n == 4 {
		accType = "VEC4"
	}
	values, err := p.readFloats(s.Output, accType)
	if err != nil {
		return nil, fmt.Errorf("sampler %d output: %w", samplerIndex, err)
	}
	if s.Interpolation == gltfInterpolationCubicSpline {
		kept := make([]float32, 0, len(values)/3)
		for k := 0; k+3*n <= len(values); k += 3 * n {
			kept = append(kept, values[k+n:k+2*n]...)
		}
		values = kept
	}
	if len(times) == 0 || len(values) != len(times)*n {
		return nil, fmt.Errorf("%w: sampler %d has %d times and %d values", ErrInvalidGLTF, samplerIndex, len(times), len(values)/n)
	}
	return &track{times: times, values: values, n: n, step: s.Interpolation == gltfInterpolationStep}, nil
}

func (t *track) key(i int) []float32 {
	return t.values[i*t.n : (i+1)*t.n]
}

// sample evaluates the track at time at, clamping outside its key range.
func (t *track) sample(at float32) []float32 {
	last := len(t.times) - 1
	if at <= t.times[0] {
		return t.key(0)
	}
	if at >= t.times[last] {
		return t.key(last)
	}
	hi, found := slices.BinarySearch(t.times, at)
	if found {
		return t.key(hi)
	}
	lo := hi - 1
	if t.step {
		return t.key(lo)
	}
	f := (at - t.times[lo]) / (t.times[hi] - t.times[lo])
	a, b := t.key(lo), t.key(hi)
	if t.n == 4 {
		q := quatSlerp(gltfQuat(a), gltfQuat(b), f)
		return []float32{q.V[0], q.V[1], q.V[2], q.W}
	}
	out := make([]float32, t.n)
	for c := range out {
		out[c] = a[c] + (b[c]-a[c])*f
	}
	return out
}

// quatSlerp interpolates along the shorter arc.
func quatSlerp(a, b mgl32.Quat, f float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, f).Normalize()
}

// extractClip converts an animation into one source channel per skeleton bone. Every bone is
// sampled on the same timeline, the union of all track times in the clip, so keyframe k is the
// same instant for a bone and its parent. A path the animation does not drive holds the rest
// pose. Times are shifted so the clip starts at 0.
func (p *gltfParser) extractClip(animIndex int, sk *gltfSkeleton) (animator.Clip, error) {
	anim := &p.doc.Animations[animIndex]
	clip := animator.Clip{
		Name:     anim.Name,
		Channels: make([]animator.SourceChannel, len(sk.Bones)),
	}
	if clip.Name == "" {
		clip.Name = fmt.Sprintf("animation_%d", animIndex)
	}

	tracks := make([][3]*track, len(sk.Bones))
	var times []float32
	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if ch.Target.Node == nil {
			continue
		}
		bone, ok := sk.NodeToBone[*ch.Target.Node]
		if !ok {
			continue
		}
		slot, n := -1, 3
		switch ch.Target.Path {
		case gltfPathTranslation:
			slot = 0
		case gltfPathRotation:
			slot, n = 1, 4
		case gltfPathScale:
			slot = 2
		default:
			continue
		}
		tr, err := p.readTrack(anim, ch.Sampler, n)
		if err != nil {
			return clip, fmt.Errorf("animation %s channel %d: %w", clip.Name, i, err)
		}
		tracks[bone][slot] = tr
		times = append(times, tr.times...)
	}
	slices.Sort(times)
	times = slices.Compact(times)
	if len(times) == 0 {
		times = []float32{0}
	}
	start := times[0]
	clip.Duration = float64(times[len(times)-1] - start)

	for b := range sk.Bones {
		rest := sk.Rest[b]
		out := &clip.Channels[b]
		for _, at := range times {
			key := float64(at - start)
			pos, rot, scale := rest.T, rest.R, rest.S
			if tr := tracks[b][0]; tr != nil {
				pos = mgl32.Vec3(tr.sample(at))
			}
			if tr := tracks[b][1]; tr != nil {
				rot = gltfQuat(tr.sample(at))
			}
			if tr := tracks[b][2]; tr != nil {
				scale = mgl32.Vec3(tr.sample(at))
			}
			out.PositionKeys = append(out.PositionKeys, animator.VectorKey{Time: key, Value: pos})
			out.RotationKeys = append(out.RotationKeys, animator.QuatKey{Time: key, Value: rot})
			out.ScaleKeys = append(out.ScaleKeys, animator.VectorKey{Time: key, Value: scale})
		}
	}
	return clip, nil
}
