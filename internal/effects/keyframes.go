package effects

import "sort"

// Keyframe is the transform applied to the whole object at one moment.
type Keyframe struct {
	Time   float64    `yaml:"time"`   // fraction of the duration, 0..1
	Offset [3]float64 `yaml:"offset"` // translation
	Scale  float64    `yaml:"scale"`  // about the centroid, 1 = unchanged
	Spin   float64    `yaml:"spin"`   // radians about +Z through the centroid
	Tint   [3]float64 `yaml:"tint"`   // per-channel color multiplier
	Alpha  float64    `yaml:"alpha"`  // opacity multiplier
}

// Rest is the identity transform at time u.
func Rest(u float64) Keyframe {
	return Keyframe{Time: u, Scale: 1, Tint: [3]float64{1, 1, 1}, Alpha: 1}
}

// Interpolate returns the eased transform at u between the surrounding
// keyframes, holding the first and last keyframes outside their range.
func Interpolate(keyframes []Keyframe, u float64) Keyframe {
	if len(keyframes) == 0 {
		return Rest(u)
	}
	if !sort.SliceIsSorted(keyframes, func(i, j int) bool { return keyframes[i].Time < keyframes[j].Time }) {
		sorted := append([]Keyframe(nil), keyframes...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
		keyframes = sorted
	}

	// If before first keyframe, use first keyframe
	if u <= keyframes[0].Time {
		kf := keyframes[0]
		kf.Time = u
		return kf
	}
	// If after last keyframe, use last keyframe
	if last := keyframes[len(keyframes)-1]; u >= last.Time {
		last.Time = u
		return last
	}

	var prev, next Keyframe
	for i := 0; i < len(keyframes)-1; i++ {
		if u >= keyframes[i].Time && u < keyframes[i+1].Time {
			prev, next = keyframes[i], keyframes[i+1]
			break
		}
	}

	span := next.Time - prev.Time
	if span == 0 {
		span = 0.001 // Avoid division by zero
	}
	k := easeInOutCubic((u - prev.Time) / span)

	out := Keyframe{
		Time:  u,
		Scale: lerp(prev.Scale, next.Scale, k),
		Spin:  lerp(prev.Spin, next.Spin, k),
		Alpha: lerp(prev.Alpha, next.Alpha, k),
	}
	for i := 0; i < 3; i++ {
		out.Offset[i] = lerp(prev.Offset[i], next.Offset[i], k)
		out.Tint[i] = lerp(prev.Tint[i], next.Tint[i], k)
	}
	return out
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
