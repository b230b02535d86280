package camera

import "math"

// ScreenOffset converts a pixel on a w x h frame into angular offsets from the
// optical axis for a lens with the given horizontal and vertical field of view.
// Positive ay is up.
func ScreenOffset(px, py, w, h, hfov, vfov float64) (ax, ay float64) {
	nx := (2*px)/w - 1
	ny := 1 - (2*py)/h
	return nx * hfov / 2, ny * vfov / 2
}

// AbsoluteTarget returns the pan/tilt angles that put the pixel (px, py) on the
// optical axis, given the current azimuth and elevation. Azimuth is wrapped into
// [0, 360).
func AbsoluteTarget(az, el, px, py, w, h, hfov, vfov float64) (float64, float64) {
	ax, ay := ScreenOffset(px, py, w, h, hfov, vfov)
	target := math.Mod(az+ax+360, 360)
	if target < 0 {
		target += 360
	}
	return target, el + ay
}
