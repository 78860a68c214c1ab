package pipeline

import "image"

// ComputeRegion is the square of half-width radius around center, clamped to
// bounds. For non-empty bounds and a positive radius the result always has
// positive area, even when center lies on or outside an edge.
func ComputeRegion(bounds image.Rectangle, center image.Point, radius int) image.Rectangle {
	if bounds.Empty() {
		return image.Rectangle{}
	}
	if radius < 1 {
		radius = 1
	}
	cx := clamp(center.X, bounds.Min.X, bounds.Max.X-1)
	cy := clamp(center.Y, bounds.Min.Y, bounds.Max.Y-1)

	return image.Rect(
		max(bounds.Min.X, cx-radius),
		max(bounds.Min.Y, cy-radius),
		min(bounds.Max.X, cx+radius),
		min(bounds.Max.Y, cy+radius),
	)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
