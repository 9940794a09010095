package note

// Position reconciles the note's stored coordinates into the normalized
// frame for a page rendered at renderWidth x renderHeight.
//
// Normalized notes are returned as-is (clamped to [0,1]). Pixel notes are
// divided by their reference size; when the note carries no reference size
// the render size is used instead. ok is false when neither is usable.
func (n *Note) Position(renderWidth, renderHeight float64) (x, y float64, ok bool) {
	x, y = n.X, n.Y

	if n.CoordinateSpace == SpacePixel {
		refW, refH := renderWidth, renderHeight
		if n.RefWidth != nil && *n.RefWidth > 0 {
			refW = float64(*n.RefWidth)
		}
		if n.RefHeight != nil && *n.RefHeight > 0 {
			refH = float64(*n.RefHeight)
		}
		if refW <= 0 || refH <= 0 {
			return 0, 0, false
		}
		x, y = x/refW, y/refH
	}

	if !finite(x) || !finite(y) {
		return 0, 0, false
	}
	return clamp01(x), clamp01(y), true
}

// PixelPosition maps the note onto a page rendered at renderWidth x renderHeight pixels.
func (n *Note) PixelPosition(renderWidth, renderHeight float64) (px, py float64, ok bool) {
	x, y, ok := n.Position(renderWidth, renderHeight)
	if !ok {
		return 0, 0, false
	}
	return x * renderWidth, y * renderHeight, true
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
