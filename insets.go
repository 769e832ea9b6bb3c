package compositor

import "image"

// Insets describes the distance of each edge of an inner rectangle from the
// matching edge of an outer one. Nine-patch borders are expressed as Insets.
type Insets struct {
	Left, Top, Right, Bottom int
}

// UniformInsets returns Insets with the same value on every edge.
func UniformInsets(v int) Insets {
	return Insets{Left: v, Top: v, Right: v, Bottom: v}
}

// Width returns the combined horizontal inset.
func (in Insets) Width() int { return in.Left + in.Right }

// Height returns the combined vertical inset.
func (in Insets) Height() int { return in.Top + in.Bottom }

// IsNegative reports whether any edge is negative.
func (in Insets) IsNegative() bool {
	return in.Left < 0 || in.Top < 0 || in.Right < 0 || in.Bottom < 0
}

// Inset shrinks r by the insets. The result may be empty but never has
// Max < Min.
func (in Insets) Inset(r image.Rectangle) image.Rectangle {
	out := image.Rectangle{
		Min: image.Pt(r.Min.X+in.Left, r.Min.Y+in.Top),
		Max: image.Pt(r.Max.X-in.Right, r.Max.Y-in.Bottom),
	}
	if out.Max.X < out.Min.X {
		out.Max.X = out.Min.X
	}
	if out.Max.Y < out.Min.Y {
		out.Max.Y = out.Min.Y
	}
	return out
}

// InsetsBetween returns the insets of inner relative to outer.
func InsetsBetween(outer, inner image.Rectangle) Insets {
	return Insets{
		Left:   inner.Min.X - outer.Min.X,
		Top:    inner.Min.Y - outer.Min.Y,
		Right:  outer.Max.X - inner.Max.X,
		Bottom: outer.Max.Y - inner.Max.Y,
	}
}
