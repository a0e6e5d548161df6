package pose

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Display is a physical screen given by three corners in tracker space (feet).
type Display struct {
	LL, LR, UL r3.Vec
	width      float64
	height     float64
	mw         Matrix4
}

// NewDisplay derives the screen frame from its lower-left, lower-right and upper-left corners.
func NewDisplay(ll, lr, ul r3.Vec) Display {
	d := Display{LL: ll, LR: lr, UL: ul}
	d.width = r3.Norm(r3.Sub(lr, ll))
	d.height = r3.Norm(r3.Sub(ul, ll))

	var xs, ys r3.Vec
	if d.width != 0 {
		xs = r3.Scale(1/d.width, r3.Sub(lr, ll))
	}
	if d.height != 0 {
		ys = r3.Scale(1/d.height, r3.Sub(ul, ll))
	}
	zs := r3.Cross(xs, ys)
	d.mw = Matrix4{
		{xs.X, ys.X, zs.X, 0},
		{xs.Y, ys.Y, zs.Y, 0},
		{xs.Z, ys.Z, zs.Z, 0},
		{0, 0, 0, 1},
	}
	return d
}

// DefaultDisplay is the 13.3 by 7.5 foot wall the framework was built around, centered on the
// tracking origin at floor level.
func DefaultDisplay() Display {
	return NewDisplay(
		r3.Vec{X: -6.6667},
		r3.Vec{X: 6.6667},
		r3.Vec{X: -6.6667, Y: 7.5},
	)
}

func (d Display) Width() float64  { return d.width }
func (d Display) Height() float64 { return d.height }

// UR is the implied upper-right corner.
func (d Display) UR() r3.Vec { return r3.Add(r3.Sub(d.LR, d.LL), d.UL) }

// Up, Right and Out are the unit screen axes.
func (d Display) Up() r3.Vec    { return Unit(r3.Sub(d.UL, d.LL)) }
func (d Display) Right() r3.Vec { return Unit(r3.Sub(d.LR, d.LL)) }
func (d Display) Out() r3.Vec   { return Unit(r3.Cross(r3.Sub(d.LR, d.LL), r3.Sub(d.UL, d.LL))) }

// Mw maps screen coordinates onto tracker space; its columns are the screen axes.
func (d Display) Mw() Matrix4 { return d.mw }
