package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultIOD is the interocular distance, about 2.5 inches, in feet.
const DefaultIOD = 0.21

// Eye selects which image a matrix is built for.
type Eye int

const (
	Mono Eye = iota
	Left
	Right
)

func (e Eye) String() string {
	switch e {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "mono"
	}
}

// Camera is the virtual viewpoint placed in front of a Display. Yaw and pitch are held in
// radians within [0, 2π) and exposed in degrees.
type Camera struct {
	display   Display
	near, far float64
	IOD       float64

	pos, view, up, right r3.Vec
	yaw, pitch           float64
}

// NewCamera returns a camera at the origin looking down -Z.
func NewCamera(d Display, near, far float64) *Camera {
	return &Camera{
		display: d,
		near:    near,
		far:     far,
		IOD:     DefaultIOD,
		view:    NegUnitZ,
		up:      UnitY,
		right:   UnitX,
	}
}

// NewCameraAt returns a camera placed at pos with the given yaw and pitch in degrees.
func NewCameraAt(d Display, near, far float64, pos r3.Vec, yaw, pitch float64) *Camera {
	c := NewCamera(d, near, far)
	c.pos = pos
	c.yaw = degToRad(yaw)
	c.pitch = degToRad(pitch)
	c.recalc()
	return c
}

func (c *Camera) Display() Display     { return c.display }
func (c *Camera) Position() r3.Vec     { return c.pos }
func (c *Camera) View() r3.Vec         { return c.view }
func (c *Camera) Up() r3.Vec           { return c.up }
func (c *Camera) Right() r3.Vec        { return c.right }
func (c *Camera) Yaw() float64         { return radToDeg(c.yaw) }
func (c *Camera) Pitch() float64       { return radToDeg(c.pitch) }
func (c *Camera) SetPosition(p r3.Vec) { c.pos = p }

func (c *Camera) SetYaw(deg float64) {
	c.yaw = degToRad(deg)
	c.recalc()
}

func (c *Camera) SetPitch(deg float64) {
	c.pitch = degToRad(deg)
	c.recalc()
}

func (c *Camera) AdjustYaw(deg float64) {
	c.yaw += degToRad(deg)
	c.recalc()
}

func (c *Camera) AdjustPitch(deg float64) {
	c.pitch += degToRad(deg)
	c.recalc()
}

func (c *Camera) MoveForward(amount float64)  { c.pos = r3.Add(c.pos, r3.Scale(amount, c.view)) }
func (c *Camera) MoveBackward(amount float64) { c.pos = r3.Sub(c.pos, r3.Scale(amount, c.view)) }
func (c *Camera) MoveRight(amount float64)    { c.pos = r3.Add(c.pos, r3.Scale(amount, c.right)) }
func (c *Camera) MoveLeft(amount float64)     { c.pos = r3.Sub(c.pos, r3.Scale(amount, c.right)) }
func (c *Camera) MoveUp(amount float64)       { c.pos = r3.Add(c.pos, r3.Scale(amount, c.up)) }
func (c *Camera) MoveDown(amount float64)     { c.pos = r3.Sub(c.pos, r3.Scale(amount, c.up)) }

// Set places the camera directly. Yaw and pitch are derived from the view vector.
func (c *Camera) Set(pos, view, right, up r3.Vec) {
	c.pos = pos
	c.view = Unit(view)
	c.right = Unit(right)
	c.up = Unit(up)
	c.yaw = math.Atan2(c.view.Z, c.view.X)
	c.pitch = math.Asin(math.Max(-1, math.Min(1, c.view.Y)))
}

func (c *Camera) recalc() {
	c.yaw = wrapAngle(c.yaw)
	c.pitch = wrapAngle(c.pitch)

	rot := Yaw(c.yaw).Mul(Pitch(c.pitch))
	c.view = Unit(rot.MulPoint(NegUnitZ))
	c.up = Unit(rot.MulPoint(UnitY))
	c.right = Unit(rot.MulPoint(UnitX))
}

// eyeSign is -1 for the left eye, +1 for the right eye and 0 for mono.
func eyeSign(e Eye) float64 {
	switch e {
	case Left:
		return -1
	case Right:
		return 1
	}
	return 0
}

// TrackedViewMatrix is the view matrix for an eye of a tracked head. The head position is
// mirrored into eye space and rotated into the camera frame.
func (c *Camera) TrackedViewMatrix(e Eye, head TrackedBody) Matrix4 {
	rot := cameraRotation(c)
	eye := rot.MulPoint(mulElem(head.Position(), r3.Vec{X: 1, Y: 1, Z: -1}))
	offset := rot.MulPoint(r3.Scale(c.IOD/2, head.Right()))
	eye = r3.Add(eye, r3.Scale(eyeSign(e), offset))
	return c.viewFrom(eye)
}

// ViewMatrix is the view matrix for an eye without head tracking.
func (c *Camera) ViewMatrix(e Eye) Matrix4 {
	return c.viewFrom(r3.Scale(eyeSign(e)*c.IOD/2, c.right))
}

func (c *Camera) viewFrom(eye r3.Vec) Matrix4 {
	return ViewMatrix(r3.Add(c.pos, eye), c.view, c.right, c.up)
}

// TrackedProjectionMatrix is the off-axis frustum from a tracked head's eye through the display.
func (c *Camera) TrackedProjectionMatrix(e Eye, head TrackedBody) Matrix4 {
	eye := r3.Sub(head.Position(), r3.Scale(eyeSign(e)*c.IOD/2, head.Right()))
	return c.projectionFrom(r3.Sub(eye, c.display.LL))
}

// ProjectionMatrix assumes a viewer centered horizontally at the bottom edge, five feet out.
func (c *Camera) ProjectionMatrix(e Eye) Matrix4 {
	d := c.display
	eye := r3.Add(r3.Scale(0.5, r3.Sub(d.UL, d.LL)), r3.Scale(5, d.Out()))
	eye = r3.Sub(eye, r3.Scale(eyeSign(e)*c.IOD/2, d.Right()))
	return c.projectionFrom(r3.Sub(eye, d.LL))
}

// projectionFrom builds the frustum for an eye at es, relative to the lower-left corner.
func (c *Camera) projectionFrom(es r3.Vec) Matrix4 {
	d := c.display
	l := r3.Dot(es, d.Right())
	r := d.Width() - l
	b := r3.Dot(es, d.Up())
	t := d.Height() - b
	dist := math.Abs(r3.Dot(es, d.Out()))

	n, f := c.near, c.far
	left := -l * n / dist
	right := r * n / dist
	bottom := -b * n / dist
	top := t * n / dist

	return Matrix4{
		{2 * n / (right - left), 0, (right + left) / (right - left), 0},
		{0, 2 * n / (top - bottom), (top + bottom) / (top - bottom), 0},
		{0, 0, -(f + n) / (f - n), -2 * f * n / (f - n)},
		{0, 0, -1, 0},
	}
}
