package pose

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxWandButtons bounds the button array of a wand.
const MaxWandButtons = 16

// qualityNotTracked mirrors the tracker's marker for known but unseen entities.
const qualityNotTracked = -1.0

// Reading is one raw tracker measurement: millimetres and a column-major rotation.
type Reading struct {
	Quality float64
	Loc     [3]float64
	Rot     [9]float64
}

// TrackedBody is anything with a pose the renderer can follow.
type TrackedBody interface {
	Position() r3.Vec
	View() r3.Vec
	Up() r3.Vec
	Right() r3.Vec
	Transform() Matrix4
	IsTracked() bool
}

// axes rotates the unit axes by the reading's rotation.
func (r Reading) axes() (view, up, right r3.Vec) {
	m := FromColumnMajor3(r.Rot)
	return m.MulPoint(UnitZ), m.MulPoint(UnitY), m.MulPoint(UnitX)
}

// Head is the tracked pose of the viewer's head in feet.
type Head struct {
	pos, view, up, right r3.Vec
	tracked              bool
}

// NewHead returns a head standing five feet in front of the screen.
func NewHead() Head {
	return Head{
		pos:   r3.Vec{Y: 5, Z: 5},
		view:  UnitZ,
		up:    UnitY,
		right: r3.Cross(UnitZ, UnitY),
	}
}

// Update applies a body measurement. The pose only moves when quality is positive.
func (h *Head) Update(r Reading) {
	h.tracked = r.Quality != qualityNotTracked
	if r.Quality <= 0 {
		return
	}
	h.pos = r3.Scale(MMToFeet, vecFrom(r.Loc))
	h.view, h.up, h.right = r.axes()
}

func (h Head) Position() r3.Vec   { return h.pos }
func (h Head) View() r3.Vec       { return h.view }
func (h Head) Up() r3.Vec         { return h.up }
func (h Head) Right() r3.Vec      { return h.right }
func (h Head) IsTracked() bool    { return h.tracked }
func (h Head) Transform() Matrix4 { return Transform(h.pos, h.view, h.right, h.up) }

// wandAxisFlip maps tracker axes into eye space, where the wand points into -Z.
var wandAxisFlip = r3.Vec{X: -1, Y: -1, Z: 1}

// Wand is the tracked input device: pose in eye-space feet plus buttons and joystick.
type Wand struct {
	pos, view, up, right r3.Vec
	tracked              bool

	NumButtons int
	Buttons    [MaxWandButtons]bool
	Joystick   [2]float64 // horizontal, vertical

	smoothing int
	positions []r3.Vec
	views     []r3.Vec
}

// NewWand returns a wand held five feet up, reaching into the scene. A positive smoothing
// averages position and view over that many updates.
func NewWand(smoothing int) Wand {
	return Wand{
		pos:        r3.Vec{Y: 5, Z: -5},
		view:       NegUnitZ,
		up:         UnitY,
		right:      r3.Cross(NegUnitZ, UnitY),
		NumButtons: 4,
		smoothing:  max(smoothing, 0),
	}
}

// Update applies a flystick measurement. The pose only moves when quality is positive; buttons
// and joystick are always taken.
func (w *Wand) Update(r Reading, buttons []bool, joystick []float64) {
	w.tracked = r.Quality != qualityNotTracked
	if r.Quality > 0 {
		w.pos = r3.Scale(MMToFeet, vecFrom(r.Loc))
		w.pos.Z = -w.pos.Z
		view, up, right := r.axes()
		w.view = mulElem(view, wandAxisFlip)
		w.up = mulElem(up, wandAxisFlip)
		w.right = mulElem(right, wandAxisFlip)
	}

	w.NumButtons = min(len(buttons), MaxWandButtons)
	w.Buttons = [MaxWandButtons]bool{}
	copy(w.Buttons[:], buttons[:w.NumButtons])
	w.Joystick = [2]float64{}
	copy(w.Joystick[:], joystick)

	if w.smoothing > 0 {
		w.positions = pushWindow(w.positions, w.pos, w.smoothing)
		w.views = pushWindow(w.views, w.view, w.smoothing)
	}
}

func pushWindow(win []r3.Vec, v r3.Vec, n int) []r3.Vec {
	win = append(win, v)
	if len(win) > n {
		win = append(win[:0], win[len(win)-n:]...)
	}
	return win
}

func average(win []r3.Vec) r3.Vec {
	var sum r3.Vec
	for _, v := range win {
		sum = r3.Add(sum, v)
	}
	return r3.Scale(1/float64(len(win)), sum)
}

// Position is the (smoothed) wand position.
func (w Wand) Position() r3.Vec {
	if len(w.positions) > 1 {
		return average(w.positions)
	}
	return w.pos
}

// View is the (smoothed) pointing direction.
func (w Wand) View() r3.Vec {
	if len(w.views) > 1 {
		return average(w.views)
	}
	return w.view
}

func (w Wand) Up() r3.Vec      { return w.up }
func (w Wand) Right() r3.Vec   { return w.right }
func (w Wand) IsTracked() bool { return w.tracked }

// Transform uses the latest unsmoothed pose.
func (w Wand) Transform() Matrix4 { return Transform(w.pos, w.view, w.right, w.up) }

// Pressed reports whether button i is held.
func (w Wand) Pressed(i int) bool {
	if i < 0 || i >= w.NumButtons {
		return false
	}
	return w.Buttons[i]
}

// ButtonMask packs the buttons into bits, button 0 in the lowest bit.
func (w Wand) ButtonMask() uint32 {
	var m uint32
	for i := 0; i < w.NumButtons; i++ {
		if w.Buttons[i] {
			m |= 1 << i
		}
	}
	return m
}

// Settled returns a copy with the smoothed pose baked in and no history, safe to share.
func (w Wand) Settled() Wand {
	out := w
	out.pos = w.Position()
	out.view = w.View()
	out.positions = nil
	out.views = nil
	return out
}

// cameraRotation maps eye-space vectors into the camera's frame.
func cameraRotation(c *Camera) Matrix4 {
	return Rotation(c.View(), c.Right(), c.Up())
}

// PositionIn returns the wand position in world space as seen from camera c.
func (w Wand) PositionIn(c *Camera) r3.Vec {
	return r3.Add(c.Position(), cameraRotation(c).MulPoint(w.Position()))
}

// ViewIn returns the wand direction in world space for camera c.
func (w Wand) ViewIn(c *Camera) r3.Vec {
	return cameraRotation(c).MulPoint(w.View())
}

// RightIn returns the wand right vector in world space for camera c.
func (w Wand) RightIn(c *Camera) r3.Vec {
	return cameraRotation(c).MulPoint(w.right)
}
