package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestDefaultDisplay(t *testing.T) {
	d := DefaultDisplay()
	assert.InDelta(t, 13.3334, d.Width(), eps)
	assert.InDelta(t, 7.5, d.Height(), eps)
	assertVec(t, UnitX, d.Right())
	assertVec(t, UnitY, d.Up())
	assertVec(t, UnitZ, d.Out())
	assertVec(t, r3.Vec{X: 6.6667, Y: 7.5}, d.UR())
	assertMatrix(t, Identity(), d.Mw())
}

func TestDisplayTiltedFrame(t *testing.T) {
	// A floor screen: up runs along -Z.
	d := NewDisplay(r3.Vec{}, r3.Vec{X: 4}, r3.Vec{Z: -3})
	assert.InDelta(t, 4.0, d.Width(), eps)
	assert.InDelta(t, 3.0, d.Height(), eps)
	assertVec(t, UnitY, d.Out())
	assertVec(t, NegUnitZ, d.Mw().MulPoint(UnitY))
}

func TestCameraYawPitch(t *testing.T) {
	c := NewCamera(DefaultDisplay(), 0.1, 100)
	assertVec(t, NegUnitZ, c.View())

	c.SetYaw(90)
	assert.InDelta(t, 90.0, c.Yaw(), 1e-9)
	assertVec(t, NegUnitX, c.View())
	assertVec(t, NegUnitZ, c.Right())

	c.AdjustYaw(-180)
	assert.InDelta(t, 270.0, c.Yaw(), 1e-9, "wrapped into [0, 360)")
	assertVec(t, UnitX, c.View())

	c.SetYaw(0)
	c.SetPitch(90)
	assertVec(t, UnitY, c.View())
	c.AdjustPitch(-90)
	assert.InDelta(t, 0.0, c.Pitch(), 1e-9)
}

func TestCameraMovement(t *testing.T) {
	c := NewCamera(DefaultDisplay(), 0.1, 100)
	tests := []struct {
		move func(float64)
		want r3.Vec
	}{
		{c.MoveForward, r3.Vec{Z: -2}},
		{c.MoveBackward, r3.Vec{}},
		{c.MoveRight, r3.Vec{X: 2}},
		{c.MoveUp, r3.Vec{X: 2, Y: 2}},
		{c.MoveLeft, r3.Vec{Y: 2}},
		{c.MoveDown, r3.Vec{}},
	}
	for i, tt := range tests {
		tt.move(2)
		assertVec(t, tt.want, c.Position(), "step %d", i)
	}
}

func TestCameraSet(t *testing.T) {
	c := NewCamera(DefaultDisplay(), 0.1, 100)
	c.Set(r3.Vec{X: 3, Y: 4}, r3.Vec{X: 2}, r3.Vec{Z: 5}, r3.Vec{Y: 1})

	assertVec(t, r3.Vec{X: 3, Y: 4}, c.Position())
	assertVec(t, UnitX, c.View())
	assertVec(t, UnitZ, c.Right())
	assert.InDelta(t, 0.0, c.Yaw(), 1e-9)
	assert.InDelta(t, 0.0, c.Pitch(), 1e-9)
}

func TestUntrackedViewMatrix(t *testing.T) {
	c := NewCamera(DefaultDisplay(), 0.1, 100)
	assertMatrix(t, Identity(), c.ViewMatrix(Mono))

	left := c.ViewMatrix(Left)
	right := c.ViewMatrix(Right)
	assert.InDelta(t, DefaultIOD/2, left[0][3], eps)
	assert.InDelta(t, -DefaultIOD/2, right[0][3], eps)
}

func TestTrackedViewMatrix(t *testing.T) {
	c := NewCamera(DefaultDisplay(), 0.1, 100)
	h := NewHead()
	h.right = UnitX

	m := c.TrackedViewMatrix(Mono, h)
	// Head at (0,5,5) is mirrored to (0,5,-5) then rotated back to (0,5,5).
	assert.InDelta(t, 0.0, m[0][3], eps)
	assert.InDelta(t, -5.0, m[1][3], eps)
	assert.InDelta(t, -5.0, m[2][3], eps)

	l := c.TrackedViewMatrix(Left, h)
	assert.InDelta(t, DefaultIOD/2, l[0][3], eps)
}

func TestProjectionMatrix(t *testing.T) {
	c := NewCamera(DefaultDisplay(), 0.1, 100)
	p := c.ProjectionMatrix(Mono)

	// Eye centered at (0, 3.75, 5): symmetric frustum.
	assert.InDelta(t, 2*5/13.3334, p[0][0], 1e-9)
	assert.InDelta(t, 0.0, p[0][2], 1e-9)
	assert.InDelta(t, 2*5/7.5, p[1][1], 1e-9)
	assert.InDelta(t, 0.0, p[1][2], 1e-9)
	assert.InDelta(t, -100.1/99.9, p[2][2], 1e-9)
	assert.InDelta(t, -20/99.9, p[2][3], 1e-9)
	assert.Equal(t, -1.0, p[3][2])
	assert.Equal(t, 0.0, p[3][3])

	// The left eye sits right of center, so its frustum skews left.
	l := c.ProjectionMatrix(Left)
	r := c.ProjectionMatrix(Right)
	assert.Less(t, l[0][2], 0.0)
	assert.Greater(t, r[0][2], 0.0)
	assert.InDelta(t, -l[0][2], r[0][2], 1e-9)
}

func TestTrackedProjectionMatchesUntrackedForCenteredHead(t *testing.T) {
	c := NewCamera(DefaultDisplay(), 0.1, 100)
	h := NewHead()
	h.pos = r3.Vec{Y: 3.75, Z: 5}
	h.right = UnitX

	for _, e := range []Eye{Mono, Left, Right} {
		t.Run(e.String(), func(t *testing.T) {
			assertMatrix(t, c.ProjectionMatrix(e), c.TrackedProjectionMatrix(e, h))
		})
	}
}
