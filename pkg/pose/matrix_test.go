package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

func assertVec(t *testing.T, want, got r3.Vec, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, 1e-6, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, 1e-6, msgAndArgs...)
}

func assertMatrix(t *testing.T, want, got Matrix4) {
	t.Helper()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.InDelta(t, want[i][j], got[i][j], 1e-6, "m[%d][%d]", i, j)
		}
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translation(r3.Vec{X: 1, Y: 2, Z: 3}).Mul(Yaw(0.3))
	assert.Equal(t, m, m.Mul(Identity()))
	assert.Equal(t, m, Identity().Mul(m))
}

func TestMulPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix4
		in   r3.Vec
		want r3.Vec
	}{
		{"translation", Translation(r3.Vec{X: 1, Y: -2, Z: 3}), r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 2, Y: -1, Z: 4}},
		{"scale", Scale(r3.Vec{X: 2, Y: 3, Z: 4}), UnitX, r3.Vec{X: 2}},
		{"yaw quarter turn", Yaw(math.Pi / 2), NegUnitZ, NegUnitX},
		{"pitch quarter turn", Pitch(math.Pi / 2), NegUnitZ, UnitY},
		{"roll quarter turn", Roll(math.Pi / 2), UnitX, UnitY},
		{"homogeneous divide", Matrix4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 2}}, r3.Vec{X: 2, Y: 4, Z: 6}, r3.Vec{X: 1, Y: 2, Z: 3}},
		{"zero w", Matrix4{}, UnitX, Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertVec(t, tt.want, tt.m.MulPoint(tt.in))
		})
	}
}

func TestInverse(t *testing.T) {
	m := Translation(r3.Vec{X: 4, Y: -1, Z: 2}).Mul(Yaw(0.7)).Mul(Pitch(-0.4)).Mul(Scale(r3.Vec{X: 2, Y: 2, Z: 2}))
	inv, ok := m.Inverse()
	assert.True(t, ok)
	assertMatrix(t, Identity(), m.Mul(inv))
	assertMatrix(t, Identity(), inv.Mul(m))
}

func TestInverseSingular(t *testing.T) {
	inv, ok := Scale(r3.Vec{X: 1, Y: 0, Z: 1}).Inverse()
	assert.False(t, ok)
	assert.Equal(t, Identity(), inv)
}

func TestTranspose(t *testing.T) {
	m := Translation(r3.Vec{X: 1, Y: 2, Z: 3})
	tr := m.Transpose()
	assert.Equal(t, 1.0, tr[3][0])
	assert.Equal(t, 3.0, tr[3][2])
	assert.Equal(t, m, tr.Transpose())
}

func TestFromColumnMajor3(t *testing.T) {
	m := FromColumnMajor3([9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.Equal(t, Matrix4{
		{1, 4, 7, 0},
		{2, 5, 8, 0},
		{3, 6, 9, 0},
		{0, 0, 0, 1},
	}, m)
}

func TestRotationAndViewMatrix(t *testing.T) {
	view, right, up := NegUnitZ, UnitX, UnitY

	r := Rotation(view, right, up)
	assertVec(t, right, r.MulPoint(UnitX))
	assertVec(t, up, r.MulPoint(UnitY))
	assertVec(t, view, r.MulPoint(UnitZ))

	assertMatrix(t, Identity(), ViewRotation(view, right, up))

	pos := r3.Vec{X: 1, Y: 2, Z: 3}
	v := ViewMatrix(pos, view, right, up)
	assertVec(t, Zero, v.MulPoint(pos), "eye maps to the origin")

	tf := Transform(pos, view, right, up)
	assertVec(t, pos, tf.MulPoint(Zero))
}

func TestColumnMajor(t *testing.T) {
	m := Translation(r3.Vec{X: 7, Y: 8, Z: 9})
	cm := m.ColumnMajor()
	assert.Equal(t, [3]float64{7, 8, 9}, [3]float64{cm[12], cm[13], cm[14]})
	assert.Equal(t, float32(7), m.Float32()[12])
}

func TestWrapAngle(t *testing.T) {
	for _, in := range []float64{-0.5, 0, 1, 2 * math.Pi, 7 * math.Pi, -9} {
		got := wrapAngle(in)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Less(t, got, 2*math.Pi)
		assert.InDelta(t, math.Sin(in), math.Sin(got), eps)
	}
}
