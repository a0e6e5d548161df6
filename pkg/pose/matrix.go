package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Matrix4 is a row-major 4x4 matrix acting on column vectors: m[row][col].
type Matrix4 [4][4]float64

// singularDet is the determinant magnitude below which Inverse gives up.
const singularDet = 1e-5

// Identity returns the identity matrix.
func Identity() Matrix4 {
	return Matrix4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Mul returns m·n.
func (m Matrix4) Mul(n Matrix4) Matrix4 {
	var out Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * n[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// MulPoint transforms p as a homogeneous point (w = 1) and divides by the resulting w.
// A zero w yields the zero vector.
func (m Matrix4) MulPoint(p r3.Vec) r3.Vec {
	w := m[3][0]*p.X + m[3][1]*p.Y + m[3][2]*p.Z + m[3][3]
	if w == 0 {
		return Zero
	}
	return r3.Vec{
		X: (m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3]) / w,
		Y: (m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3]) / w,
		Z: (m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3]) / w,
	}
}

// Transpose returns the transposed matrix.
func (m Matrix4) Transpose() Matrix4 {
	var out Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// Inverse returns the inverse of m. A (near) singular matrix yields the identity and false.
func (m Matrix4) Inverse() (Matrix4, bool) {
	a0 := m[0][0]*m[1][1] - m[0][1]*m[1][0]
	a1 := m[0][0]*m[1][2] - m[0][2]*m[1][0]
	a2 := m[0][0]*m[1][3] - m[0][3]*m[1][0]
	a3 := m[0][1]*m[1][2] - m[0][2]*m[1][1]
	a4 := m[0][1]*m[1][3] - m[0][3]*m[1][1]
	a5 := m[0][2]*m[1][3] - m[0][3]*m[1][2]
	b0 := m[2][0]*m[3][1] - m[2][1]*m[3][0]
	b1 := m[2][0]*m[3][2] - m[2][2]*m[3][0]
	b2 := m[2][0]*m[3][3] - m[2][3]*m[3][0]
	b3 := m[2][1]*m[3][2] - m[2][2]*m[3][1]
	b4 := m[2][1]*m[3][3] - m[2][3]*m[3][1]
	b5 := m[2][2]*m[3][3] - m[2][3]*m[3][2]

	det := a0*b5 - a1*b4 + a2*b3 + a3*b2 - a4*b1 + a5*b0
	if math.Abs(det) < singularDet {
		return Identity(), false
	}

	var inv Matrix4
	inv[0][0] = +m[1][1]*b5 - m[1][2]*b4 + m[1][3]*b3
	inv[1][0] = -m[1][0]*b5 + m[1][2]*b2 - m[1][3]*b1
	inv[2][0] = +m[1][0]*b4 - m[1][1]*b2 + m[1][3]*b0
	inv[3][0] = -m[1][0]*b3 + m[1][1]*b1 - m[1][2]*b0
	inv[0][1] = -m[0][1]*b5 + m[0][2]*b4 - m[0][3]*b3
	inv[1][1] = +m[0][0]*b5 - m[0][2]*b2 + m[0][3]*b1
	inv[2][1] = -m[0][0]*b4 + m[0][1]*b2 - m[0][3]*b0
	inv[3][1] = +m[0][0]*b3 - m[0][1]*b1 + m[0][2]*b0
	inv[0][2] = +m[3][1]*a5 - m[3][2]*a4 + m[3][3]*a3
	inv[1][2] = -m[3][0]*a5 + m[3][2]*a2 - m[3][3]*a1
	inv[2][2] = +m[3][0]*a4 - m[3][1]*a2 + m[3][3]*a0
	inv[3][2] = -m[3][0]*a3 + m[3][1]*a1 - m[3][2]*a0
	inv[0][3] = -m[2][1]*a5 + m[2][2]*a4 - m[2][3]*a3
	inv[1][3] = +m[2][0]*a5 - m[2][2]*a2 + m[2][3]*a1
	inv[2][3] = -m[2][0]*a4 + m[2][1]*a2 - m[2][3]*a0
	inv[3][3] = +m[2][0]*a3 - m[2][1]*a1 + m[2][2]*a0

	invDet := 1 / det
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			inv[i][j] *= invDet
		}
	}
	return inv, true
}

// Rotation builds a rotation whose columns are right, up and view.
func Rotation(view, right, up r3.Vec) Matrix4 {
	m := Identity()
	m[0][0], m[1][0], m[2][0] = right.X, right.Y, right.Z
	m[0][1], m[1][1], m[2][1] = up.X, up.Y, up.Z
	m[0][2], m[1][2], m[2][2] = view.X, view.Y, view.Z
	return m
}

// Transform is Rotation plus a translation to pos.
func Transform(pos, view, right, up r3.Vec) Matrix4 {
	m := Rotation(view, right, up)
	m[0][3], m[1][3], m[2][3] = pos.X, pos.Y, pos.Z
	return m
}

// ViewRotation builds the camera rotation: rows right, up and -view.
func ViewRotation(view, right, up r3.Vec) Matrix4 {
	back := r3.Scale(-1, view)
	m := Identity()
	m[0][0], m[0][1], m[0][2] = right.X, right.Y, right.Z
	m[1][0], m[1][1], m[1][2] = up.X, up.Y, up.Z
	m[2][0], m[2][1], m[2][2] = back.X, back.Y, back.Z
	return m
}

// ViewMatrix builds a world-to-eye matrix for an eye at pos looking along view.
func ViewMatrix(pos, view, right, up r3.Vec) Matrix4 {
	m := ViewRotation(view, right, up)
	back := r3.Scale(-1, view)
	m[0][3] = -r3.Dot(pos, right)
	m[1][3] = -r3.Dot(pos, up)
	m[2][3] = -r3.Dot(pos, back)
	return m
}

// Yaw rotates about +Y by rad.
func Yaw(rad float64) Matrix4 {
	s, c := math.Sincos(rad)
	m := Identity()
	m[0][0], m[0][2] = c, s
	m[2][0], m[2][2] = -s, c
	return m
}

// Pitch rotates about +X by rad.
func Pitch(rad float64) Matrix4 {
	s, c := math.Sincos(rad)
	m := Identity()
	m[1][1], m[1][2] = c, -s
	m[2][1], m[2][2] = s, c
	return m
}

// Roll rotates about +Z by rad.
func Roll(rad float64) Matrix4 {
	s, c := math.Sincos(rad)
	m := Identity()
	m[0][0], m[0][1] = c, -s
	m[1][0], m[1][1] = s, c
	return m
}

// Scale returns a scaling matrix.
func Scale(v r3.Vec) Matrix4 {
	m := Identity()
	m[0][0], m[1][1], m[2][2] = v.X, v.Y, v.Z
	return m
}

// Translation returns a translation matrix.
func Translation(v r3.Vec) Matrix4 {
	m := Identity()
	m[0][3], m[1][3], m[2][3] = v.X, v.Y, v.Z
	return m
}

// FromColumnMajor3 embeds a column-major 3x3 rotation (as sent by the tracker) into a Matrix4.
func FromColumnMajor3(rot [9]float64) Matrix4 {
	m := Identity()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m[row][col] = rot[col*3+row]
		}
	}
	return m
}

// ColumnMajor flattens m column by column, the layout OpenGL style APIs expect.
func (m Matrix4) ColumnMajor() [16]float64 {
	var out [16]float64
	i := 0
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[i] = m[row][col]
			i++
		}
	}
	return out
}

// Float32 is ColumnMajor narrowed for GPU upload.
func (m Matrix4) Float32() [16]float32 {
	var out [16]float32
	for i, v := range m.ColumnMajor() {
		out[i] = float32(v)
	}
	return out
}
