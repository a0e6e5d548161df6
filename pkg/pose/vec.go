// Package pose turns raw tracker measurements into head and wand poses in feet and provides the
// matrix math a stereo renderer needs: camera orientation, view matrices and off-axis projection
// for a physical display.
package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Named vectors.
var (
	Zero     = r3.Vec{}
	UnitX    = r3.Vec{X: 1}
	UnitY    = r3.Vec{Y: 1}
	UnitZ    = r3.Vec{Z: 1}
	NegUnitX = r3.Vec{X: -1}
	NegUnitY = r3.Vec{Y: -1}
	NegUnitZ = r3.Vec{Z: -1}
)

// MMToFeet converts tracker millimetres to feet.
const MMToFeet = 3.2808399 / 1000

// Unit returns v normalized, or the zero vector when v has no length.
func Unit(v r3.Vec) r3.Vec {
	if v == Zero {
		return Zero
	}
	return r3.Unit(v)
}

// mulElem multiplies component-wise.
func mulElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

func vecFrom(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// wrapAngle folds radians into [0, 2π).
func wrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
