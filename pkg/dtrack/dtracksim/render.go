package dtracksim

import (
	"fmt"
	"math"
	"strings"
)

// HeadHeight is the scripted head height in millimetres.
const HeadHeight = 1650.0

// Script describes the scripted motion at time t (seconds).
type Script struct {
	T float64
}

// HeadLoc orbits a 200 mm circle at eye height, one turn every 8 seconds.
func (s Script) HeadLoc() [3]float64 {
	a := s.angle()
	return [3]float64{200 * math.Cos(a), HeadHeight, 200 * math.Sin(a)}
}

// WandLoc holds the wand 400 mm in front of and below the head.
func (s Script) WandLoc() [3]float64 {
	h := s.HeadLoc()
	return [3]float64{h[0], h[1] - 400, h[2] - 400}
}

// Rot is a yaw about the vertical axis, column-major.
func (s Script) Rot() [9]float64 {
	a := s.angle() / 4
	c, sn := math.Cos(a), math.Sin(a)
	return [9]float64{
		c, 0, -sn,
		0, 1, 0,
		sn, 0, c,
	}
}

// Buttons presses button 0 for the first half of every second.
func (s Script) Buttons() int {
	if math.Mod(s.T, 1) < 0.5 {
		return 1
	}
	return 0
}

// Joystick sweeps the horizontal axis between -1 and 1.
func (s Script) Joystick() [2]float64 {
	return [2]float64{math.Sin(s.angle()), 0}
}

func (s Script) angle() float64 {
	return 2 * math.Pi * s.T / 8
}

// RenderFrame renders one datagram. Body 0 follows the head script, other bodies are reported
// as calibrated but not tracked. One flystick follows the wand script.
func RenderFrame(frame uint32, t float64, bodies int, format string) string {
	sc := Script{T: t}
	var b strings.Builder

	fmt.Fprintf(&b, "fr %d\r\n", frame)
	fmt.Fprintf(&b, "ts %.3f\r\n", t)

	// Legacy controllers count flysticks as calibrated bodies.
	cal := bodies
	if format == FormatLegacy {
		cal++
	}
	fmt.Fprintf(&b, "6dcal %d\r\n", cal)

	if bodies > 0 {
		b.WriteString("6d 1 ")
		writeRecord(&b, "0 1.000", sc.HeadLoc(), sc.Rot())
		b.WriteString("\r\n")
	}

	rot := sc.Rot()
	switch format {
	case FormatLegacy:
		bits := sc.Buttons()
		if j := sc.Joystick(); j[0] < -0.5 {
			bits |= 0x20
		} else if j[0] > 0.5 {
			bits |= 0x80
		}
		b.WriteString("6df 1 ")
		writeRecord(&b, fmt.Sprintf("0 1.000 %d", bits), sc.WandLoc(), rot)
		b.WriteString("\r\n")
	default:
		j := sc.Joystick()
		b.WriteString("6df2 1 1 ")
		writeRecord(&b, "0 1.000 8 2", sc.WandLoc(), rot)
		fmt.Fprintf(&b, "[%d %.3f %.3f]\r\n", sc.Buttons(), j[0], j[1])
	}

	b.WriteByte(0)
	return b.String()
}

func writeRecord(b *strings.Builder, head string, loc [3]float64, rot [9]float64) {
	fmt.Fprintf(b, "[%s][%.3f %.3f %.3f]", head, loc[0], loc[1], loc[2])
	b.WriteByte('[')
	for i, v := range rot {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "%.6f", v)
	}
	b.WriteByte(']')
}
