package tracker

import (
	"monolithgo/pkg/dtrack"
	"monolithgo/pkg/pose"
)

var untracked = pose.Reading{Quality: dtrack.QualityNotTracked}

func bodyReading(b dtrack.Body, ok bool) pose.Reading {
	if !ok {
		return untracked
	}
	return pose.Reading{Quality: b.Quality, Loc: b.Loc, Rot: b.Rot}
}

// flyStickInput splits a flystick into pose reading, pressed buttons and joystick axes.
func flyStickInput(f dtrack.FlyStick, ok bool) (pose.Reading, []bool, []float64) {
	if !ok {
		return untracked, nil, nil
	}
	r := pose.Reading{Quality: f.Quality, Loc: f.Loc, Rot: f.Rot}
	return r, f.Button[:f.NumButton], f.Joystick[:f.NumJoystick]
}
