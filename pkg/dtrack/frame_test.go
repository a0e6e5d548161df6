package dtrack

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identity = "[1 0 0 0 1 0 0 0 1]"

func TestParseFrameHeader(t *testing.T) {
	f, err := ParseFrame("fr 42\r\nts 12.5\r\n", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), f.Counter)
	assert.Equal(t, 12.5, f.Timestamp)

	f, err = ParseFrame("fr 7\n", nil)
	require.NoError(t, err)
	assert.Equal(t, -1.0, f.Timestamp)
}

func TestParseBodiesGrowWithGaps(t *testing.T) {
	f, err := ParseFrame("fr 1\r\n6d 1 [3 0.9][10 20 30]"+identity+"\r\n", nil)
	require.NoError(t, err)
	require.Len(t, f.Bodies, 4)

	for i := 0; i < 3; i++ {
		assert.Equal(t, i, f.Bodies[i].ID)
		assert.Equal(t, QualityNotTracked, f.Bodies[i].Quality)
		assert.False(t, f.Bodies[i].IsTracked())
	}
	b := f.Bodies[3]
	assert.True(t, b.IsTracked())
	assert.Equal(t, 0.9, b.Quality)
	assert.Equal(t, [3]float64{10, 20, 30}, b.Loc)
	assert.Equal(t, [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, b.Rot)
}

func TestParseBodiesPersistAcrossFrames(t *testing.T) {
	first, err := ParseFrame("6d 2 [0 1.0][1 2 3]"+identity+" [1 1.0][4 5 6]"+identity+"\r\n", nil)
	require.NoError(t, err)
	require.Len(t, first.Bodies, 2)

	second, err := ParseFrame("fr 2\r\n6d 1 [1 0.5][7 8 9]"+identity+"\r\n", first)
	require.NoError(t, err)
	require.Len(t, second.Bodies, 2)
	assert.False(t, second.Bodies[0].IsTracked())
	assert.True(t, second.Bodies[1].IsTracked())
	assert.Equal(t, [3]float64{7, 8, 9}, second.Bodies[1].Loc)

	// A frame without a 6d line leaves every known body untracked.
	third, err := ParseFrame("fr 3\r\n", second)
	require.NoError(t, err)
	require.Len(t, third.Bodies, 2)
	assert.False(t, third.Bodies[1].IsTracked())
}

func TestParseCalibrationCounts(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantBodies int
		wantHands  int
	}{
		{"bodies only", "6dcal 3\r\n", 3, 0},
		{"legacy flysticks counted", "6dcal 3\r\n6df 1 [0 1.0 0][0 0 0]" + identity + "\r\n", 2, 0},
		{"measurement tools counted", "6dcal 2\r\n6dmt 1 [0 1.0 1][0 0 0]" + identity + "\r\n", 1, 0},
		{"hands", "glcal 2\r\n", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame(tt.data, nil)
			require.NoError(t, err)
			assert.Len(t, f.Bodies, tt.wantBodies)
			assert.Len(t, f.Hands, tt.wantHands)
		})
	}
}

func TestParseCalibrationNeverShrinks(t *testing.T) {
	prev, err := ParseFrame("6dcal 4\r\n", nil)
	require.NoError(t, err)

	f, err := ParseFrame("6dcal 1\r\n", prev)
	require.NoError(t, err)
	assert.Len(t, f.Bodies, 4)
}

func TestParseLegacyFlyStick(t *testing.T) {
	tests := []struct {
		name     string
		bits     string
		buttons  []int
		joystick [2]float64
	}{
		{"released", "0", nil, [2]float64{0, 0}},
		{"trigger", "1", []int{0}, [2]float64{0, 0}},
		{"left", "0x20", []int{5}, [2]float64{-1, 0}},
		{"right", "0x80", []int{7}, [2]float64{1, 0}},
		{"down", "0x10", []int{4}, [2]float64{0, -1}},
		{"up", "0x40", []int{6}, [2]float64{0, 1}},
		{"left wins over right", "0xa0", []int{5, 7}, [2]float64{-1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame("6df 1 [0 1.0 "+tt.bits+"][1 2 3]"+identity+"\r\n", nil)
			require.NoError(t, err)
			require.Len(t, f.FlySticks, 1)

			fs := f.FlySticks[0]
			assert.Equal(t, FlyStickLegacy, fs.Format)
			assert.Equal(t, 8, fs.NumButton)
			assert.Equal(t, 2, fs.NumJoystick)
			for i := 0; i < 8; i++ {
				assert.Equal(t, contains(tt.buttons, i), fs.Button[i], "button %d", i)
			}
			assert.Equal(t, tt.joystick[0], fs.Joystick[0])
			assert.Equal(t, tt.joystick[1], fs.Joystick[1])
			assert.Equal(t, [3]float64{1, 2, 3}, fs.Loc)
		})
	}
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func TestParseFlyStickV2(t *testing.T) {
	data := "6df2 2 1 [0 1.0 6 2][1 2 3]" + identity + "[37 0.5 -0.25]\r\n"
	f, err := ParseFrame(data, nil)
	require.NoError(t, err)
	require.Len(t, f.FlySticks, 2)

	fs := f.FlySticks[0]
	assert.True(t, fs.IsTracked())
	assert.Equal(t, FlyStickV2, fs.Format)
	assert.Equal(t, 6, fs.NumButton)
	// 37 = 0b100101
	assert.Equal(t, []bool{true, false, true, false, false, true}, fs.Button[:6])
	assert.Equal(t, 2, fs.NumJoystick)
	assert.Equal(t, 0.5, fs.Joystick[0])
	assert.Equal(t, -0.25, fs.Joystick[1])

	assert.False(t, f.FlySticks[1].IsTracked())
}

func TestParseFlyStickV2Limits(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"too many buttons", "6df2 1 1 [0 1.0 17 0][0 0 0]" + identity + "[0]\r\n"},
		{"too many axes", "6df2 1 1 [0 1.0 0 9][0 0 0]" + identity + "[0 0 0 0 0 0 0 0 0]\r\n"},
		{"more listed than calibrated", "6df2 0 1 [0 1.0 0 0][0 0 0]" + identity + "[]\r\n"},
		{"missing axis value", "6df2 1 1 [0 1.0 1 2][0 0 0]" + identity + "[1 0.5]\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.data, nil)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestParseMeaTool(t *testing.T) {
	f, err := ParseFrame("6dmt 1 [0 0.8 1][5 6 7]"+identity+"\r\n", nil)
	require.NoError(t, err)
	require.Len(t, f.MeaTools, 1)
	assert.Equal(t, 1, f.MeaTools[0].NumButton)
	assert.True(t, f.MeaTools[0].Button[0])
	assert.Equal(t, [3]float64{5, 6, 7}, f.MeaTools[0].Loc)
}

func TestParseHandWithFingers(t *testing.T) {
	finger := "[1 2 3]" + identity + "[9 30 10 20 11 15]"
	data := "gl 1 [1 1.0 1 2][100 200 300]" + identity + finger + finger + "\r\n"

	f, err := ParseFrame(data, nil)
	require.NoError(t, err)
	require.Len(t, f.Hands, 2)
	assert.False(t, f.Hands[0].IsTracked())

	h := f.Hands[1]
	assert.Equal(t, HandRight, h.LR)
	assert.Equal(t, 2, h.NFinger)
	assert.Equal(t, [3]float64{100, 200, 300}, h.Loc)

	fg := h.Finger[1]
	assert.Equal(t, 9.0, fg.RadiusTip)
	assert.Equal(t, [3]float64{30, 20, 15}, fg.LengthPhalanx)
	assert.Equal(t, [2]float64{10, 11}, fg.AnglePhalanx)
}

func TestParseHandTooManyFingers(t *testing.T) {
	_, err := ParseFrame("gl 1 [0 1.0 0 6][0 0 0]"+identity+"\r\n", nil)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseMarkersReplace(t *testing.T) {
	prev, err := ParseFrame("3d 2 [1 1.0][1 1 1] [2 1.0][2 2 2]\r\n", nil)
	require.NoError(t, err)
	require.Len(t, prev.Markers, 2)

	f, err := ParseFrame("3d 1 [7 0.5][3 4 5]\r\n", prev)
	require.NoError(t, err)
	require.Len(t, f.Markers, 1)
	assert.Equal(t, Marker{ID: 7, Quality: 0.5, Loc: [3]float64{3, 4, 5}}, f.Markers[0])

	f, err = ParseFrame("fr 9\r\n", f)
	require.NoError(t, err)
	assert.Empty(t, f.Markers)
}

func TestParseIgnoresUnknownLines(t *testing.T) {
	f, err := ParseFrame("fr 5\r\n6dx 3 whatever\r\nfuture stuff\r\nts 1.0\r\n", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), f.Counter)
	assert.Equal(t, 1.0, f.Timestamp)
}

func TestParseStopsAtNul(t *testing.T) {
	f, err := ParseFrame("fr 5\r\n\x00fr garbage\r\n", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), f.Counter)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad counter", "fr x\r\n"},
		{"bad timestamp", "ts ?\r\n"},
		{"truncated body", "6d 1 [0 1.0][1 2]\r\n"},
		{"missing rotation", "6d 1 [0 1.0][1 2 3]\r\n"},
		{"negative id", "6d 1 [-1 1.0][1 2 3]" + identity + "\r\n"},
		{"bad quality", "6d 1 [0 -0.5][1 2 3]" + identity + "\r\n"},
		{"negative calibration", "6dcal -2\r\n"},
		{"flystick out of order", "6df 1 [1 1.0 0][0 0 0]" + identity + "\r\n"},
		{"body continues on next line", "6d 1 [0 1.0]\r\n[1 2 3]" + identity + "\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.data, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))
		})
	}
}

func TestParseFailureKeepsPrevious(t *testing.T) {
	prev, err := ParseFrame("fr 1\r\n6d 1 [0 1.0][1 2 3]"+identity+"\r\n", nil)
	require.NoError(t, err)
	before := prev.Clone()

	spare := &Frame{}
	err = spare.Parse("fr 2\r\n6d 1 [0 1.0][bad]\r\n", prev)
	require.Error(t, err)
	assert.Equal(t, before, prev.Clone())
}

func TestParseRejectsOversizedEntities(t *testing.T) {
	prev, err := ParseFrame("fr 1\r\n6d 1 [0 1.0][1 2 3]"+identity+"\r\nglcal 1\r\n", nil)
	require.NoError(t, err)
	before := prev.Clone()

	tests := []struct {
		name string
		data string
	}{
		{"body id", "6d 1 [5000000 1.0][0 0 0]" + identity + "\r\n"},
		{"body count", "6d 2000000000\r\n"},
		{"body calibration", "6dcal 2000000000\r\n"},
		{"hand id", "gl 1 [3000000 1.0 0 0][0 0 0]" + identity + "\r\n"},
		{"hand calibration", "glcal 2000000000\r\n"},
		{"flystick calibration", "6df2 2000000000 0\r\n"},
		{"legacy flystick count", "6df 2000000000\r\n"},
		{"measurement tools", "6dmt 2000000000\r\n"},
		{"markers", "3d 2000000000\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spare := &Frame{}
			err := spare.Parse("fr 2\r\n"+tt.data, prev)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
			assert.LessOrEqual(t, cap(spare.Bodies), MaxBodies)
			assert.LessOrEqual(t, cap(spare.Hands), MaxHands)
			assert.Equal(t, before, prev.Clone())
		})
	}

	// The highest accepted ids still parse.
	f, err := ParseFrame(fmt.Sprintf("6d 1 [%d 1.0][0 0 0]%s\r\n", MaxBodies-1, identity), nil)
	require.NoError(t, err)
	assert.Len(t, f.Bodies, MaxBodies)

	f, err = ParseFrame(fmt.Sprintf("glcal %d\r\n", MaxHands), nil)
	require.NoError(t, err)
	assert.Len(t, f.Hands, MaxHands)
}

func TestCloneIsDeep(t *testing.T) {
	f, err := ParseFrame("6d 1 [0 1.0][1 2 3]"+identity+"\r\n", nil)
	require.NoError(t, err)

	c := f.Clone()
	f.Bodies[0].Loc[0] = 99
	assert.Equal(t, 1.0, c.Bodies[0].Loc[0])
}
