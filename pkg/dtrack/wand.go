package dtrack

// WandPayload is the button and joystick part of a flystick record. The two wire formats encode
// it differently; each variant decodes itself onto a FlyStick.
type WandPayload interface {
	apply(f *FlyStick)
}

// LegacyWand is the "6df" encoding: one bit-packed integer holding 8 buttons, with the hat
// switch on bits 4..7 doubling as a two axis joystick.
type LegacyWand struct {
	Bits int
}

// WandV2 is the "6df2" encoding: button words (32 buttons each, least significant bit first)
// followed by analog joystick values.
type WandV2 struct {
	NumButtons int
	Words      []int
	Axes       []float64
}

func (p LegacyWand) apply(f *FlyStick) {
	buttons, joystick := DecodeLegacyButtons(p.Bits)
	f.Format = FlyStickLegacy
	f.NumButton = len(buttons)
	f.Button = [MaxFlyStickButtons]bool{}
	copy(f.Button[:], buttons[:])
	f.NumJoystick = len(joystick)
	f.Joystick = [MaxFlyStickJoystick]float64{}
	copy(f.Joystick[:], joystick[:])
}

func (p WandV2) apply(f *FlyStick) {
	f.Format = FlyStickV2
	f.NumButton = p.NumButtons
	f.Button = [MaxFlyStickButtons]bool{}
	copy(f.Button[:], DecodeButtonWords(p.Words, p.NumButtons))
	f.NumJoystick = len(p.Axes)
	f.Joystick = [MaxFlyStickJoystick]float64{}
	copy(f.Joystick[:], p.Axes)
}

// DecodeLegacyButtons unpacks the "6df" button integer.
//
// Buttons 0..7 are bits 0..7. The horizontal axis is -1 when bit 0x20 is set, otherwise +1 when
// bit 0x80 is set, otherwise 0. The vertical axis is -1 for 0x10, otherwise +1 for 0x40.
func DecodeLegacyButtons(bits int) (buttons [8]bool, joystick [2]float64) {
	for i := range buttons {
		buttons[i] = bits&(1<<i) != 0
	}

	switch {
	case bits&0x20 != 0:
		joystick[0] = -1
	case bits&0x80 != 0:
		joystick[0] = 1
	}
	switch {
	case bits&0x10 != 0:
		joystick[1] = -1
	case bits&0x40 != 0:
		joystick[1] = 1
	}
	return buttons, joystick
}

// DecodeButtonWords unpacks n buttons from 32 bit words, least significant bit first.
// Missing words read as released buttons.
func DecodeButtonWords(words []int, n int) []bool {
	if n <= 0 {
		return nil
	}
	out := make([]bool, n)
	for i := range out {
		w := i / 32
		if w >= len(words) {
			break
		}
		out[i] = uint32(words[w])&(1<<(i%32)) != 0
	}
	return out
}

// buttonWordCount returns how many 32 bit words carry n buttons.
func buttonWordCount(n int) int {
	return (n + 31) / 32
}
